package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Clock
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Credential repository
// ---------------------------------------------------------------------------

type stubCredentialRepo struct {
	mu       sync.Mutex
	byDigest map[string]*domain.Credential
	findErr  error
	finds    int
	touched  []string
	created  []*domain.Credential
	revoked  []string
}

func newStubCredentialRepo() *stubCredentialRepo {
	return &stubCredentialRepo{byDigest: map[string]*domain.Credential{}}
}

func (r *stubCredentialRepo) put(raw string, c *domain.Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Digest = domain.Digest(raw)
	r.byDigest[c.Digest] = c
}

func (r *stubCredentialRepo) findCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finds
}

func (r *stubCredentialRepo) FindByDigest(_ context.Context, digest string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	c, ok := r.byDigest[digest]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubCredentialRepo) Create(_ context.Context, c *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, c)
	r.byDigest[c.Digest] = c
	return nil
}

func (r *stubCredentialRepo) TouchLastUsed(_ context.Context, id string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, id)
	return nil
}

func (r *stubCredentialRepo) Revoke(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byDigest {
		if c.ID == id {
			c.RevokedAt = &at
			r.revoked = append(r.revoked, id)
			return nil
		}
	}
	return domain.ErrCredentialNotFound
}

func (r *stubCredentialRepo) List(_ context.Context, identityKey string) ([]*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Credential
	for _, c := range r.byDigest {
		if identityKey == "" || c.IdentityKey == identityKey {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type recordingTouchSink struct {
	mu    sync.Mutex
	items []domain.CredentialTouch
	full  bool
}

func (s *recordingTouchSink) TryEnqueue(t domain.CredentialTouch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.items = append(s.items, t)
	return true
}

// ---------------------------------------------------------------------------
// Directory / workspaces
// ---------------------------------------------------------------------------

type membershipRow struct {
	identityID  string
	workspaceID string
	role        domain.Role
}

type stubDirectory struct {
	mu          sync.Mutex
	identities  map[string]*domain.Identity // by key
	workspaces  map[string]*domain.Workspace
	memberships []membershipRow
	err         error
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		identities: map[string]*domain.Identity{},
		workspaces: map[string]*domain.Workspace{},
	}
}

func (d *stubDirectory) addIdentity(id, key string, admin bool, defaultWS string) *domain.Identity {
	d.mu.Lock()
	defer d.mu.Unlock()
	ident := &domain.Identity{ID: id, Key: key, IsAdmin: admin, DefaultWorkspaceID: defaultWS}
	d.identities[key] = ident
	return ident
}

func (d *stubDirectory) addWorkspace(ws *domain.Workspace) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.workspaces[ws.ID] = ws
}

func (d *stubDirectory) grant(identityID, workspaceID string, role domain.Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.memberships = append(d.memberships, membershipRow{identityID, workspaceID, role})
}

func (d *stubDirectory) identityByID(id string) *domain.Identity {
	for _, ident := range d.identities {
		if ident.ID == id {
			return ident
		}
	}
	return nil
}

func (d *stubDirectory) FindIdentityByKey(_ context.Context, key string) (*domain.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	ident, ok := d.identities[key]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	cp := *ident
	return &cp, nil
}

func (d *stubDirectory) EnsureIdentity(_ context.Context, key, _ string) (*domain.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if ident, ok := d.identities[key]; ok {
		cp := *ident
		return &cp, nil
	}
	ident := &domain.Identity{ID: "id-" + key, Key: key}
	d.identities[key] = ident
	cp := *ident
	return &cp, nil
}

func (d *stubDirectory) SetAdmin(_ context.Context, identityID string, admin bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ident := d.identityByID(identityID)
	if ident == nil {
		return domain.ErrIdentityNotFound
	}
	ident.IsAdmin = admin
	return nil
}

func (d *stubDirectory) ListMemberships(_ context.Context, identityID string) ([]domain.Membership, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	var out []domain.Membership
	for _, m := range d.memberships {
		if m.identityID != identityID {
			continue
		}
		ws := d.workspaces[m.workspaceID]
		out = append(out, domain.Membership{
			WorkspaceID:          ws.ID,
			WorkspaceName:        ws.Name,
			WorkspaceDisplayName: ws.DisplayName,
			BackingStore:         ws.BackingStore,
			Role:                 m.role,
			IsDefault:            ws.IsDefault,
			IsArchived:           ws.IsArchived,
		})
	}
	// Deliberately unsorted: the resolver must impose its own order.
	return out, nil
}

func (d *stubDirectory) ListMembers(_ context.Context, workspaceID string) ([]domain.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.Member
	for _, m := range d.memberships {
		if m.workspaceID != workspaceID {
			continue
		}
		ident := d.identityByID(m.identityID)
		out = append(out, domain.Member{IdentityID: ident.ID, IdentityKey: ident.Key, Role: m.role})
	}
	return out, nil
}

func (d *stubDirectory) AddMembership(_ context.Context, identityID, workspaceID string, role domain.Role, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.memberships {
		if m.identityID == identityID && m.workspaceID == workspaceID {
			return domain.ErrMembershipExists
		}
	}
	d.memberships = append(d.memberships, membershipRow{identityID, workspaceID, role})
	return nil
}

func (d *stubDirectory) UpdateMembershipRole(_ context.Context, identityID, workspaceID string, role domain.Role) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, m := range d.memberships {
		if m.identityID == identityID && m.workspaceID == workspaceID {
			d.memberships[i].role = role
			return nil
		}
	}
	return domain.ErrMembershipNotFound
}

func (d *stubDirectory) RemoveMembership(_ context.Context, identityID, workspaceID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, m := range d.memberships {
		if m.identityID == identityID && m.workspaceID == workspaceID {
			d.memberships = append(d.memberships[:i], d.memberships[i+1:]...)
			return nil
		}
	}
	return domain.ErrMembershipNotFound
}

type stubWorkspaceRepo struct {
	dir *stubDirectory
}

func (r *stubWorkspaceRepo) Create(_ context.Context, ws *domain.Workspace) error {
	r.dir.mu.Lock()
	defer r.dir.mu.Unlock()
	for _, w := range r.dir.workspaces {
		if w.Name == ws.Name {
			return domain.ErrWorkspaceExists
		}
	}
	cp := *ws
	r.dir.workspaces[ws.ID] = &cp
	return nil
}

func (r *stubWorkspaceRepo) FindByID(_ context.Context, id string) (*domain.Workspace, error) {
	r.dir.mu.Lock()
	defer r.dir.mu.Unlock()
	ws, ok := r.dir.workspaces[id]
	if !ok {
		return nil, domain.ErrWorkspaceNotFound
	}
	cp := *ws
	return &cp, nil
}

func (r *stubWorkspaceRepo) FindByName(_ context.Context, name string) (*domain.Workspace, error) {
	r.dir.mu.Lock()
	defer r.dir.mu.Unlock()
	for _, ws := range r.dir.workspaces {
		if ws.Name == name {
			cp := *ws
			return &cp, nil
		}
	}
	return nil, domain.ErrWorkspaceNotFound
}

func (r *stubWorkspaceRepo) List(_ context.Context) ([]*domain.Workspace, error) {
	r.dir.mu.Lock()
	defer r.dir.mu.Unlock()
	var out []*domain.Workspace
	for _, ws := range r.dir.workspaces {
		cp := *ws
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubWorkspaceRepo) SetArchived(_ context.Context, id string, archived bool) error {
	r.dir.mu.Lock()
	defer r.dir.mu.Unlock()
	ws, ok := r.dir.workspaces[id]
	if !ok {
		return domain.ErrWorkspaceNotFound
	}
	ws.IsArchived = archived
	return nil
}

// ---------------------------------------------------------------------------
// Overrides
// ---------------------------------------------------------------------------

type stubOverrides struct {
	mu      sync.Mutex
	m       map[string]string
	err     error
	cleared []string
}

func newStubOverrides() *stubOverrides { return &stubOverrides{m: map[string]string{}} }

func (s *stubOverrides) Get(_ context.Context, identityID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}
	ws, ok := s.m[identityID]
	return ws, ok, nil
}

func (s *stubOverrides) Set(_ context.Context, identityID, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.m[identityID] = workspaceID
	return nil
}

func (s *stubOverrides) Clear(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, identityID)
	s.cleared = append(s.cleared, identityID)
	return nil
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

type recordingAudit struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (a *recordingAudit) TryEnqueue(e *domain.AuditEntry) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return true
}

func (a *recordingAudit) all() []*domain.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*domain.AuditEntry(nil), a.entries...)
}

type stubAuditRepo struct {
	mu       sync.Mutex
	inserted []*domain.AuditEntry
	err      error
}

func (r *stubAuditRepo) Insert(_ context.Context, e *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.inserted = append(r.inserted, e)
	return nil
}

func (r *stubAuditRepo) ListByWorkspace(_ context.Context, workspaceID string, limit int) ([]*domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditEntry
	for _, e := range r.inserted {
		if e.WorkspaceID == workspaceID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Tenant pools
// ---------------------------------------------------------------------------

type stubRecordRepo struct {
	mu        sync.Mutex
	records   map[string]*domain.Record
	insertErr error
	inserts   int
}

func newStubRecordRepo() *stubRecordRepo {
	return &stubRecordRepo{records: map[string]*domain.Record{}}
}

func (r *stubRecordRepo) List(_ context.Context, t domain.RecordType, limit int) ([]*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Record
	for _, rec := range r.records {
		if rec.Type == t && len(out) < limit {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubRecordRepo) Get(_ context.Context, t domain.RecordType, id string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Type != t {
		return nil, domain.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *stubRecordRepo) Insert(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if r.insertErr != nil {
		return r.insertErr
	}
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *stubRecordRepo) Update(_ context.Context, t domain.RecordType, id string, p domain.RecordPatch, at time.Time) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Type != t {
		return nil, domain.ErrRecordNotFound
	}
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Content != nil {
		rec.Content = *p.Content
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	rec.UpdatedAt = at
	cp := *rec
	return &cp, nil
}

func (r *stubRecordRepo) Delete(_ context.Context, t domain.RecordType, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Type != t {
		return domain.ErrRecordNotFound
	}
	delete(r.records, id)
	return nil
}

type stubPool struct {
	id      domain.BackingStoreID
	records *stubRecordRepo
}

func (p *stubPool) BackingStore() domain.BackingStoreID { return p.id }
func (p *stubPool) Records() ports.RecordRepository     { return p.records }
func (p *stubPool) Ping(context.Context) error          { return nil }
func (p *stubPool) Close(context.Context) error         { return nil }

type stubPools struct {
	mu    sync.Mutex
	pools map[domain.BackingStoreID]*stubPool
	err   error
}

func newStubPools() *stubPools {
	return &stubPools{pools: map[domain.BackingStoreID]*stubPool{}}
}

func (s *stubPools) Pool(_ context.Context, id domain.BackingStoreID) (ports.TenantPool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.pools[id]
	if !ok {
		p = &stubPool{id: id, records: newStubRecordRepo()}
		s.pools[id] = p
	}
	return p, nil
}

func (s *stubPools) records(id domain.BackingStoreID) *stubRecordRepo {
	p, _ := s.Pool(context.Background(), id)
	return p.(*stubPool).records
}
