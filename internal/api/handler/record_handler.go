package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetingintel/recordkeeper/internal/core/domain"
	"github.com/meetingintel/recordkeeper/internal/core/ports"
)

// RecordHandler serves meetings, action items and decisions of the active
// workspace.
type RecordHandler struct {
	service ports.RecordService
}

func NewRecordHandler(service ports.RecordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// List handles GET /v1/records/:type.
//
// @Summary      List records of one type
// @Tags         records
// @Produce      json
// @Security     ApiKeyAuth
// @Param        type            path      string  true   "meetings, actions or decisions"
// @Param        limit           query     int     false  "Maximum number of records"
// @Param        X-Workspace-ID  header    string  false  "Workspace id or name"
// @Success      200             {object}  recordsResponse
// @Failure      403             {object}  errorResponse
// @Failure      404             {object}  errorResponse
// @Failure      503             {object}  errorResponse
// @Router       /v1/records/{type} [get]
func (h *RecordHandler) List(c echo.Context) error {
	rc, err := ctxRequest(c)
	if err != nil {
		return err
	}
	t, err := domain.ParseRecordType(c.Param("type"))
	if err != nil {
		return err
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	records, err := h.service.List(c.Request().Context(), rc, t, limit)
	if err != nil {
		return err
	}
	if records == nil {
		records = []*domain.Record{}
	}
	return c.JSON(http.StatusOK, recordsResponse{
		Workspace: rc.Active().WorkspaceName,
		Records:   records,
	})
}

// Get handles GET /v1/records/:type/:id.
//
// @Summary      Get one record
// @Tags         records
// @Produce      json
// @Security     ApiKeyAuth
// @Param        type  path      string  true  "meetings, actions or decisions"
// @Param        id    path      string  true  "Record id"
// @Success      200   {object}  domain.Record
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/records/{type}/{id} [get]
func (h *RecordHandler) Get(c echo.Context) error {
	rc, err := ctxRequest(c)
	if err != nil {
		return err
	}
	t, err := domain.ParseRecordType(c.Param("type"))
	if err != nil {
		return err
	}

	rec, err := h.service.Get(c.Request().Context(), rc, t, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// Create handles POST /v1/records/:type.
//
// @Summary      Create a record
// @Tags         records
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        type  path      string               true  "meetings, actions or decisions"
// @Param        body  body      createRecordRequest  true  "Record fields"
// @Success      201   {object}  domain.Record
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/records/{type} [post]
func (h *RecordHandler) Create(c echo.Context) error {
	rc, err := ctxRequest(c)
	if err != nil {
		return err
	}
	t, err := domain.ParseRecordType(c.Param("type"))
	if err != nil {
		return err
	}

	var req createRecordRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	rec, err := h.service.Create(c.Request().Context(), rc, ports.CreateRecordInput{
		Type:    t,
		Title:   req.Title,
		Content: req.Content,
		Status:  req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

// Update handles PATCH /v1/records/:type/:id.
//
// @Summary      Update a record
// @Tags         records
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        type  path      string               true  "meetings, actions or decisions"
// @Param        id    path      string               true  "Record id"
// @Param        body  body      updateRecordRequest  true  "Fields to change"
// @Success      200   {object}  domain.Record
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/records/{type}/{id} [patch]
func (h *RecordHandler) Update(c echo.Context) error {
	rc, err := ctxRequest(c)
	if err != nil {
		return err
	}
	t, err := domain.ParseRecordType(c.Param("type"))
	if err != nil {
		return err
	}

	var req updateRecordRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	rec, err := h.service.Update(c.Request().Context(), rc, t, c.Param("id"), domain.RecordPatch{
		Title:   req.Title,
		Content: req.Content,
		Status:  req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// Delete handles DELETE /v1/records/:type/:id.
//
// @Summary      Delete a record
// @Tags         records
// @Security     ApiKeyAuth
// @Param        type  path  string  true  "meetings, actions or decisions"
// @Param        id    path  string  true  "Record id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/records/{type}/{id} [delete]
func (h *RecordHandler) Delete(c echo.Context) error {
	rc, err := ctxRequest(c)
	if err != nil {
		return err
	}
	t, err := domain.ParseRecordType(c.Param("type"))
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), rc, t, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
