// Package docs holds the OpenAPI description served under /swagger, in the
// layout swag init produces. Besides the annotated handlers it lists the
// /v1/k/{credential}/records routes, which reuse the record handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.readinessResponse"}}
                }
            }
        },
        "/v1/workspaces": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["workspaces"],
                "summary": "List the caller's workspaces",
                "parameters": [
                    {"type": "string", "description": "Workspace id or name", "name": "X-Workspace-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.workspacesResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/workspaces/current": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["workspaces"],
                "summary": "Show the workspace this request resolves to",
                "parameters": [
                    {"type": "string", "description": "Workspace id or name", "name": "X-Workspace-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.workspaceView"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/workspaces/active": {
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["workspaces"],
                "summary": "Pin the active workspace for the calling identity",
                "parameters": [
                    {"description": "Workspace id or name", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.setActiveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.workspaceView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["workspaces"],
                "summary": "Drop the pinned workspace",
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/records/{type}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "List records of one type",
                "parameters": [
                    {"type": "string", "description": "meetings, actions or decisions", "name": "type", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum number of records", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Workspace id or name", "name": "X-Workspace-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.recordsResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Create a record",
                "parameters": [
                    {"type": "string", "description": "meetings, actions or decisions", "name": "type", "in": "path", "required": true},
                    {"description": "Record fields", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createRecordRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Record"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/records/{type}/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Get one record",
                "parameters": [
                    {"type": "string", "description": "meetings, actions or decisions", "name": "type", "in": "path", "required": true},
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Record"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "patch": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Update a record",
                "parameters": [
                    {"type": "string", "description": "meetings, actions or decisions", "name": "type", "in": "path", "required": true},
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateRecordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Record"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["records"],
                "summary": "Delete a record",
                "parameters": [
                    {"type": "string", "description": "meetings, actions or decisions", "name": "type", "in": "path", "required": true},
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/k/{credential}/records/{type}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "(credential in path) List records of one type",
                "parameters": [
                    {"type": "string", "description": "Credential carried in the path", "name": "credential", "in": "path", "required": true},
                    {"type": "string", "description": "meetings, actions or decisions", "name": "type", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum number of records", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Workspace id or name", "name": "X-Workspace-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.recordsResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "(credential in path) Create a record",
                "parameters": [
                    {"type": "string", "description": "Credential carried in the path", "name": "credential", "in": "path", "required": true},
                    {"type": "string", "description": "meetings, actions or decisions", "name": "type", "in": "path", "required": true},
                    {"description": "Record fields", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createRecordRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Record"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/k/{credential}/records/{type}/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "(credential in path) Get one record",
                "parameters": [
                    {"type": "string", "description": "Credential carried in the path", "name": "credential", "in": "path", "required": true},
                    {"type": "string", "description": "meetings, actions or decisions", "name": "type", "in": "path", "required": true},
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Record"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "(credential in path) Update a record",
                "parameters": [
                    {"type": "string", "description": "Credential carried in the path", "name": "credential", "in": "path", "required": true},
                    {"type": "string", "description": "meetings, actions or decisions", "name": "type", "in": "path", "required": true},
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateRecordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Record"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "delete": {
                "tags": ["records"],
                "summary": "(credential in path) Delete a record",
                "parameters": [
                    {"type": "string", "description": "Credential carried in the path", "name": "credential", "in": "path", "required": true},
                    {"type": "string", "description": "meetings, actions or decisions", "name": "type", "in": "path", "required": true},
                    {"type": "string", "description": "Record id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/admin/workspaces": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List workspaces visible to the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Workspace"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Create a workspace",
                "parameters": [
                    {"description": "Workspace slug and display name", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createWorkspaceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Workspace"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/admin/workspaces/{id}": {
            "patch": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Archive or unarchive a workspace",
                "parameters": [
                    {"type": "string", "description": "Workspace id or name", "name": "id", "in": "path", "required": true},
                    {"description": "Archive flag", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.archiveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Workspace"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/admin/workspaces/{id}/audit": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List recent audit entries of a workspace",
                "parameters": [
                    {"type": "string", "description": "Workspace id or name", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum number of entries", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.auditResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/admin/workspaces/{id}/members": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List workspace members",
                "parameters": [
                    {"type": "string", "description": "Workspace id or name", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.membersResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Grant an identity a role in a workspace",
                "parameters": [
                    {"type": "string", "description": "Workspace id or name", "name": "id", "in": "path", "required": true},
                    {"description": "Identity and role", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.addMemberRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Member"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/admin/workspaces/{id}/members/{identity}": {
            "patch": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "tags": ["admin"],
                "summary": "Change a member's role",
                "parameters": [
                    {"type": "string", "description": "Workspace id or name", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Identity key", "name": "identity", "in": "path", "required": true},
                    {"description": "New role", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.changeRoleRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["admin"],
                "summary": "Revoke a membership",
                "parameters": [
                    {"type": "string", "description": "Workspace id or name", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Identity key", "name": "identity", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Member": {
            "type": "object",
            "properties": {
                "display_name": {"type": "string"},
                "identity_id": {"type": "string"},
                "identity_key": {"type": "string"},
                "role": {"type": "string", "enum": ["viewer", "member", "chair"]}
            }
        },
        "domain.Record": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "created_at": {"type": "string"},
                "created_by": {"type": "string"},
                "id": {"type": "string"},
                "status": {"type": "string"},
                "title": {"type": "string"},
                "type": {"type": "string", "enum": ["meetings", "actions", "decisions"]},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Workspace": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "display_name": {"type": "string"},
                "id": {"type": "string"},
                "is_archived": {"type": "boolean"},
                "is_default": {"type": "boolean"},
                "name": {"type": "string"}
            }
        },
        "domain.AuditEntry": {
            "type": "object",
            "properties": {
                "access_method": {"type": "string"},
                "detail": {"type": "string"},
                "entity_id": {"type": "string"},
                "entity_type": {"type": "string"},
                "id": {"type": "string"},
                "identity_key": {"type": "string"},
                "operation": {"type": "string"},
                "timestamp": {"type": "string"},
                "workspace_id": {"type": "string"},
                "workspace_name": {"type": "string"}
            }
        },
        "handler.addMemberRequest": {
            "type": "object",
            "required": ["identity", "role"],
            "properties": {
                "identity": {"type": "string", "maxLength": 320},
                "role": {"type": "string"}
            }
        },
        "handler.archiveRequest": {
            "type": "object",
            "required": ["archived"],
            "properties": {
                "archived": {"type": "boolean"}
            }
        },
        "handler.auditResponse": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/domain.AuditEntry"}},
                "workspace_id": {"type": "string"}
            }
        },
        "handler.changeRoleRequest": {
            "type": "object",
            "required": ["role"],
            "properties": {
                "role": {"type": "string"}
            }
        },
        "handler.createRecordRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "content": {"type": "string", "maxLength": 20000},
                "status": {"type": "string", "maxLength": 64},
                "title": {"type": "string", "maxLength": 500}
            }
        },
        "handler.createWorkspaceRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "display_name": {"type": "string", "maxLength": 200},
                "name": {"type": "string"}
            }
        },
        "handler.dependencyStatus": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "handler.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "handler.membersResponse": {
            "type": "object",
            "properties": {
                "members": {"type": "array", "items": {"$ref": "#/definitions/domain.Member"}},
                "workspace_id": {"type": "string"}
            }
        },
        "handler.readinessResponse": {
            "type": "object",
            "properties": {
                "dependencies": {"type": "object", "additionalProperties": {"$ref": "#/definitions/handler.dependencyStatus"}},
                "status": {"type": "string"}
            }
        },
        "handler.recordsResponse": {
            "type": "object",
            "properties": {
                "records": {"type": "array", "items": {"$ref": "#/definitions/domain.Record"}},
                "workspace": {"type": "string"}
            }
        },
        "handler.setActiveRequest": {
            "type": "object",
            "required": ["workspace"],
            "properties": {
                "workspace": {"type": "string", "maxLength": 100}
            }
        },
        "handler.updateRecordRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string", "maxLength": 20000},
                "status": {"type": "string", "maxLength": 64},
                "title": {"type": "string", "maxLength": 500, "minLength": 1}
            }
        },
        "handler.workspaceView": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean"},
                "display_name": {"type": "string"},
                "id": {"type": "string"},
                "is_archived": {"type": "boolean"},
                "is_default": {"type": "boolean"},
                "name": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "handler.workspacesResponse": {
            "type": "object",
            "properties": {
                "identity": {"type": "string"},
                "workspaces": {"type": "array", "items": {"$ref": "#/definitions/handler.workspaceView"}}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "recordkeeper API",
	Description:      "Multi-tenant meeting records with per-workspace access control.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
