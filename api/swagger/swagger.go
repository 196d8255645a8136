package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Claims Flow API",
        "description": "Bordereau lifecycle, corbeille, assignment and workload API",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Bordereaux", "description": "Bordereau intake and lifecycle transitions"},
        {"name": "Assignments", "description": "Assignment engine"},
        {"name": "Corbeille", "description": "Role-specific inbox views"},
        {"name": "Workload", "description": "Derived handler and team load"},
        {"name": "Documents", "description": "Items carried by bordereaux"},
        {"name": "Dashboard", "description": "Back-office overview"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bordereaux": {
            "post": {
                "tags": ["Bordereaux"],
                "summary": "Register a bordereau at intake",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBordereauRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/bordereaux/{id}": {
            "get": {
                "tags": ["Bordereaux"],
                "summary": "Fetch a bordereau with derived SLA health",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/bordereaux/{id}/scan/start": {
            "post": {
                "tags": ["Bordereaux"],
                "summary": "Begin scanning",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal transition or stale state"}
                }
            }
        },
        "/bordereaux/{id}/scan/complete": {
            "post": {
                "tags": ["Bordereaux"],
                "summary": "Finish scanning; makes the bordereau assignable",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal transition or stale state"}
                }
            }
        },
        "/bordereaux/{id}/process": {
            "post": {
                "tags": ["Bordereaux"],
                "summary": "Mark processing complete",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal transition or stale state"}
                }
            }
        },
        "/bordereaux/{id}/payment/initiate": {
            "post": {
                "tags": ["Bordereaux"],
                "summary": "Start the virement",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal transition or stale state"}
                }
            }
        },
        "/bordereaux/{id}/payment/execute": {
            "post": {
                "tags": ["Bordereaux"],
                "summary": "Confirm virement execution",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal transition or stale state"}
                }
            }
        },
        "/bordereaux/{id}/close": {
            "post": {
                "tags": ["Bordereaux"],
                "summary": "Close a bordereau after executed payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal transition or stale state"}
                }
            }
        },
        "/bordereaux/{id}/reject": {
            "post": {
                "tags": ["Bordereaux"],
                "summary": "Send a bordereau back to intake or scan",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Missing reason"},
                    "409": {"description": "Illegal transition or stale state"}
                }
            }
        },
        "/bordereaux/{id}/recuperer": {
            "post": {
                "tags": ["Bordereaux"],
                "summary": "Reclaim a bordereau from its handler",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReasonRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Missing reason"},
                    "409": {"description": "Illegal transition or stale state"}
                }
            }
        },
        "/bordereaux/{id}/handle": {
            "post": {
                "tags": ["Bordereaux"],
                "summary": "Chef d'equipe takes the bordereau personally",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Illegal transition or stale state"}
                }
            }
        },
        "/assignments": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign bordereaux to handlers",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-target outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/corbeille": {
            "get": {
                "tags": ["Corbeille"],
                "summary": "Role-specific bordereau buckets",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role has no corbeille view"}
                }
            }
        },
        "/workload/handlers/{id}": {
            "get": {
                "tags": ["Workload"],
                "summary": "Workload snapshot of one handler",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Handler not found"}
                }
            }
        },
        "/workload/teams/{id}": {
            "get": {
                "tags": ["Workload"],
                "summary": "Aggregate workload of a team",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Back-office overview",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/corbeille": {
            "get": {
                "tags": ["Documents"],
                "summary": "Pending documents for the scan desk",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "CreateBordereauRequest": {
            "type": "object",
            "required": ["reference", "client_id"],
            "properties": {
                "reference": {"type": "string"},
                "client_id": {"type": "string"},
                "nombre_bs": {"type": "integer"}
            }
        },
        "RejectRequest": {
            "type": "object",
            "required": ["reason", "return_to"],
            "properties": {
                "reason": {"type": "string"},
                "return_to": {"type": "string", "enum": ["BO", "SCAN"]}
            }
        },
        "ReasonRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "AssignRequest": {
            "type": "object",
            "required": ["targets", "policy"],
            "properties": {
                "targets": {"type": "array", "items": {"type": "string"}},
                "policy": {"type": "string", "enum": ["MANUAL", "BY_CLIENT", "WORKLOAD_BALANCED", "AI_SCORED"]},
                "handler_id": {"type": "string"},
                "override": {"type": "boolean"},
                "reason": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
