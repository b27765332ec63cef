package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Technician Availability API",
        "description": "Weekly schedules, dated exceptions and resolved availability for field technicians",
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
        {"name": "Auth", "description": "Login and token lifecycle"},
        {"name": "Technicians", "description": "Technician roster"},
        {"name": "Schedules", "description": "Weekly blocks and dated exceptions"},
        {"name": "Availability", "description": "Resolved availability and calendar feed"},
        {"name": "Exports", "description": "Asynchronous availability exports"},
        {"name": "Operations", "description": "Health and metrics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Revoke a refresh token",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Current user",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/technicians": {
            "get": {
                "tags": ["Technicians"],
                "security": [{"BearerAuth": []}],
                "summary": "List technicians",
                "parameters": [
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "active", "type": "boolean"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Technicians"],
                "security": [{"BearerAuth": []}],
                "summary": "Create technician",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}, "409": {"description": "Email taken"}}
            }
        },
        "/technicians/{id}": {
            "get": {
                "tags": ["Technicians"],
                "security": [{"BearerAuth": []}],
                "summary": "Get technician",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Technicians"],
                "security": [{"BearerAuth": []}],
                "summary": "Update technician",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "tags": ["Technicians"],
                "security": [{"BearerAuth": []}],
                "summary": "Deactivate technician",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/technicians/{id}/weekly-schedule": {
            "get": {
                "tags": ["Schedules"],
                "security": [{"BearerAuth": []}],
                "summary": "Weekly blocks for a technician",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/WeeklyBlock"}}}}
            },
            "put": {
                "tags": ["Schedules"],
                "security": [{"BearerAuth": []}],
                "summary": "Replace the weekly schedule atomically",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Validation error"}}
            }
        },
        "/technicians/{id}/exceptions": {
            "get": {
                "tags": ["Schedules"],
                "security": [{"BearerAuth": []}],
                "summary": "List dated exceptions",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "from", "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/ScheduleException"}}}}
            },
            "post": {
                "tags": ["Schedules"],
                "security": [{"BearerAuth": []}],
                "summary": "Create exceptions over a date span",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}, "409": {"description": "Conflicts with an existing exception"}}
            },
            "delete": {
                "tags": ["Schedules"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete exceptions by id, scoped to the technician",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/technicians/{id}/exceptions/groups": {
            "get": {
                "tags": ["Schedules"],
                "security": [{"BearerAuth": []}],
                "summary": "Exceptions grouped into consecutive runs",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/ExceptionGroup"}}}}
            },
            "put": {
                "tags": ["Schedules"],
                "security": [{"BearerAuth": []}],
                "summary": "Replace a group of exceptions",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            }
        },
        "/technicians/{id}/exceptions/{exceptionId}": {
            "delete": {
                "tags": ["Schedules"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete a single exception",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "path", "name": "exceptionId", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/technicians/{id}/availability": {
            "get": {
                "tags": ["Availability"],
                "security": [{"BearerAuth": []}],
                "summary": "Resolved availability for one date",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "date", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/DayAvailability"}}}
            }
        },
        "/technicians/{id}/availability/range": {
            "get": {
                "tags": ["Availability"],
                "security": [{"BearerAuth": []}],
                "summary": "Resolved availability for a date range",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "from", "required": true, "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/DayAvailability"}}}, "400": {"description": "Invalid range"}}
            }
        },
        "/technicians/{id}/calendar.ics": {
            "get": {
                "tags": ["Availability"],
                "security": [{"BearerAuth": []}],
                "summary": "iCalendar feed of availability windows and block-outs",
                "produces": ["text/calendar"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "from", "required": true, "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "required": true, "type": "string", "format": "date"},
                    {"in": "query", "name": "access_token", "required": false, "type": "string", "description": "Access token for clients that cannot send an Authorization header"}
                ],
                "responses": {"200": {"description": "OK"}, "429": {"description": "Rate limited"}}
            }
        },
        "/technicians/{id}/exports": {
            "post": {
                "tags": ["Exports"],
                "security": [{"BearerAuth": []}],
                "summary": "Queue an availability export",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ExportJob"}}}
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "security": [{"BearerAuth": []}],
                "summary": "Export job status",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ExportJob"}}}
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export with a signed token",
                "parameters": [{"in": "path", "name": "token", "required": true, "type": "string"}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired token"}}
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Operations"],
                "security": [{"BearerAuth": []}],
                "summary": "Runtime metrics snapshot",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "WeeklyBlock": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "technician_id": {"type": "string"},
                "day_of_week": {"type": "integer"},
                "block_name": {"type": "string"},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "17:00"},
                "is_available": {"type": "boolean"}
            }
        },
        "ScheduleException": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "technician_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "is_available": {"type": "boolean"},
                "reason": {"type": "string"}
            }
        },
        "ExceptionGroup": {
            "type": "object",
            "properties": {
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "is_available": {"type": "boolean"},
                "reason": {"type": "string"},
                "exception_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "AvailabilityWindow": {
            "type": "object",
            "properties": {
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            }
        },
        "DayAvailability": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"},
                "windows": {"type": "array", "items": {"$ref": "#/definitions/AvailabilityWindow"}},
                "source": {"type": "string", "enum": ["weekly", "exception"]}
            }
        },
        "ExportJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "technician_id": {"type": "string"},
                "status": {"type": "string", "enum": ["QUEUED", "PROCESSING", "FINISHED", "FAILED"]},
                "progress": {"type": "integer"},
                "result_url": {"type": "string"},
                "error_message": {"type": "string"}
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
