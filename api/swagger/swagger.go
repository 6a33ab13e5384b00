package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Schedule Synthesis API",
        "description": "Assigns students one meeting section per required course with no time conflicts.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedules", "description": "Scheduling request lifecycle"},
        {"name": "Authentication", "description": "Admin operator login"},
        {"name": "Admin", "description": "Pipeline status and oracle cost ledger"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Unready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate the admin operator",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/schedule-requests": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Open a new scheduling request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule-requests/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get a scheduling request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/schedule-requests/{id}/sections": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Attach collected section rows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AttachSectionsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/schedule-requests/{id}/download": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get a signed download link for the rendered schedule PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Schedule not ready"}
                }
            }
        },
        "/downloads": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Stream a schedule PDF by signed token",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/waitlist": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List requests waiting behind the generation cooldown",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/status": {
            "get": {
                "tags": ["Admin"],
                "summary": "Pipeline status and quota state",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/events": {
            "get": {
                "tags": ["Admin"],
                "summary": "Recent pipeline events",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/costs": {
            "get": {
                "tags": ["Admin"],
                "summary": "Aggregate oracle spend",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/costs/requests/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Ledger entries for one request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/costs/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export the cost ledger as CSV",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "CourseInput": {
            "type": "object",
            "properties": {
                "department": {"type": "string"},
                "number": {"type": "string"}
            },
            "required": ["department", "number"]
        },
        "SubmitScheduleRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "term": {"type": "string"},
                "courses": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CourseInput"}
                },
                "preferenceHints": {
                    "type": "object",
                    "additionalProperties": {"type": "string"}
                },
                "preferenceText": {"type": "string"}
            },
            "required": ["email", "term", "courses"]
        },
        "SectionRowInput": {
            "type": "object",
            "properties": {
                "crn": {"type": "string"},
                "course": {"type": "string"},
                "title": {"type": "string"},
                "scheduleType": {"type": "string"},
                "modality": {"type": "string"},
                "instructor": {"type": "string"},
                "days": {"type": "string"},
                "beginTime": {"type": "string"},
                "endTime": {"type": "string"},
                "location": {"type": "string"}
            },
            "required": ["crn", "course"]
        },
        "AttachSectionsRequest": {
            "type": "object",
            "properties": {
                "sections": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "array",
                        "items": {"$ref": "#/definitions/SectionRowInput"}
                    }
                }
            },
            "required": ["sections"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "ScheduleClass": {
            "type": "object",
            "properties": {
                "crn": {"type": "string"},
                "courseNumber": {"type": "string"},
                "courseName": {"type": "string"},
                "days": {"type": "string"},
                "time": {"type": "string"},
                "location": {"type": "string"},
                "isLab": {"type": "boolean"}
            }
        },
        "ScheduleResult": {
            "type": "object",
            "properties": {
                "classes": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ScheduleClass"}
                },
                "error": {"type": "string"},
                "message": {"type": "string"}
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
