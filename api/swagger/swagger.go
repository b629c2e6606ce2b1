package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Professor Roster API",
        "description": "Bulk student import, enrollment synchronization and the professor dashboard",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Dashboard", "description": "Professor dashboard and change stream"},
        {"name": "Subjects", "description": "Subject lifecycle"},
        {"name": "Imports", "description": "Bulk roster imports"},
        {"name": "Roster", "description": "Per-subject rosters and the student directory"},
        {"name": "Records", "description": "Attendance and assessments"},
        {"name": "Exports", "description": "CSV and PDF downloads"}
    ],
    "paths": {
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Current dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/refresh": {
            "post": {
                "tags": ["Dashboard"],
                "summary": "Rebuild the dashboard from stored enrollments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/stream": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard change events (server-sent events)",
                "produces": ["text/event-stream"],
                "parameters": [
                    {"name": "access_token", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Event stream"}
                }
            }
        },
        "/dashboard/alerts/{id}/dismiss": {
            "post": {
                "tags": ["Dashboard"],
                "summary": "Dismiss an alert",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Dismissed"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Subjects"],
                "summary": "List subjects by lifecycle stage",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Subjects"],
                "summary": "Create subject",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSubjectRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}": {
            "delete": {
                "tags": ["Subjects"],
                "summary": "Permanently delete a recycled subject",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Not in the recycle bin", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/archive": {
            "post": {
                "tags": ["Subjects"],
                "summary": "Move an active subject to the removed list",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/recycle": {
            "post": {
                "tags": ["Subjects"],
                "summary": "Move a subject to the recycle bin",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/restore": {
            "post": {
                "tags": ["Subjects"],
                "summary": "Restore a removed or recycled subject",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/imports": {
            "post": {
                "tags": ["Imports"],
                "summary": "Import a roster file into a subject",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Import report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Dashboard save failed; data carries the report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/imports/preview": {
            "post": {
                "tags": ["Imports"],
                "summary": "Preview a roster import without writing anything",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Import report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/roster": {
            "get": {
                "tags": ["Roster"],
                "summary": "Students projected into a subject",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/students": {
            "post": {
                "tags": ["Roster"],
                "summary": "Enroll a single student",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Import report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/students/{studentId}/archive": {
            "post": {
                "tags": ["Roster"],
                "summary": "Archive a student within a subject",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/students/{studentId}/restore": {
            "post": {
                "tags": ["Roster"],
                "summary": "Restore an archived student within a subject",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Roster"],
                "summary": "Professor-wide student directory",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "archived", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/archived": {
            "delete": {
                "tags": ["Roster"],
                "summary": "Hard-delete students archived in every subject they are enrolled in",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/attendance": {
            "post": {
                "tags": ["Records"],
                "summary": "Record attendance for a date",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/assessments": {
            "post": {
                "tags": ["Records"],
                "summary": "Insert or replace an assessment",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssessmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{code}/exports/attendance": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download attendance",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/subjects/{code}/exports/grades": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download assessment scores",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        }
    },
    "definitions": {
        "CreateSubjectRequest": {
            "type": "object",
            "required": ["code", "name", "term"],
            "properties": {
                "code": {"type": "string"},
                "name": {"type": "string"},
                "credits": {"type": "integer"},
                "term": {"type": "string", "enum": ["first", "second"]}
            }
        },
        "AddStudentRequest": {
            "type": "object",
            "required": ["id", "name"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"}
            }
        },
        "AttendanceRequest": {
            "type": "object",
            "required": ["date", "entries"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "entries": {"type": "object", "additionalProperties": {"type": "string", "enum": ["present", "absent"]}}
            }
        },
        "AssessmentRequest": {
            "type": "object",
            "required": ["name", "type", "date", "maxPoints"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "maxPoints": {"type": "number"},
                "scores": {"type": "object", "additionalProperties": {"type": "number"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
