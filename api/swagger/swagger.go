package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "WLC Ormoc Registrar API",
        "description": "Registration, enrollment and payment services for the registrar portal",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Auth", "description": "Login, token refresh and password management"},
        {"name": "Registrations", "description": "Public intake and admin review workflow"},
        {"name": "Programs", "description": "Academic program catalogue"},
        {"name": "Courses", "description": "Curriculum course management"},
        {"name": "Students", "description": "Student records"},
        {"name": "Enrollments", "description": "Enrollment lifecycle and exports"},
        {"name": "Payments", "description": "Payment ledger and receipts"},
        {"name": "Documents", "description": "Enrollment document uploads and review"},
        {"name": "Dashboard", "description": "Operational metrics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
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
                "tags": ["Auth"],
                "summary": "Exchange a refresh token for a new token pair",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Revoke the active refresh token",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Current authenticated identity",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/password": {
            "put": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Change the current user's password",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/registrations": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Submit a registration application",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRegistrationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A pending application already exists for this email"}
                }
            },
            "get": {
                "tags": ["Registrations"],
                "security": [{"BearerAuth": []}],
                "summary": "List registration applications",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "program_id", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "size", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}": {
            "get": {
                "tags": ["Registrations"],
                "security": [{"BearerAuth": []}],
                "summary": "Get one registration with program details",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/registrations/{id}/approve": {
            "post": {
                "tags": ["Registrations"],
                "security": [{"BearerAuth": []}],
                "summary": "Approve a pending registration",
                "description": "Provisions a student account, creates the enrollment with a computed fee assessment and emails temporary credentials.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed"}
                }
            }
        },
        "/registrations/{id}/reject": {
            "post": {
                "tags": ["Registrations"],
                "security": [{"BearerAuth": []}],
                "summary": "Reject a pending registration",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed"}
                }
            }
        },
        "/programs": {
            "get": {
                "tags": ["Programs"],
                "summary": "List academic programs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Programs"],
                "security": [{"BearerAuth": []}],
                "summary": "Create a program",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateProgramRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Program code already in use"}
                }
            }
        },
        "/programs/{id}": {
            "get": {
                "tags": ["Programs"],
                "summary": "Get one program",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Programs"],
                "security": [{"BearerAuth": []}],
                "summary": "Update a program",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Programs"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete an unreferenced program",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Program still referenced by students or registrations"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List curriculum courses",
                "parameters": [
                    {"name": "program_id", "in": "query", "type": "string"},
                    {"name": "year_level", "in": "query", "type": "integer"},
                    {"name": "semester", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Create a course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get one course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Update a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "security": [{"BearerAuth": []}],
                "summary": "Remove a course from the active curriculum",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "security": [{"BearerAuth": []}],
                "summary": "List students",
                "parameters": [
                    {"name": "program_id", "in": "query", "type": "string"},
                    {"name": "year_level", "in": "query", "type": "integer"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/me": {
            "get": {
                "tags": ["Students"],
                "security": [{"BearerAuth": []}],
                "summary": "Current student's record",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "security": [{"BearerAuth": []}],
                "summary": "Get one student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/status": {
            "put": {
                "tags": ["Students"],
                "security": [{"BearerAuth": []}],
                "summary": "Activate or deactivate a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "security": [{"BearerAuth": []}],
                "summary": "List enrollments",
                "description": "Students only see their own enrollments.",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "payment_status", "in": "query", "type": "string"},
                    {"name": "academic_year", "in": "query", "type": "string"},
                    {"name": "semester", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/export": {
            "get": {
                "tags": ["Enrollments"],
                "security": [{"BearerAuth": []}],
                "summary": "Export enrollments as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "security": [{"BearerAuth": []}],
                "summary": "Get one enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/status": {
            "put": {
                "tags": ["Enrollments"],
                "security": [{"BearerAuth": []}],
                "summary": "Change enrollment status",
                "description": "Setting Approved recomputes the fee assessment and resets the balance.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/courses": {
            "get": {
                "tags": ["Enrollments"],
                "security": [{"BearerAuth": []}],
                "summary": "List courses linked to an enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/payments": {
            "get": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "List payments on an enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "Record a payment",
                "description": "Amounts above the outstanding balance are capped; the overage is reported as change due.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid amount or enrollment already settled"}
                }
            }
        },
        "/payments/me": {
            "get": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "Current student's payment history",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments/{id}/receipt": {
            "get": {
                "tags": ["Payments"],
                "security": [{"BearerAuth": []}],
                "summary": "Download a payment receipt PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF file"}
                }
            }
        },
        "/enrollments/{id}/documents": {
            "get": {
                "tags": ["Documents"],
                "security": [{"BearerAuth": []}],
                "summary": "List documents on an enrollment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Documents"],
                "security": [{"BearerAuth": []}],
                "summary": "Upload a document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "type", "in": "formData", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{id}/url": {
            "get": {
                "tags": ["Documents"],
                "security": [{"BearerAuth": []}],
                "summary": "Issue a signed download URL",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{id}/review": {
            "put": {
                "tags": ["Documents"],
                "security": [{"BearerAuth": []}],
                "summary": "Verify or reject a document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download via signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Expired or invalid token"}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "security": [{"BearerAuth": []}],
                "summary": "Operational metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "SubmitRegistrationRequest": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "program_id": {"type": "string"},
                "year_level": {"type": "integer"}
            },
            "required": ["first_name", "last_name", "email", "program_id", "year_level"]
        },
        "CreateProgramRequest": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "name": {"type": "string"},
                "years_to_complete": {"type": "integer"}
            },
            "required": ["code", "name", "years_to_complete"]
        },
        "CreateCourseRequest": {
            "type": "object",
            "properties": {
                "program_id": {"type": "string"},
                "year_level": {"type": "integer"},
                "semester": {"type": "integer"},
                "code": {"type": "string"},
                "name": {"type": "string"},
                "units": {"type": "integer"}
            },
            "required": ["program_id", "year_level", "semester", "code", "name", "units"]
        },
        "RecordPaymentRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "method": {"type": "string"},
                "reference_number": {"type": "string"}
            },
            "required": ["amount", "method"]
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
