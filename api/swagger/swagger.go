package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Padel Waitlist API",
        "description": "Waitlist and timed enrollment links for padel club classes.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Enrollment Links", "description": "Claiming and administering timed enrollment tokens"},
        {"name": "Occurrences", "description": "Availability, waitlist and roster of a class occurrence"},
        {"name": "Participants", "description": "Events that free a seat"}
    ],
    "paths": {
        "/enroll/{token}": {
            "get": {
                "tags": ["Enrollment Links"],
                "summary": "Claim a spot through an enrollment link",
                "description": "Redirects with 303 to the configured success page when set.",
                "parameters": [{"$ref": "#/parameters/Token"}],
                "responses": {
                    "200": {"description": "Enrolled", "schema": {"$ref": "#/definitions/ClaimResult"}},
                    "303": {"description": "Enrolled, redirected"},
                    "400": {"description": "invalid_token", "schema": {"$ref": "#/definitions/ClaimResult"}},
                    "401": {"description": "unauthenticated", "schema": {"$ref": "#/definitions/ClaimResult"}},
                    "403": {"description": "forbidden", "schema": {"$ref": "#/definitions/ClaimResult"}},
                    "404": {"description": "not_found", "schema": {"$ref": "#/definitions/ClaimResult"}},
                    "409": {"description": "already_enrolled", "schema": {"$ref": "#/definitions/ClaimResult"}},
                    "410": {"description": "expired or exhausted", "schema": {"$ref": "#/definitions/ClaimResult"}},
                    "429": {"description": "rate_limited", "schema": {"$ref": "#/definitions/ClaimResult"}}
                }
            },
            "post": {
                "tags": ["Enrollment Links"],
                "summary": "Claim a spot through an enrollment link",
                "parameters": [{"$ref": "#/parameters/Token"}],
                "responses": {
                    "200": {"description": "Enrolled", "schema": {"$ref": "#/definitions/ClaimResult"}},
                    "401": {"description": "unauthenticated", "schema": {"$ref": "#/definitions/ClaimResult"}},
                    "409": {"description": "already_enrolled", "schema": {"$ref": "#/definitions/ClaimResult"}},
                    "410": {"description": "expired or exhausted", "schema": {"$ref": "#/definitions/ClaimResult"}}
                }
            }
        },
        "/api/v1/classes/{classId}/occurrences/{date}/availability": {
            "get": {
                "tags": ["Occurrences"],
                "summary": "Occurrence availability",
                "parameters": [{"$ref": "#/parameters/ClassID"}, {"$ref": "#/parameters/Date"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classes/{classId}/occurrences/{date}/waitlist": {
            "get": {
                "tags": ["Occurrences"],
                "summary": "List the occurrence waitlist",
                "parameters": [{"$ref": "#/parameters/ClassID"}, {"$ref": "#/parameters/Date"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Occurrences"],
                "summary": "Join the occurrence waitlist",
                "parameters": [
                    {"$ref": "#/parameters/ClassID"},
                    {"$ref": "#/parameters/Date"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnqueueRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already waitlisted or enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classes/{classId}/occurrences/{date}/participants": {
            "post": {
                "tags": ["Occurrences"],
                "summary": "Enroll a student directly",
                "parameters": [
                    {"$ref": "#/parameters/ClassID"},
                    {"$ref": "#/parameters/Date"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Class full or already enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classes/{classId}/occurrences/{date}/notify-waitlist": {
            "post": {
                "tags": ["Occurrences"],
                "summary": "Offer free spots to the waitlist",
                "parameters": [{"$ref": "#/parameters/ClassID"}, {"$ref": "#/parameters/Date"}],
                "responses": {
                    "200": {"description": "Workflow result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Broadcast failed, workflow result attached", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classes/{classId}/occurrences/{date}/roster": {
            "get": {
                "tags": ["Occurrences"],
                "summary": "Export the occurrence roster",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/ClassID"},
                    {"$ref": "#/parameters/Date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Roster file", "schema": {"type": "file"}}
                }
            }
        },
        "/api/v1/participants/{id}/cancel": {
            "post": {
                "tags": ["Participants"],
                "summary": "Cancel a participation",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/participants/{id}/absence": {
            "post": {
                "tags": ["Participants"],
                "summary": "Confirm a participant will not attend",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Participant is not active", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/tokens/{token}": {
            "get": {
                "tags": ["Enrollment Links"],
                "summary": "Inspect an enrollment token",
                "parameters": [{"$ref": "#/parameters/Token"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/tokens/{token}/resend": {
            "post": {
                "tags": ["Enrollment Links"],
                "summary": "Broadcast an enrollment link again",
                "parameters": [
                    {"$ref": "#/parameters/Token"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/ResendRequest"}}
                ],
                "responses": {
                    "200": {"description": "Dispatch result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Token expired or exhausted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Broadcast failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/tokens/{token}/invalidate": {
            "post": {
                "tags": ["Enrollment Links"],
                "summary": "Invalidate an enrollment token",
                "parameters": [{"$ref": "#/parameters/Token"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "Token": {"name": "token", "in": "path", "required": true, "type": "string"},
        "ClassID": {"name": "classId", "in": "path", "required": true, "type": "string"},
        "Date": {"name": "date", "in": "path", "required": true, "type": "string", "format": "date"}
    },
    "definitions": {
        "ClaimResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "participantId": {"type": "string"},
                "reason": {"type": "string", "enum": ["expired", "exhausted", "already_enrolled", "not_found", "invalid_token", "unauthenticated", "forbidden", "capacity_violation", "rate_limited", "internal_error"]},
                "message": {"type": "string"}
            },
            "required": ["success"]
        },
        "EnqueueRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "requested_spots": {"type": "integer", "minimum": 1, "maximum": 10}
            }
        },
        "EnrollRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "as_substitute": {"type": "boolean"}
            },
            "required": ["student_id"]
        },
        "ResendRequest": {
            "type": "object",
            "properties": {
                "channel": {"type": "string"},
                "force": {"type": "boolean"}
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
