package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "College Admin API",
        "description": "Role-based college administration backend: timetable scheduling with conflict detection, notifications and events.",
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
        {"name": "Timetable", "description": "Class scheduling and conflict detection"},
        {"name": "Notifications", "description": "Per-user in-app notifications"},
        {"name": "Events", "description": "College events and registrations"}
    ],
    "paths": {
        "/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List timetable entries",
                "parameters": [
                    {"name": "class_group", "in": "query", "type": "string"},
                    {"name": "course_code", "in": "query", "type": "string"},
                    {"name": "group", "in": "query", "type": "string"},
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "day", "in": "query", "type": "string"},
                    {"name": "semester", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Timetable"],
                "summary": "Schedule a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed time or invalid interval"},
                    "404": {"description": "Teacher not found"},
                    "409": {"description": "Teacher already booked in the slot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/student": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Weekly timetable of the calling student's cohort",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/teacher": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Weekly timetable of the calling teacher",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/check-overlap": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Probe a slot for conflicts without mutating",
                "description": "Omitting teacher_id checks the calling user's own schedule.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckOverlapRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/reassign": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Reassign a class to another teacher",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReassignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "New teacher already booked; retry with merge_mode=merge", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Export a cohort's weekly timetable",
                "produces": ["application/pdf", "text/csv"],
                "parameters": [
                    {"name": "class_group", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "csv"]}
                ],
                "responses": {
                    "200": {"description": "Rendered file"}
                }
            }
        },
        "/timetable/{id}": {
            "put": {
                "tags": ["Timetable"],
                "summary": "Update a timetable entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Teacher already booked in the slot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetable"],
                "summary": "Delete a timetable entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the calling user's notifications",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/send": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Send a notification to a user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SendNotificationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/read-all": {
            "put": {
                "tags": ["Notifications"],
                "summary": "Mark all notifications as read",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/notifications/clear-read": {
            "delete": {
                "tags": ["Notifications"],
                "summary": "Delete all read notifications",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/notifications/{id}/read": {
            "put": {
                "tags": ["Notifications"],
                "summary": "Mark one notification as read",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/notifications/{id}": {
            "delete": {
                "tags": ["Notifications"],
                "summary": "Delete one notification",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List events",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "school_name", "in": "query", "type": "string"},
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Events"],
                "summary": "Create an event",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}": {
            "get": {
                "tags": ["Events"],
                "summary": "Get one event with its participants",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Events"],
                "summary": "Update an event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EventRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Events"],
                "summary": "Delete an event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/events/{id}/register": {
            "post": {
                "tags": ["Events"],
                "summary": "Register the calling user for an event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already registered or event full"}
                }
            },
            "delete": {
                "tags": ["Events"],
                "summary": "Cancel the calling user's registration",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "TimetableEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "class_group": {"type": "string"},
                "course_code": {"type": "string"},
                "subject": {"type": "string"},
                "group": {"type": "string"},
                "teacher_id": {"type": "string"},
                "day": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "location": {"type": "string"},
                "semester": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "CreateTimetableRequest": {
            "type": "object",
            "properties": {
                "class_group": {"type": "string"},
                "course_code": {"type": "string"},
                "subject": {"type": "string"},
                "group": {"type": "string"},
                "teacher_id": {"type": "string"},
                "day": {"type": "string", "enum": ["Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"]},
                "start_time": {"type": "string", "example": "10:00"},
                "end_time": {"type": "string", "example": "11:30 AM"},
                "location": {"type": "string"},
                "semester": {"type": "string"}
            },
            "required": ["class_group", "course_code", "subject", "day", "start_time", "end_time", "location"]
        },
        "ReassignRequest": {
            "type": "object",
            "properties": {
                "timetable_id": {"type": "string"},
                "new_teacher_id": {"type": "string"},
                "merge_mode": {"type": "string", "enum": ["merge", "replace"]}
            },
            "required": ["timetable_id", "new_teacher_id", "merge_mode"]
        },
        "CheckOverlapRequest": {
            "type": "object",
            "properties": {
                "day": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "teacher_id": {"type": "string"}
            },
            "required": ["day", "start_time", "end_time"]
        },
        "SendNotificationRequest": {
            "type": "object",
            "properties": {
                "recipient_id": {"type": "string"},
                "title": {"type": "string"},
                "message": {"type": "string"},
                "type": {"type": "string"},
                "attachment": {"type": "string"}
            },
            "required": ["recipient_id", "title", "message", "type"]
        },
        "EventRequest": {
            "type": "object",
            "properties": {
                "school_name": {"type": "string"},
                "name": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "level": {"type": "string"},
                "mode": {"type": "string", "enum": ["Online", "Offline", "Hybrid"]},
                "category": {"type": "string"},
                "target_group": {"type": "string"},
                "objective": {"type": "string"},
                "registration_deadline": {"type": "string"},
                "max_participants": {"type": "integer"},
                "status": {"type": "string", "enum": ["Upcoming", "Ongoing", "Completed", "Cancelled"]}
            },
            "required": ["school_name", "name", "start_date", "end_date", "level", "mode", "category", "target_group"]
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
