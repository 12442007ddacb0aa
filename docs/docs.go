// Package docs is generated by swaggo/swag from the handler annotations.
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
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Create an account",
                "parameters": [
                    {"description": "Account", "name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.registerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.userResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Exchange credentials for a token pair",
                "parameters": [
                    {"description": "Credentials", "name": "credentials", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.TokenPair"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Exchange a refresh token for a new pair",
                "parameters": [
                    {"description": "Refresh token", "name": "token", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.refreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.TokenPair"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/frequencies": {
            "get": {
                "produces": ["application/json"],
                "tags": ["habits"],
                "summary": "Supported frequency templates",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.FrequencyChoice"}}}
                }
            }
        },
        "/habits": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["habits"],
                "summary": "List own habits",
                "parameters": [
                    {"type": "integer", "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.HabitPage"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["habits"],
                "summary": "Create a habit",
                "parameters": [
                    {"description": "Habit", "name": "habit", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.createHabitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Habit"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/habits/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["habits"],
                "summary": "Retrieve an own habit",
                "parameters": [
                    {"type": "string", "description": "Habit ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Habit"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Only the supplied keys change. An explicit null clears an optional field.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["habits"],
                "summary": "Partially update an own habit",
                "parameters": [
                    {"type": "string", "description": "Habit ID", "name": "id", "in": "path", "required": true},
                    {"description": "Changed fields", "name": "patch", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.createHabitRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Habit"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["habits"],
                "summary": "Delete an own habit and its reminder",
                "parameters": [
                    {"type": "string", "description": "Habit ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/public-habits": {
            "get": {
                "produces": ["application/json"],
                "tags": ["public"],
                "summary": "List public habits",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.PublicHabit"}}}
                }
            }
        }
    },
    "definitions": {
        "domain.FrequencyChoice": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "template": {"type": "string"}
            }
        },
        "domain.Habit": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "created_at": {"type": "string"},
                "days_of_week": {"type": "array", "items": {"type": "string"}},
                "end_time": {"type": "string"},
                "frequency": {"type": "string"},
                "id": {"type": "string"},
                "is_pleasant": {"type": "boolean"},
                "is_public": {"type": "boolean"},
                "place": {"type": "string"},
                "related_habit_id": {"type": "string"},
                "reward": {"type": "string"},
                "schedule": {"type": "string"},
                "time": {"type": "string"},
                "time_needed": {"type": "integer"},
                "updated_at": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "domain.PublicHabit": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "is_pleasant": {"type": "boolean"},
                "time_needed": {"type": "integer"}
            }
        },
        "http.createHabitRequest": {
            "type": "object",
            "required": ["action", "place"],
            "properties": {
                "action": {"type": "string", "maxLength": 200},
                "days_of_week": {"type": "array", "items": {"type": "string", "enum": ["mon", "tue", "wed", "thu", "fri", "sat", "sun"]}},
                "end_time": {"type": "string"},
                "frequency": {"type": "string"},
                "is_pleasant": {"type": "boolean"},
                "is_public": {"type": "boolean"},
                "place": {"type": "string", "maxLength": 200},
                "related_habit_id": {"type": "string"},
                "reward": {"type": "string", "maxLength": 200},
                "time": {"type": "string"},
                "time_needed": {"type": "integer", "minimum": 0}
            }
        },
        "http.loginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "http.refreshRequest": {
            "type": "object",
            "required": ["refresh"],
            "properties": {
                "refresh": {"type": "string"}
            }
        },
        "http.registerRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8},
                "tg_chat_id": {"type": "string"},
                "username": {"type": "string", "maxLength": 50}
            }
        },
        "http.userResponse": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "id": {"type": "string"},
                "tg_chat_id": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "services.HabitPage": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/domain.Habit"}}
            }
        },
        "services.TokenPair": {
            "type": "object",
            "properties": {
                "access": {"type": "string"},
                "refresh": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Kanso Reminders API",
	Description:      "Habit tracking with scheduled Telegram reminders.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
