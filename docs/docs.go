//go:build swagger

// Package docs registers the OpenAPI document served by the Swagger UI.
// Regenerate with `swag init -g cmd/llmpoold/docs.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/workers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["workers"],
                "summary": "List workers",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.WorkersResponse"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["workers"],
                "summary": "Register a worker",
                "parameters": [
                    {"description": "Worker configuration", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.WorkerSpec"}},
                    {"type": "boolean", "description": "Start after registering", "name": "start", "in": "query"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/types.CreateWorkerResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/workers/stop-all": {
            "post": {
                "produces": ["application/json"],
                "tags": ["workers"],
                "summary": "Stop every running worker",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/workers/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["workers"],
                "summary": "Get a worker",
                "parameters": [{"type": "string", "description": "Worker ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.WorkerStatus"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/workers/{id}/config": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["workers"],
                "summary": "Replace a worker's configuration",
                "parameters": [
                    {"type": "string", "description": "Worker ID", "name": "id", "in": "path", "required": true},
                    {"description": "Worker configuration", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.WorkerSpec"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.WorkerStatus"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/workers/{id}/start": {
            "post": {
                "produces": ["application/json"],
                "tags": ["workers"],
                "summary": "Start a worker",
                "parameters": [{"type": "string", "description": "Worker ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.WorkerStatus"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/workers/{id}/stop": {
            "post": {
                "produces": ["application/json"],
                "tags": ["workers"],
                "summary": "Stop a worker",
                "parameters": [{"type": "string", "description": "Worker ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.WorkerStatus"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/workers/{id}/generate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["workers"],
                "summary": "Generate text with a worker",
                "parameters": [
                    {"type": "string", "description": "Worker ID", "name": "id", "in": "path", "required": true},
                    {"description": "Prompt", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.GenerateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Pool status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        }
    },
    "definitions": {
        "types.WorkerSpec": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "tinyllama-chat"},
                "backend": {"type": "string", "example": "llamacpp"},
                "loader": {"type": "string", "example": "_default"},
                "params": {"type": "object", "additionalProperties": true},
                "autostart": {"type": "boolean"}
            }
        },
        "types.WorkerStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "config": {"$ref": "#/definitions/types.WorkerSpec"},
                "running": {"type": "boolean"},
                "pid": {"type": "integer"},
                "created_unix": {"type": "integer"},
                "started_unix": {"type": "integer"},
                "last_used_unix": {"type": "integer"},
                "starts": {"type": "integer"},
                "requests": {"type": "integer"},
                "queue_len": {"type": "integer"},
                "last_error": {"type": "string"}
            }
        },
        "types.WorkersResponse": {
            "type": "object",
            "properties": {"workers": {"type": "array", "items": {"$ref": "#/definitions/types.WorkerStatus"}}}
        },
        "types.CreateWorkerResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "running": {"type": "boolean"}}
        },
        "types.GenerateRequest": {
            "type": "object",
            "properties": {"prompt": {"type": "string", "example": "Write a haiku about the ocean."}}
        },
        "types.GenerateResponse": {
            "type": "object",
            "properties": {"worker_id": {"type": "string"}, "output": {"type": "string"}}
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "strategy": {"type": "string", "example": "thread"},
                "workers": {"type": "array", "items": {"$ref": "#/definitions/types.WorkerStatus"}},
                "registered": {"type": "integer"},
                "running": {"type": "integer"},
                "max_queue_depth": {"type": "integer"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "llmpoold API",
	Description:      "HTTP control API for a pool of LLM workers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
