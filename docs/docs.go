// Package docs registers the OpenAPI description served under /swagger/.
// Keep it in sync with the handler annotations (swag init -g cmd/archive-merger/main.go).
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
        "/download/{id}": {
            "get": {
                "description": "Pipe-delimited output of a completed process",
                "produces": ["text/plain"],
                "tags": ["processes"],
                "summary": "Download merged file",
                "parameters": [
                    {"type": "string", "description": "Process ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Merged data", "schema": {"type": "file"}},
                    "404": {"description": "File not found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/jobs": {
            "get": {
                "description": "All processes since the server started, oldest first, without their log lines",
                "produces": ["application/json"],
                "tags": ["processes"],
                "summary": "List processes",
                "responses": {
                    "200": {"description": "Processes", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Job"}}}
                }
            }
        },
        "/process": {
            "post": {
                "description": "Upload a zip of CSV files. The merge runs in the background; poll the status endpoint with the returned process_id.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["processes"],
                "summary": "Submit an archive",
                "parameters": [
                    {"type": "file", "description": "Zip archive of CSV files", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "202": {"description": "Processing started", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Missing or invalid upload", "schema": {"type": "object", "additionalProperties": true}},
                    "413": {"description": "Upload too large", "schema": {"type": "object", "additionalProperties": true}},
                    "500": {"description": "Submission failed", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/status/{id}": {
            "get": {
                "description": "Status, progress percentage, file counters and log lines of a process",
                "produces": ["application/json"],
                "tags": ["processes"],
                "summary": "Get process status",
                "parameters": [
                    {"type": "string", "description": "Process ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Process status", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Process not found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "model.Job": {
            "type": "object",
            "properties": {
                "archive_name": {"type": "string"},
                "created_at": {"type": "string"},
                "current_file": {"type": "integer"},
                "error": {"type": "string"},
                "messages": {"type": "array", "items": {"type": "string"}},
                "process_id": {"type": "string"},
                "progress": {"type": "number"},
                "status": {"type": "string", "enum": ["queued", "processing", "completed", "error"]},
                "total_files": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Archive Merger API",
	Description:      "Merges zip archives of CSV files into one pipe-delimited file with pollable progress.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
