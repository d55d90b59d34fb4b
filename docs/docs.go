// Package docs registers the OpenAPI document served under /swagger.
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
        "/api/automation/flows": {
            "get": {
                "produces": ["application/json"],
                "tags": ["automation"],
                "summary": "List automation flows",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["automation"],
                "summary": "Create automation flow",
                "parameters": [{"description": "Automation Flow", "name": "flow", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/api/automation/flows/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["automation"],
                "summary": "Get automation flow",
                "parameters": [{"type": "string", "description": "Flow ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "tags": ["automation"],
                "summary": "Delete automation flow",
                "parameters": [{"type": "string", "description": "Flow ID", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/automation/flows/{id}/active": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["automation"],
                "summary": "Activate or deactivate a flow",
                "parameters": [{"type": "string", "description": "Flow ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/automation/flows/{id}/execute": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["automation"],
                "summary": "Execute automation flow",
                "parameters": [{"type": "string", "description": "Flow ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/api/automation/events": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["automation"],
                "summary": "Dispatch a trigger event",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/automation/executions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["automation"],
                "summary": "List executions",
                "parameters": [
                    {"type": "string", "description": "Filter by flow", "name": "flow_id", "in": "query"},
                    {"type": "string", "description": "Filter by status", "name": "status", "in": "query"},
                    {"type": "integer", "default": 50, "description": "Maximum rows", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/automation/executions/export": {
            "get": {
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["automation"],
                "summary": "Export executions as XLSX",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/automation/executions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["automation"],
                "summary": "Get execution",
                "parameters": [{"type": "string", "description": "Execution ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health Check",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "CRM Automation API",
	Description:      "Automation flow engine: flows, trigger dispatch and execution history.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
