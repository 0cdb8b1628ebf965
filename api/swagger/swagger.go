package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "OpsCheck Checklist API",
        "description": "Checklist templates, runs, review and exports",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Console login and identity"},
        {"name": "Templates", "description": "Checklist template catalog"},
        {"name": "Runs", "description": "Run lifecycle and responses"},
        {"name": "Review", "description": "Grouped read-side views"},
        {"name": "Employees", "description": "Employee roster and PIN sessions"},
        {"name": "Users", "description": "Console account administration"},
        {"name": "Exports", "description": "Asynchronous CSV/PDF exports"}
    ],
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
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate console user",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/templates": {
            "get": {
                "tags": ["Templates"],
                "summary": "List templates",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Templates"],
                "summary": "Create template",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/runs": {
            "get": {
                "tags": ["Runs"],
                "summary": "List runs",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Runs"],
                "summary": "Start run",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/runs/{id}/submit": {
            "post": {
                "tags": ["Runs"],
                "summary": "Submit run",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invalid state"}
                }
            }
        },
        "/api/v1/runs/{id}/approve": {
            "post": {
                "tags": ["Runs"],
                "summary": "Approve run",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "Invalid state"}
                }
            }
        },
        "/api/v1/review/runs": {
            "get": {
                "tags": ["Review"],
                "summary": "List runs for review",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Request export",
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "OpsCheck Checklist API",
	Description:      "Checklist templates, runs, review and exports",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
