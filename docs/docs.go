// Package docs registers the config server OpenAPI description with swag.
// Regenerate with: swag init -g cmd/main.go
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/auth/pair": {
            "post": {
                "description": "Exchanges the device PIN for a bearer token.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Pair a client",
                "parameters": [{"description": "Pairing payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PairRequest"}}],
                "responses": {
                    "200": {"description": "token", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/config": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["device"],
                "summary": "Get device configuration",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DeviceConfiguration"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/state": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["device"],
                "summary": "Get device state",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/preferences": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "The change is queued and applied by the device at its next loop iteration.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["device"],
                "summary": "Change a preference",
                "parameters": [{"description": "Preference change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PreferenceRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "List device events",
                "parameters": [
                    {"type": "string", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "description": "End of range; date-only means end of day", "name": "to", "in": "query"},
                    {"enum": ["STARTUP", "PREFERENCE", "SENSOR_ERROR", "WATCHDOG_RESET", "FIRMWARE"], "type": "string", "description": "Event type", "name": "type", "in": "query"},
                    {"maximum": 1000, "minimum": 1, "type": "integer", "description": "Keep only the newest N events", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "count, events", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "handlers.PairRequest": {
            "type": "object",
            "properties": {
                "client": {"description": "Free-form client label", "type": "string", "example": "phone"},
                "pin": {"description": "PIN shown on the device", "type": "string", "example": "0000"}
            }
        },
        "handlers.PreferenceRequest": {
            "type": "object",
            "properties": {
                "enabled": {"description": "Required for wifi and colors_inverted", "type": "boolean"},
                "type": {"description": "One of wifi, brightness, colors_inverted, sample_time, calibration", "type": "string", "example": "sample_time"},
                "value": {"description": "Required for brightness and sample_time", "type": "integer", "example": 30}
            }
        },
        "models.DeviceConfiguration": {
            "type": "object",
            "properties": {
                "brightness": {"type": "integer"},
                "colors_inverted": {"type": "boolean"},
                "debug_mode": {"type": "boolean"},
                "device_id": {"type": "string"},
                "i2c_only": {"type": "boolean"},
                "influx_enabled": {"type": "boolean"},
                "namespace": {"type": "string"},
                "sample_time": {"type": "integer"},
                "sensor_type": {"type": "integer"},
                "ssid": {"type": "string"},
                "temp_offset": {"type": "number"},
                "wifi_enabled": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "airmonitor config server",
	Description:      "Pairing, preferences, live state and event log of an air quality monitor.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
