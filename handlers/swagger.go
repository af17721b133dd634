package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the API documentation endpoints.
// - GET /swagger/index.html  -> Swagger UI loading the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
// - GET /openapi.json        -> same document
// - GET /docs                -> redirect to the UI
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})
	serveDoc := func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	}
	rg.GET("/swagger/doc.json", serveDoc)
	rg.GET("/openapi.json", serveDoc)
	rg.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/swagger/index.html")
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>workout-api - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "workout-api", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Error": { "type": "object", "properties": { "error": { "type": "string" } } },
      "WorkoutInput": {
        "type": "object",
        "required": ["name", "duration", "date"],
        "properties": {
          "name": { "type": "string" },
          "description": { "type": "string", "nullable": true },
          "duration": { "type": "integer", "minimum": 0, "description": "minutes" },
          "date": { "type": "string", "format": "date" }
        }
      },
      "Workout": {
        "allOf": [
          { "$ref": "#/components/schemas/WorkoutInput" },
          { "type": "object", "properties": { "id": { "type": "integer" }, "user_id": { "type": "integer" } } }
        ]
      },
      "RoutineInput": {
        "allOf": [
          { "$ref": "#/components/schemas/WorkoutInput" },
          { "type": "object", "properties": { "workout_ids": { "type": "array", "items": { "type": "integer" } } } }
        ]
      },
      "Routine": {
        "allOf": [
          { "$ref": "#/components/schemas/RoutineInput" },
          { "type": "object", "properties": { "id": { "type": "integer" }, "user_id": { "type": "integer" } } }
        ]
      },
      "Token": {
        "type": "object",
        "properties": {
          "access_token": { "type": "string" },
          "token_type": { "type": "string", "example": "bearer" },
          "refresh_token": { "type": "string" },
          "expires_in": { "type": "integer" }
        }
      }
    }
  },
  "paths": {
    "/": { "get": { "summary": "Health check", "responses": { "200": { "description": "Health Check Complete" } } } },
    "/auth/": {
      "post": {
        "summary": "Register a user",
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "required": ["username", "password"], "properties": { "username": { "type": "string" }, "password": { "type": "string" } } } } } },
        "responses": { "201": { "description": "created" }, "400": { "description": "invalid input" }, "409": { "description": "username taken" } }
      }
    },
    "/auth/token": {
      "post": {
        "summary": "Exchange username and password for tokens",
        "requestBody": { "content": {
          "application/x-www-form-urlencoded": { "schema": { "type": "object", "properties": { "username": { "type": "string" }, "password": { "type": "string" } } } },
          "application/json": { "schema": { "type": "object", "properties": { "username": { "type": "string" }, "password": { "type": "string" } } } }
        } },
        "responses": { "200": { "description": "tokens", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Token" } } } }, "401": { "description": "Incorrect username or password" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Rotate a refresh token", "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "refresh_token": { "type": "string" } } } } } }, "responses": { "200": { "description": "new tokens" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Remove the refresh session and revoke the bearer token", "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "refresh_token": { "type": "string" } } } } } }, "responses": { "200": { "description": "logged out" } } }
    },
    "/auth/me": { "get": { "summary": "Current user", "security": [{ "bearer": [] }], "responses": { "200": { "description": "user" }, "401": { "description": "unauthenticated" } } } },
    "/workouts/": {
      "get": {
        "summary": "List own workouts ordered by date",
        "security": [{ "bearer": [] }],
        "parameters": [
          { "name": "from", "in": "query", "schema": { "type": "string", "format": "date" } },
          { "name": "to", "in": "query", "schema": { "type": "string", "format": "date" } }
        ],
        "responses": { "200": { "description": "workouts", "content": { "application/json": { "schema": { "type": "array", "items": { "$ref": "#/components/schemas/Workout" } } } } } }
      },
      "post": {
        "summary": "Create a workout",
        "security": [{ "bearer": [] }],
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/WorkoutInput" } } } },
        "responses": { "201": { "description": "created" }, "400": { "description": "invalid input" } }
      }
    },
    "/workouts/{id}": {
      "parameters": [{ "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } }],
      "get": { "summary": "Get a workout", "security": [{ "bearer": [] }], "responses": { "200": { "description": "workout" }, "404": { "description": "Workout not found" } } },
      "put": { "summary": "Replace a workout", "security": [{ "bearer": [] }], "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/WorkoutInput" } } } }, "responses": { "200": { "description": "updated" }, "404": { "description": "Workout not found" } } },
      "delete": { "summary": "Delete a workout", "security": [{ "bearer": [] }], "responses": { "204": { "description": "deleted" }, "404": { "description": "Workout not found" } } }
    },
    "/workouts/stats": {
      "get": {
        "summary": "Totals over the last N days",
        "security": [{ "bearer": [] }],
        "parameters": [{ "name": "days", "in": "query", "schema": { "type": "integer", "default": 30 } }],
        "responses": { "200": { "description": "stats" } }
      }
    },
    "/workouts/export": {
      "post": { "summary": "Export own workouts and routines to object storage", "security": [{ "bearer": [] }], "responses": { "200": { "description": "export key and download url" }, "503": { "description": "storage not configured" } } }
    },
    "/routines/": {
      "get": { "summary": "List own routines", "security": [{ "bearer": [] }], "responses": { "200": { "description": "routines" } } },
      "post": { "summary": "Create a routine", "security": [{ "bearer": [] }], "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/RoutineInput" } } } }, "responses": { "201": { "description": "created" }, "400": { "description": "invalid input" } } }
    },
    "/routines/{id}": {
      "parameters": [{ "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } }],
      "get": { "summary": "Get a routine", "security": [{ "bearer": [] }], "responses": { "200": { "description": "routine" }, "404": { "description": "Routine not found" } } },
      "put": { "summary": "Replace a routine; workout_ids replaces links when present", "security": [{ "bearer": [] }], "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/RoutineInput" } } } }, "responses": { "200": { "description": "updated" }, "404": { "description": "Routine not found" } } },
      "delete": { "summary": "Delete a routine", "security": [{ "bearer": [] }], "responses": { "204": { "description": "deleted" } } }
    },
    "/routines/{id}/workouts/{workout_id}": {
      "parameters": [
        { "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } },
        { "name": "workout_id", "in": "path", "required": true, "schema": { "type": "integer" } }
      ],
      "post": { "summary": "Link a workout", "security": [{ "bearer": [] }], "responses": { "200": { "description": "routine" }, "400": { "description": "workout not owned" } } },
      "delete": { "summary": "Unlink a workout", "security": [{ "bearer": [] }], "responses": { "200": { "description": "routine" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
