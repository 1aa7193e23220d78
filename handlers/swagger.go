package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers Swagger/OpenAPI endpoints for the API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>emojiforge API</title>
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

// OpenAPI document for the public API.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "emojiforge-api", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer" } }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/api/v1/me": {
      "get": { "summary": "Provisioned profile and identities of the caller", "responses": { "200": { "description": "profile" }, "401": { "description": "unauthenticated" } } }
    },
    "/api/v1/profile": {
      "post": { "summary": "Get or create the caller's profile", "responses": { "200": { "description": "profile" }, "500": { "description": "provisioning failed" } } }
    },
    "/api/v1/emojis/generate": {
      "post": {
        "summary": "Generate an emoji, spending one credit",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["prompt"],"properties":{"prompt":{"type":"string","maxLength":500}}}}}},
        "responses": { "201": { "description": "emoji created" }, "400": { "description": "invalid prompt" }, "402": { "description": "insufficient credits" }, "429": { "description": "rate limited" }, "502": { "description": "generator failed" }, "503": { "description": "generator not configured" } }
      }
    },
    "/api/v1/emojis/upload": {
      "post": {
        "summary": "Upload an image as a data URL or multipart file",
        "parameters": [ { "name": "X-Emoji-Prompt", "in": "header", "schema": {"type":"string"} } ],
        "requestBody": { "content": {
          "application/json": { "schema": {"type":"object","required":["dataUrl"],"properties":{"dataUrl":{"type":"string"},"fileName":{"type":"string"},"prompt":{"type":"string"}}}},
          "multipart/form-data": { "schema": {"type":"object","properties":{"file":{"type":"string","format":"binary"},"prompt":{"type":"string"}}}}
        }},
        "responses": { "201": { "description": "stored" }, "400": { "description": "invalid image" } }
      }
    },
    "/api/v1/emojis": {
      "get": {
        "summary": "List gallery emojis",
        "parameters": [
          { "name": "sort", "in": "query", "schema": {"type":"string","enum":["newest","oldest"]} },
          { "name": "liked", "in": "query", "schema": {"type":"boolean"} },
          { "name": "mine", "in": "query", "schema": {"type":"boolean"} },
          { "name": "limit", "in": "query", "schema": {"type":"integer"} }
        ],
        "responses": { "200": { "description": "emojis" } }
      }
    },
    "/api/v1/emojis/{id}/like": {
      "post": {
        "summary": "Like or unlike an emoji",
        "parameters": [ { "name": "id", "in": "path", "required": true, "schema": {"type":"string","format":"uuid"} } ],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"like":{"type":"boolean","default":true}}}}}},
        "responses": { "200": { "description": "updated emoji" }, "404": { "description": "emoji not found" } }
      }
    },
    "/api/v1/storage/signed-url": {
      "get": { "summary": "Presigned GET URL for a stored object", "parameters": [ { "name": "path", "in": "query", "required": true, "schema": {"type":"string"} } ], "responses": { "200": { "description": "signed url" }, "400": { "description": "path missing" } } }
    },
    "/api/v1/admin/credits": {
      "post": {
        "summary": "Set the absolute credit balance of a profile",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"external_id":{"type":"string"},"credits":{"type":"integer","minimum":0},"tier":{"type":"string","enum":["free","pro"]}}}}}},
        "responses": { "200": { "description": "updated profile" }, "403": { "description": "not an admin" }, "404": { "description": "profile not found" } }
      }
    },
    "/webhooks/identity": {
      "post": { "summary": "Identity provider user events (svix signed)", "security": [], "responses": { "200": { "description": "received" }, "400": { "description": "invalid signature or payload" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
