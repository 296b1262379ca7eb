// docs.go publishes the hand-written OpenAPI document for the placement
// endpoints together with a Swagger UI page pulled from a CDN.
package handlers

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OpenAPIPath is where the raw document is served; the UI page loads it.
const OpenAPIPath = "/api/docs/openapi.yaml"

//go:embed openapi.yaml
var openAPIDocument []byte

// docsPage is rendered once. The UI bundle is pinned to a major version.
var docsPage = []byte(fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>%s</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>body { margin: 0; } .swagger-ui .topbar { display: none; }</style>
</head>
<body>
  <div id="placement-docs"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '%s',
      dom_id: '#placement-docs',
      docExpansion: 'list',
      tryItOutEnabled: false,
    });
  </script>
</body>
</html>`, "Placement Finder API", OpenAPIPath))

// ServeOpenAPISpec returns the embedded document.
// GET /api/docs/openapi.yaml
func (h *Handler) ServeOpenAPISpec(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/yaml", openAPIDocument)
}

// ServeSwaggerUI returns the documentation page.
// GET /api/docs
func (h *Handler) ServeSwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", docsPage)
}
