package openapi

import (
	"net/http"
	"sort"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"

	"github.com/hqrms/hqrms/internal/platform/auth"
)

// Generator builds an OpenAPI 3.0 spec from the routes registered on an
// echo instance. Only routes under prefix are documented.
type Generator struct {
	routes  func() []*echo.Route
	prefix  string
	version string
	baseURL string
}

// NewGenerator creates a new OpenAPI spec generator. routes is usually
// (*echo.Echo).Routes and is read on every request, so routes registered
// after the generator are still documented.
func NewGenerator(routes func() []*echo.Route, prefix, version, baseURL string) *Generator {
	return &Generator{routes: routes, prefix: prefix, version: version, baseURL: baseURL}
}

var documentedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// GenerateSpec produces the OpenAPI 3.0 spec as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]interface{})
	tagSet := make(map[string]bool)

	for _, r := range g.routes() {
		if !documentedMethods[r.Method] || !strings.HasPrefix(r.Path, g.prefix+"/") {
			continue
		}
		rel := strings.TrimPrefix(r.Path, g.prefix)
		if rel == "/openapi.json" || rel == "/docs" {
			continue
		}

		oaPath, params := convertPath(r.Path)
		tag := tagFor(rel)
		tagSet[tag] = true

		op := map[string]interface{}{
			"operationId": operationID(r),
			"tags":        []string{tag},
			"responses":   g.buildResponses(r.Method),
		}
		if len(params) > 0 {
			op["parameters"] = params
		}
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			op["requestBody"] = g.buildRequestBody()
		}
		if auth.IsPublicPath(r.Path) {
			op["security"] = []map[string][]string{}
		}

		item, _ := paths[oaPath].(map[string]interface{})
		if item == nil {
			item = make(map[string]interface{})
			paths[oaPath] = item
		}
		item[strings.ToLower(r.Method)] = op
	}

	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	tagObjs := make([]map[string]string, 0, len(tags))
	for _, t := range tags {
		tagObjs = append(tagObjs, map[string]string{"name": t})
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "HQRMS API",
			"version":     g.version,
			"description": "Hospital queue and resource management API",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"tags":  tagObjs,
		"paths": paths,
		"security": []map[string][]string{
			{"bearerAuth": {}},
		},
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]string{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
				},
			},
			"schemas": map[string]interface{}{
				"Error": buildErrorSchema(),
			},
		},
	}
}

// convertPath rewrites echo's :param segments to {param} and returns the
// matching path parameter objects.
func convertPath(path string) (string, []map[string]interface{}) {
	segs := strings.Split(path, "/")
	var params []map[string]interface{}
	for i, s := range segs {
		if !strings.HasPrefix(s, ":") {
			continue
		}
		name := s[1:]
		segs[i] = "{" + name + "}"
		params = append(params, map[string]interface{}{
			"name":     name,
			"in":       "path",
			"required": true,
			"schema":   map[string]string{"type": "string"},
		})
	}
	return strings.Join(segs, "/"), params
}

func tagFor(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	tag, _, _ := strings.Cut(rel, "/")
	return tag
}

// operationID derives a camelCase id from the handler name echo recorded,
// e.g. ".../hospital.(*Handler).RegisterPatient-fm" becomes registerPatient.
// Anonymous handlers fall back to method and path.
func operationID(r *echo.Route) string {
	name := r.Name
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if name == "" || strings.HasPrefix(name, "func") || !unicode.IsUpper(rune(name[0])) {
		return strings.ToLower(r.Method) + strings.NewReplacer("/", "_", ":", "", "-", "_").Replace(r.Path)
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func (g *Generator) buildRequestBody() map[string]interface{} {
	return map[string]interface{}{
		"required": false,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"type": "object"},
			},
		},
	}
}

func (g *Generator) buildResponses(method string) map[string]interface{} {
	success := "200"
	if method == http.MethodPost {
		success = "2XX"
	}
	return map[string]interface{}{
		success: map[string]interface{}{
			"description": "Success",
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]string{"type": "object"},
				},
			},
		},
		"default": g.buildResponseWithSchema("Error", "#/components/schemas/Error"),
	}
}

func (g *Generator) buildResponseWithSchema(description, schemaRef string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"$ref": schemaRef},
			},
		},
	}
}

func buildErrorSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"message": map[string]string{"type": "string"},
		},
	}
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>HQRMS API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/v1/openapi.json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`

// RegisterRoutes registers the OpenAPI endpoints.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
	apiGroup.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
