package router

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trashmap/trashmap-api/app/controllers"
)

const openAPIFile = "../../../docs/v1/openapi.yml"

var routeParam = regexp.MustCompile(`:([A-Za-z0-9_]+)`)

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(openAPIFile)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

func TestOpenAPIDocumentIsValid(t *testing.T) {
	doc := loadOpenAPI(t)
	assert.Equal(t, "TrashMap API", doc.Info.Title)
}

func TestOpenAPIDescribesEveryRoute(t *testing.T) {
	doc := loadOpenAPI(t)

	app := fiber.New()
	InstallRouter(app, Handlers{
		Reports:   controllers.NewReportController(nil, nil, nil, 1<<20),
		Admin:     controllers.NewAdminController(nil, nil),
		Stats:     controllers.NewStatsController(nil),
		AdminAuth: func(c *fiber.Ctx) error { return c.Next() },
	})

	checked := 0
	for _, route := range app.GetRoutes(true) {
		if !strings.HasPrefix(route.Path, "/api/v1/") && route.Path != "/healthz" {
			continue
		}
		switch route.Method {
		case http.MethodGet, http.MethodPost, http.MethodDelete:
		default:
			continue
		}

		path := routeParam.ReplaceAllString(route.Path, "{$1}")
		item := doc.Paths.Value(path)
		if !assert.NotNil(t, item, "path %s missing from openapi.yml", path) {
			continue
		}
		assert.NotNil(t, item.GetOperation(route.Method), "%s %s missing from openapi.yml", route.Method, path)
		checked++
	}
	assert.GreaterOrEqual(t, checked, 7)
}

func TestOpenAPIErrorCodesMatchControllers(t *testing.T) {
	doc := loadOpenAPI(t)

	schema := doc.Components.Schemas["Error"].Value.Properties["error"].Value
	var codes []string
	for _, v := range schema.Enum {
		codes = append(codes, v.(string))
	}

	for _, code := range []string{
		controllers.ErrCodeValidation,
		controllers.ErrCodeManualRequired,
		controllers.ErrCodeUploadFailed,
		controllers.ErrCodePersistFailed,
		controllers.ErrCodeNotFound,
		controllers.ErrCodeCancelled,
		controllers.ErrCodeInternal,
	} {
		assert.Contains(t, codes, code)
	}
}
