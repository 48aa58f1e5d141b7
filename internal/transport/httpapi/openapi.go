package httpapi

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
)

// document is built once at package init; it never depends on runtime
// config, so there's no point rebuilding it per request.
var document = buildDocument()

func handleOpenAPI(c *gin.Context) {
	c.JSON(http.StatusOK, document)
}

func buildDocument() *openapi3.T {
	stringArraySchema := openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())

	opSchema := openapi3.NewObjectSchema().
		WithProperty("type", openapi3.NewStringSchema().WithEnum("get", "put", "delete", "search", "list_namespaces")).
		WithProperty("namespace", stringArraySchema).
		WithProperty("key", openapi3.NewStringSchema()).
		WithProperty("value", openapi3.NewObjectSchema()).
		WithProperty("namespacePrefix", stringArraySchema).
		WithProperty("filter", openapi3.NewObjectSchema()).
		WithProperty("limit", openapi3.NewIntegerSchema()).
		WithProperty("offset", openapi3.NewIntegerSchema()).
		WithProperty("query", openapi3.NewStringSchema()).
		WithProperty("maxDepth", openapi3.NewIntegerSchema())
	opSchema.Required = []string{"type"}

	batchRequestSchema := openapi3.NewArraySchema().WithItems(opSchema)

	resultSchema := openapi3.NewObjectSchema().
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("item", openapi3.NewObjectSchema()).
		WithProperty("items", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())).
		WithProperty("namespaces", openapi3.NewArraySchema().WithItems(stringArraySchema)).
		WithProperty("error", openapi3.NewStringSchema())

	batchResponseSchema := openapi3.NewObjectSchema().
		WithProperty("results", openapi3.NewArraySchema().WithItems(resultSchema))

	namespacesResponseSchema := openapi3.NewObjectSchema().
		WithProperty("namespaces", openapi3.NewArraySchema().WithItems(stringArraySchema))

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "memstore",
			Version: "1.0.0",
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/v1/batch", &openapi3.PathItem{
				Post: &openapi3.Operation{
					OperationID: "runBatch",
					RequestBody: &openapi3.RequestBodyRef{
						Value: openapi3.NewRequestBody().WithJSONSchema(batchRequestSchema),
					},
					Responses: openapi3.NewResponses(
						openapi3.WithStatus(200, &openapi3.ResponseRef{
							Value: openapi3.NewResponse().
								WithDescription("batch results, one per request entry, in order").
								WithJSONSchema(batchResponseSchema),
						}),
					),
				},
			}),
			openapi3.WithPath("/v1/namespaces", &openapi3.PathItem{
				Get: &openapi3.Operation{
					OperationID: "listNamespaces",
					Responses: openapi3.NewResponses(
						openapi3.WithStatus(200, &openapi3.ResponseRef{
							Value: openapi3.NewResponse().
								WithDescription("default-paginated namespace listing").
								WithJSONSchema(namespacesResponseSchema),
						}),
					),
				},
			}),
		),
	}
}
