package ncontract

import (
	"net/http"
	"strconv"

	"github.com/muir/napi/nshape"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPI renders the contract as an OpenAPI 3 document.  The
// document marshals with encoding/json and can be checked with its
// Validate method.
func OpenAPI(c *Contract) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   c.title,
			Version: c.version,
		},
		Paths: openapi3.NewPaths(),
	}
	for _, ep := range c.endpoints {
		key := ep.Template.OpenAPIPath()
		item := doc.Paths.Value(key)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(key, item)
		}
		item.SetOperation(ep.Method, operation(ep))
	}
	return doc
}

func operation(ep Endpoint) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = ep.Name
	op.Description = ep.Description
	fields := nshape.Fields(ep.PathShape)
	for _, name := range ep.Template.Params() {
		for _, f := range fields {
			if f.Name == name {
				op.AddParameter(openapi3.NewPathParameter(name).WithSchema(f.Shape.JSONSchema()))
			}
		}
	}
	if ep.BodyShape != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchema(ep.BodyShape.JSONSchema()),
		}
	}
	op.Responses = responses(ep)
	return op
}

func responses(ep Endpoint) *openapi3.Responses {
	r := openapi3.NewResponsesWithCapacity(len(ep.Errors) + 2)
	r.Set(strconv.Itoa(ep.Status), &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription(http.StatusText(ep.Status)).
			WithJSONSchema(ep.ResponseShape.JSONSchema()),
	})
	for _, e := range ep.Errors {
		r.Set(strconv.Itoa(e.Status), &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription(e.Tag).
				WithJSONSchema(e.Shape.JSONSchema()),
		})
	}
	if r.Value("400") == nil {
		r.Set("400", &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("request does not match the contract"),
		})
	}
	return r
}
