package openapi

import (
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
)

type Route struct {
	doc       *Document
	method    string
	path      string
	operation *openapi3.Operation
}

func (r *Route) Summary(summary string) *Route {
	r.operation.Summary = summary
	return r
}

func (r *Route) Description(description string) *Route {
	r.operation.Description = description
	return r
}

func (r *Route) OperationID(id string) *Route {
	r.operation.OperationID = id
	return r
}

func (r *Route) Tags(tags ...string) *Route {
	r.operation.Tags = append(r.operation.Tags, tags...)
	return r
}

func (r *Route) Body(example any, description string) *Route {
	r.operation.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithDescription(description).
			WithRequired(true).
			WithJSONSchemaRef(r.doc.schemaFor(example)),
	}
	return r
}

func (r *Route) Response(statusCode int, example any, description string) *Route {
	resp := openapi3.NewResponse().WithDescription(description)
	if example != nil {
		resp.WithJSONSchemaRef(r.doc.schemaFor(example))
	}
	r.operation.Responses.Set(strconv.Itoa(statusCode), &openapi3.ResponseRef{Value: resp})
	return r
}

func (r *Route) Security(schemes ...string) *Route {
	if r.operation.Security == nil {
		r.operation.Security = openapi3.NewSecurityRequirements()
	}
	for _, scheme := range schemes {
		r.operation.Security.With(openapi3.NewSecurityRequirement().Authenticate(scheme))
	}
	return r
}

func (r *Route) Build() {
	r.doc.addOperation(r.method, r.path, r.operation)
}
