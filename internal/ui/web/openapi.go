package web

import (
	"context"
	"encoding/json"
	"fmt"

	"warnboard/internal/shared/version"

	"github.com/getkin/kin-openapi/openapi3"
)

func jsonResponse(description string, schema *openapi3.Schema) *openapi3.ResponseRef {
	resp := openapi3.NewResponse().WithDescription(description)
	if schema != nil {
		resp = resp.WithJSONSchema(schema)
	}
	return &openapi3.ResponseRef{Value: resp}
}

func operation(id, summary string, ok *openapi3.Schema, params ...*openapi3.Parameter) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Summary = summary
	for _, p := range params {
		op.AddParameter(p)
	}
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(200, jsonResponse("OK", ok)),
		openapi3.WithStatus(400, jsonResponse("Invalid argument", errorSchema())),
		openapi3.WithStatus(404, jsonResponse("Not found", errorSchema())),
	)
	return op
}

func pathParam(name string, schema *openapi3.Schema) *openapi3.Parameter {
	return openapi3.NewPathParameter(name).WithSchema(schema)
}

func queryParam(name string, schema *openapi3.Schema) *openapi3.Parameter {
	return openapi3.NewQueryParameter(name).WithSchema(schema)
}

func errorSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("requestId", openapi3.NewStringSchema())
}

func chartSchema() *openapi3.Schema {
	series := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("values", openapi3.NewArraySchema().WithItems(openapi3.NewIntegerSchema())).
		WithProperty("color", openapi3.NewStringSchema())
	return openapi3.NewObjectSchema().
		WithProperty("xLabels", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("series", openapi3.NewArraySchema().WithItems(series))
}

// OpenAPIDocument builds, validates and encodes the API description.
func OpenAPIDocument() ([]byte, error) {
	str := openapi3.NewStringSchema
	integer := openapi3.NewIntegerSchema

	job := pathParam("job", str())
	build := pathParam("build", integer())
	tool := pathParam("tool", str())

	jobSummary := openapi3.NewObjectSchema().
		WithProperty("name", str()).
		WithProperty("url", str()).
		WithProperty("status", str()).
		WithProperty("buildCount", integer()).
		WithProperty("latestBuild", integer())
	issueRow := openapi3.NewObjectSchema().
		WithProperty("label", str()).
		WithProperty("count", integer())
	buildRow := openapi3.NewObjectSchema().
		WithProperty("buildNumber", integer()).
		WithProperty("buildUrl", str())
	messages := openapi3.NewObjectSchema().
		WithProperty("info", openapi3.NewArraySchema().WithItems(str())).
		WithProperty("errors", openapi3.NewArraySchema().WithItems(str()))
	importResult := openapi3.NewObjectSchema().
		WithProperty("jobs", openapi3.NewArraySchema().WithItems(str())).
		WithProperty("builds", integer()).
		WithProperty("inconsistent", integer())

	window := []*openapi3.Parameter{
		job,
		queryParam("tool", str()),
		queryParam("maxBuilds", integer()),
		queryParam("maxAgeDays", integer()),
		queryParam("useBuildLabel", openapi3.NewBoolSchema()),
	}
	trendParams := append([]*openapi3.Parameter{
		queryParam("metric", openapi3.NewStringSchema().WithEnum("total", "new", "fixed")),
	}, window...)

	importOp := operation("importJobs", "Import job snapshots", nil)
	importOp.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(openapi3.NewObjectSchema()),
	}
	importOp.Responses = openapi3.NewResponses(
		openapi3.WithStatus(201, jsonResponse("Imported", importResult)),
		openapi3.WithStatus(400, jsonResponse("Invalid snapshot", errorSchema())),
	)

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "warnboard",
			Version: version.Version,
		},
		Paths: openapi3.NewPaths(),
	}
	doc.Paths.Set("/api/jobs", &openapi3.PathItem{
		Get:  operation("listJobs", "List jobs", openapi3.NewArraySchema().WithItems(jobSummary)),
		Post: importOp,
	})
	doc.Paths.Set("/api/jobs/{job}", &openapi3.PathItem{
		Get: operation("getJob", "Full job history", openapi3.NewObjectSchema(), job),
	})
	doc.Paths.Set("/api/jobs/{job}/builds", &openapi3.PathItem{
		Get: operation("buildRows", "Build table rows", openapi3.NewArraySchema().WithItems(buildRow), job),
	})
	doc.Paths.Set("/api/jobs/{job}/tools", &openapi3.PathItem{
		Get: operation("usedTools", "Tools of the latest build", openapi3.NewArraySchema().WithItems(str()), job),
	})
	doc.Paths.Set("/api/jobs/{job}/builds/{build}/summary", &openapi3.PathItem{
		Get: operation("buildSummary", "Per-tool counts of one build", chartSchema(), job, build),
	})
	doc.Paths.Set("/api/jobs/{job}/builds/{build}/tools/{tool}/issues", &openapi3.PathItem{
		Get: operation("issueRows", "Issue statistics rows", openapi3.NewArraySchema().WithItems(issueRow),
			job, build, tool,
			queryParam("category", openapi3.NewStringSchema().WithEnum("outstanding", "new", "fixed", "outstanding+new", "active")),
			queryParam("groupBy", openapi3.NewStringSchema().WithEnum("severity", "category", "type", "file")),
		),
	})
	doc.Paths.Set("/api/jobs/{job}/builds/{build}/tools/{tool}/messages", &openapi3.PathItem{
		Get: operation("messages", "Tool log messages", messages, job, build, tool),
	})
	doc.Paths.Set("/api/jobs/{job}/trend", &openapi3.PathItem{
		Get: operation("toolTrend", "Per-tool trend chart", chartSchema(), trendParams...),
	})
	doc.Paths.Set("/api/jobs/{job}/new-vs-fixed", &openapi3.PathItem{
		Get: operation("newVersusFixed", "New versus fixed chart", chartSchema(), window...),
	})
	doc.Paths.Set("/api/tables/{kind}", &openapi3.PathItem{
		Get: operation("tableModel", "Table column schema", openapi3.NewObjectSchema(),
			pathParam("kind", openapi3.NewStringSchema().WithEnum("issues", "builds"))),
	})
	doc.Paths.Set("/api/tables/{kind}/rows", &openapi3.PathItem{
		Get: operation("tableRows", "Table rows of a job", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema()),
			pathParam("kind", openapi3.NewStringSchema().WithEnum("issues", "builds")),
			queryParam("job", str()).WithRequired(true),
			queryParam("build", integer()),
			queryParam("tool", str()),
			queryParam("category", str()),
			queryParam("groupBy", str()),
		),
	})
	doc.Paths.Set("/health", &openapi3.PathItem{
		Get: operation("health", "Service health", openapi3.NewObjectSchema()),
	})

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return json.Marshal(doc)
}
