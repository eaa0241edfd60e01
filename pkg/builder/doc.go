// Package builder provides fluent, type-safe run-config construction.
//
// The builder API is a more ergonomic alternative to manual struct
// initialization for building a models.RunConfig, with early validation
// and IDE autocomplete support.
//
// # Basic Usage
//
//	cfg := builder.NewRunConfig("1",
//	    builder.WithMaxParallelism(4),
//	).AddCheck(
//	    builder.NewHTTPCheck("fetch", "GET", "https://api.example.com/users"),
//	).MustBuild()
//
// # Connecting Checks
//
// Dependencies and routing are set per check rather than via separate edge
// objects:
//
//	cfg := builder.NewRunConfig("1").
//	    AddCheck(builder.NewHTTPCheck("fetch", "GET", "https://api.example.com/data")).
//	    AddCheck(builder.NewJQCheck("transform", `.[] | {id, name}`,
//	        builder.WithDependsOn("fetch"),
//	    )).
//	    MustBuild()
//
// # Routing
//
// Attach a RoutingBuilder to a check's on_fail/on_success/on_finish slot:
//
//	builder.NewCommandCheck("deploy", "make deploy",
//	    builder.WithOnFail(builder.NewRouting(builder.Retry(3, 1000))),
//	    builder.WithOnSuccess(builder.NewRouting(builder.Run("notify"))),
//	)
//
// # Error Handling
//
// Use Build() for error handling, or MustBuild() for tests and examples
// (panics on error).
package builder
