// Package core provides a small, stable facade over piiscan's internal
// analyzer for external integrations. It re-exports a narrow API surface so
// other programs can depend on a stable import path without importing
// internal packages.
//
// Example:
//
//	a, err := core.New(core.Options{})
//	if err != nil { /* handle */ }
//	findings, err := a.Analyze(ctx, core.Request{Text: "My SSN is 078-05-1120"})
//	if err != nil { /* handle */ }
//	_ = core.MarshalFindings(os.Stdout, findings)
package core
