// Package engine contains the analysis orchestrator. For one request it
// selects the applicable recognizers, runs a single linguistic analysis pass,
// fans the recognizers out over that shared analysis, then merges,
// deduplicates and filters their findings. This package is internal;
// external consumers should use the stable facade in pkg/core.
package engine
