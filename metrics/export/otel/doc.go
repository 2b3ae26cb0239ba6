// Package otel bridges engine metrics into an OpenTelemetry meter through
// observable instruments; values are pulled from snapshots on collection.
package otel
