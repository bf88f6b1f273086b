// Package otel provides an OpenTelemetry observer plugin for the scope library.
// It records scope lifecycle as low-overhead span events (scope.created,
// scope.cancelled, scope.joined, scope.task.started, scope.task.finished) on
// whatever span the scope's context carries.
package otel
