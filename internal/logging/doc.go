// Package logging builds the application's slog loggers with console and
// JSON handlers, and defines the standardized structured field names used
// across the pipeline.
package logging
