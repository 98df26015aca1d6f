package services

import "context"

type contextKey int

const (
	runIDKey contextKey = iota
	speakerKey
	sampleKey
	stageKey
)

// WithRunID attaches a run correlation identifier to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts a run correlation identifier, if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithSpeaker attaches a speaker identifier to the context.
func WithSpeaker(ctx context.Context, speakerID string) context.Context {
	return context.WithValue(ctx, speakerKey, speakerID)
}

// SpeakerFromContext extracts a speaker identifier, if present.
func SpeakerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(speakerKey).(string)
	return id, ok && id != ""
}

// WithSample attaches the path of the sample being processed to the context.
func WithSample(ctx context.Context, samplePath string) context.Context {
	return context.WithValue(ctx, sampleKey, samplePath)
}

// SampleFromContext extracts the sample path, if present.
func SampleFromContext(ctx context.Context) (string, bool) {
	path, ok := ctx.Value(sampleKey).(string)
	return path, ok && path != ""
}

// WithStage attaches a pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext extracts the pipeline stage name, if present.
func StageFromContext(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(stageKey).(string)
	return stage, ok && stage != ""
}
