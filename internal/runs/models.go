package runs

import "time"

// Kind distinguishes the pipeline stages that record runs.
type Kind string

const (
	KindPreprocess Kind = "preprocess"
	KindTrain      Kind = "train"
	KindPredict    Kind = "predict"
)

// Status represents the lifecycle of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one recorded invocation of a pipeline stage.
type Run struct {
	ID            int64
	CorrelationID string
	Kind          Kind
	Root          string
	Status        Status
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SampleStatus records the outcome of one prediction sample.
type SampleStatus string

const (
	SampleSucceeded SampleStatus = "succeeded"
	SampleFailed    SampleStatus = "failed"
)

// SampleRecord is the durable outcome of one (video, speech, noise) triple
// within a prediction run.
type SampleRecord struct {
	ID           int64
	RunID        int64
	Speaker      string
	VideoPath    string
	SpeechPath   string
	NoisePath    string
	Status       SampleStatus
	ErrorMessage string
	Loss         *float64
	OutputDir    string
	CreatedAt    time.Time
}
