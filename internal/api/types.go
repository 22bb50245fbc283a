package api

import (
	"time"

	"vidresume/internal/intervals"
	"vidresume/internal/pipeline"
	"vidresume/internal/store"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	UptimeS int64  `json:"uptimeSeconds"`
	PID     int    `json:"pid"`
}

// StageStatus is the transport view of a pipeline stage.
type StageStatus struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Restart   bool   `json:"restartRequested"`
	Progress  int    `json:"progress"`
	RunID     string `json:"runId,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Error     string `json:"error,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// RunRecord is the transport view of a journaled stage pass.
type RunRecord struct {
	ID           string `json:"id"`
	Stage        string `json:"stage"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	ErrorKind    string `json:"errorKind,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	StartedAt    string `json:"startedAt"`
	FinishedAt   string `json:"finishedAt,omitempty"`
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	VideoPath  string               `json:"videoPath"`
	OutputPath string               `json:"outputPath"`
	ResumeMode int                  `json:"resumeMode"`
	Stages     []StageStatus        `json:"stages"`
	Runs       []RunRecord          `json:"runs"`
	Resume     []intervals.Interval `json:"resume"`
}

// StageActionResponse acknowledges a control request.
type StageActionResponse struct {
	Stage  string      `json:"stage"`
	Action string      `json:"action"`
	Status StageStatus `json:"status"`
}

// ErrorResponse is returned for failed requests.
// VideosResponse is the /videos payload.
type VideosResponse struct {
	Videos []string `json:"videos"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// FromSnapshot converts a stage snapshot.
func FromSnapshot(s pipeline.Snapshot) StageStatus {
	return StageStatus{
		Name:      s.Name,
		State:     string(s.State),
		Restart:   s.Restart,
		Progress:  s.Progress,
		RunID:     s.RunID,
		ErrorKind: s.ErrorKind,
		Error:     s.Error,
		UpdatedAt: formatTime(s.UpdatedAt),
	}
}

// FromRun converts a stored run.
func FromRun(r store.Run) RunRecord {
	rec := RunRecord{
		ID:           r.ID,
		Stage:        r.Stage,
		Status:       string(r.Status),
		Progress:     r.Progress,
		ErrorKind:    r.ErrorKind,
		ErrorMessage: r.ErrorMessage,
		StartedAt:    formatTime(r.StartedAt),
	}
	if r.FinishedAt != nil {
		rec.FinishedAt = formatTime(*r.FinishedAt)
	}
	return rec
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
