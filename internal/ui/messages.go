package ui

import "github.com/ab-esl-ai/caption-gateway/internal/session"

// ControllerEventMsg wraps one event from the session controller.
type ControllerEventMsg struct {
	Event session.Event
}

// StartResultMsg carries the outcome of a start or restart action.
type StartResultMsg struct {
	Err error
}

// ExportResultMsg carries the outcome of a CSV export.
type ExportResultMsg struct {
	Path string
	Err  error
}

// ClearNoticeMsg clears the transient notice line.
type ClearNoticeMsg struct{}
