package types

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrAllFeedsFailed = errors.New("every configured feed failed to fetch")
	ErrNoTrends       = errors.New("no trends found")
)

const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitFetchFailed = 2
	ExitNoTrends    = 3
	ExitRender      = 4
	ExitPublish     = 5
	ExitInterrupted = 130
)

// FetchError is a per-source failure. The fetcher logs and skips it.
type FetchError struct {
	Source string
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("analysis: %s", e.Reason)
	}
	return fmt.Sprintf("analysis: %s: %v", e.Reason, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// RenderError aborts the run before anything is published. Slide is the
// index of the slide that failed, or -1 when no single slide is at fault.
type RenderError struct {
	Slide int
	Err   error
}

func (e *RenderError) Error() string {
	if e.Slide < 0 {
		return fmt.Sprintf("render: %v", e.Err)
	}
	return fmt.Sprintf("render slide %d: %v", e.Slide, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// WriteError is a failure to persist rendered slides to the output directory.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// PublishError keeps the platform error reachable through errors.Unwrap.
type PublishError struct {
	Stage string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish (%s): %v", e.Stage, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		renderErr  *RenderError
		writeErr   *WriteError
		publishErr *PublishError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, ErrAllFeedsFailed):
		return ExitFetchFailed
	case errors.Is(err, ErrNoTrends):
		return ExitNoTrends
	case errors.As(err, &renderErr), errors.As(err, &writeErr):
		return ExitRender
	case errors.As(err, &publishErr):
		return ExitPublish
	default:
		return ExitFailure
	}
}
