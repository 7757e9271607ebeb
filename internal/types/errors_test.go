package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	platformErr := errors.New("upstream 500")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"all feeds failed", fmt.Errorf("fetch: %w", ErrAllFeedsFailed), ExitFetchFailed},
		{"no trends", ErrNoTrends, ExitNoTrends},
		{"render", &RenderError{Slide: 3, Err: errors.New("boom")}, ExitRender},
		{"write", fmt.Errorf("output: %w", &WriteError{Path: "out", Err: errors.New("disk full")}), ExitRender},
		{"publish", &PublishError{Stage: "upload", Err: platformErr}, ExitPublish},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), ExitInterrupted},
		{"other", errors.New("bad config"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestPublishErrorPreservesCause(t *testing.T) {
	platformErr := errors.New("rate limited")
	err := fmt.Errorf("run: %w", &PublishError{Stage: "create record", Err: platformErr})

	assert.ErrorIs(t, err, platformErr)
	assert.Contains(t, err.Error(), "create record")
}

func TestIsFetchError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &FetchError{Source: "hn", URL: "https://hn.example/rss", Err: errors.New("timeout")})

	assert.True(t, IsFetchError(err))
	assert.False(t, IsFetchError(errors.New("plain")))
}

func TestTrendSources(t *testing.T) {
	trend := Trend{Articles: []Article{
		{Source: "Ars"}, {Source: "Verge"}, {Source: "Ars"}, {Source: ""},
	}}

	assert.Equal(t, []string{"Ars", "Verge"}, trend.Sources())
}
