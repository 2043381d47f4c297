package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo() CompleterFunc {
	return func(ctx context.Context, req Request) (string, error) {
		return req.Messages[len(req.Messages)-1].Content, nil
	}
}

func TestUserPrompt(t *testing.T) {
	req := UserPrompt("extract", "show me kias", 0, 200)
	assert.Equal(t, "extract", req.Operation)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
	assert.Equal(t, 200, req.MaxTokens)
}

func TestLimitedPassesThrough(t *testing.T) {
	l := NewLimited(echo(), 0, 0)
	out, err := l.Complete(context.Background(), UserPrompt("x", "hello", 0, 10))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestLimitedHonoursContext(t *testing.T) {
	l := NewLimited(echo(), 0.001, 1)
	_, err := l.Complete(context.Background(), UserPrompt("x", "first", 0, 10))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Complete(ctx, UserPrompt("x", "second", 0, 10))
	assert.Error(t, err)
}

func TestInstrumentedCountsStatus(t *testing.T) {
	m := metrics.New()
	fail := CompleterFunc(func(ctx context.Context, req Request) (string, error) {
		return "", errors.New("boom")
	})

	_, err := NewInstrumented(fail, m, zerolog.Nop()).Complete(context.Background(), UserPrompt("summarize", "x", 0, 1))
	require.Error(t, err)
	_, err = NewInstrumented(echo(), m, zerolog.Nop()).Complete(context.Background(), UserPrompt("summarize", "x", 0, 1))
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(m.Registry(), "carchat_model_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
