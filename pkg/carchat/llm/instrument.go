package llm

import (
	"context"
	"time"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/metrics"
	"github.com/rs/zerolog"
)

// Instrumented logs and counts every call to the wrapped completer
type Instrumented struct {
	next    Completer
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewInstrumented(next Completer, m *metrics.Metrics, log zerolog.Logger) *Instrumented {
	return &Instrumented{next: next, metrics: m, log: log}
}

func (i *Instrumented) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := i.next.Complete(ctx, req)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		i.log.Warn().Err(err).Str("op", req.Operation).Dur("took", elapsed).Msg("model call failed")
	} else {
		i.log.Debug().Str("op", req.Operation).Dur("took", elapsed).Int("chars", len(out)).Msg("model call")
	}
	if i.metrics != nil {
		i.metrics.ModelCall(req.Operation, status, elapsed)
	}
	return out, err
}
