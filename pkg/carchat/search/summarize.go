package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/llm"
	"github.com/rs/zerolog"
)

const (
	DefaultSummaryTemperature = 0.5
	DefaultSummaryMaxTokens   = 400
	operation                 = "summarize"
)

const summaryTemplate = `
You're a helpful car assistant.

User query: "%s"
Total matches: %d
Fallback level used: %s

---
%s
---

Reply clearly and mention fallback logic if used. Be conversational and concise.
`

// SummaryError reports a failed summarization call
type SummaryError struct {
	Err error
}

func (e *SummaryError) Error() string {
	return "GPT error: " + e.Err.Error()
}

func (e *SummaryError) Unwrap() error {
	return e.Err
}

// Summarizer asks the model to turn a search Result into a reply
type Summarizer struct {
	model       llm.Completer
	temperature float32
	maxTokens   int
}

func NewSummarizer(model llm.Completer, temperature float32, maxTokens int) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = DefaultSummaryMaxTokens
	}
	return &Summarizer{model: model, temperature: temperature, maxTokens: maxTokens}
}

// FallbackLabel describes a fallback level for the model
func FallbackLabel(level int) string {
	if level <= 0 {
		return "Primary filters"
	}
	return strconv.Itoa(level)
}

// SummaryPrompt builds the second-stage prompt for query and res
func SummaryPrompt(query string, res Result) string {
	return fmt.Sprintf(summaryTemplate, query, res.Total(), FallbackLabel(res.Level),
		Block(res.Top(SummaryLimit), SummaryLimit, FormatCar))
}

// Summarize returns the model's conversational reply for res. Failures are *SummaryError.
func (s *Summarizer) Summarize(ctx context.Context, query string, res Result) (string, error) {
	out, err := s.model.Complete(ctx, llm.UserPrompt(operation, SummaryPrompt(query, res), s.temperature, s.maxTokens))
	if err != nil {
		return "", &SummaryError{Err: err}
	}
	return out, nil
}

// Service combines matching and summarization
type Service struct {
	matcher    *Matcher
	summarizer *Summarizer
	log        zerolog.Logger
	onResult   func(Result)
}

func NewService(m *Matcher, s *Summarizer, log zerolog.Logger, onResult func(Result)) *Service {
	return &Service{matcher: m, summarizer: s, log: log, onResult: onResult}
}

// Search runs the fallback matcher only
func (s *Service) Search(fs dal.FilterSet) Result {
	res := s.matcher.Search(fs)
	s.log.Debug().
		Int("level", res.Level).
		Int("attempts", res.Attempts).
		Int("matches", res.Total()).
		Msg("fallback search")
	if s.onResult != nil {
		s.onResult(res)
	}
	return res
}

// Answer searches with fs and summarizes the result for query
func (s *Service) Answer(ctx context.Context, fs dal.FilterSet, query string) (string, Result, error) {
	res := s.Search(fs)
	out, err := s.summarizer.Summarize(ctx, query, res)
	return out, res, err
}

// SearchAndSummarize always returns reply text; a failed summary becomes its error message
func (s *Service) SearchAndSummarize(ctx context.Context, fs dal.FilterSet, query string) string {
	out, _, err := s.Answer(ctx, fs, query)
	if err != nil {
		var serr *SummaryError
		if errors.As(err, &serr) {
			return serr.Error()
		}
		return "GPT error: " + err.Error()
	}
	return out
}
