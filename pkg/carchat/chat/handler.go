// Package chat routes one inbound message to the statistics engine, the
// filter pipeline or the keyword assistant and produces one reply.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/extract"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/search"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/stats"
	"github.com/rs/zerolog"
)

// Kind classifies a reply
type Kind string

const (
	KindEmpty         Kind = "empty"
	KindStats         Kind = "stats"
	KindDebug         Kind = "debug"
	KindSummary       Kind = "summary"
	KindKeyword       Kind = "keyword"
	KindExtractFailed Kind = "extract_failed"
	KindSummaryFailed Kind = "summary_failed"
	KindKeywordFailed Kind = "keyword_failed"
)

const (
	ModeFilters = "filters"
	ModeKeyword = "keyword"

	askForQuestion = "Please ask me a question about the cars we have in stock."
	noSuchRecord   = "I couldn't find any matching cars."
)

// Reply is the answer to one message
type Reply struct {
	Text string `json:"reply"`
	Kind Kind   `json:"kind"`
}

// Triggers are the phrases that bypass the model, matched as case-insensitive substrings
type Triggers struct {
	CityCount     []string `mapstructure:"city_count"`
	LowestMileage []string `mapstructure:"lowest_mileage"`
	Debug         []string `mapstructure:"debug"`
}

// DefaultTriggers returns the built-in trigger phrases
func DefaultTriggers() Triggers {
	return Triggers{
		CityCount:     []string{"cars per city", "how many cars in each city"},
		LowestMileage: []string{"lowest mileage"},
		Debug:         []string{"debug filters"},
	}
}

// Extractor turns a question into filters
type Extractor interface {
	Extract(ctx context.Context, query string) (dal.FilterSet, error)
}

// Searcher finds and summarizes cars for a filter set
type Searcher interface {
	Answer(ctx context.Context, fs dal.FilterSet, query string) (string, search.Result, error)
}

// Stats is the part of the statistics engine the handler uses
type Stats interface {
	CountByField(field dal.Field) []stats.Count
	ExtremeValue(field dal.Field, mode stats.Mode, filters stats.Equals) (dal.Car, bool)
}

// KeywordResponder answers with plain keyword matching
type KeywordResponder interface {
	Reply(ctx context.Context, question string) (string, error)
}

// Handler answers chat messages
type Handler struct {
	mode      string
	triggers  Triggers
	extractor Extractor
	searcher  Searcher
	stats     Stats
	keyword   KeywordResponder
	log       zerolog.Logger
	onReply   func(Kind)
}

// Config wires a Handler
type Config struct {
	Mode      string
	Triggers  Triggers
	Extractor Extractor
	Searcher  Searcher
	Stats     Stats
	Keyword   KeywordResponder
	Log       zerolog.Logger
	// OnReply is called with the kind of every reply, e.g. to count them
	OnReply func(Kind)
}

func NewHandler(cfg Config) *Handler {
	if cfg.Mode == "" {
		cfg.Mode = ModeFilters
	}
	return &Handler{
		mode:      cfg.Mode,
		triggers:  cfg.Triggers,
		extractor: cfg.Extractor,
		searcher:  cfg.Searcher,
		stats:     cfg.Stats,
		keyword:   cfg.Keyword,
		log:       cfg.Log,
		onReply:   cfg.OnReply,
	}
}

// Reply answers text. It never fails; failures become the reply text.
func (h *Handler) Reply(ctx context.Context, text string) Reply {
	r, err := h.Handle(ctx, text)
	if err != nil {
		h.log.Warn().Err(err).Str("kind", string(r.Kind)).Msg("reply degraded")
	}
	if h.onReply != nil {
		h.onReply(r.Kind)
	}
	return r
}

// Handle answers text. When err is not nil the returned Reply still carries
// the user-facing failure message.
func (h *Handler) Handle(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Text: askForQuestion, Kind: KindEmpty}, nil
	}
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, h.triggers.CityCount):
		return Reply{Text: formatCounts("Cars per city", h.stats.CountByField(dal.FieldCity)), Kind: KindStats}, nil
	case containsAny(lower, h.triggers.LowestMileage):
		car, ok := h.stats.ExtremeValue(dal.FieldMileage, stats.ModeMin, nil)
		if !ok {
			return Reply{Text: noSuchRecord, Kind: KindStats}, nil
		}
		return Reply{Text: "Lowest mileage car:\n" + search.FormatCar(car), Kind: KindStats}, nil
	case containsAny(lower, h.triggers.Debug):
		return h.debug(ctx, stripAll(text, h.triggers.Debug))
	}

	if h.mode == ModeKeyword {
		out, err := h.keyword.Reply(ctx, text)
		if err != nil {
			return Reply{Text: "GPT error: " + err.Error(), Kind: KindKeywordFailed}, err
		}
		return Reply{Text: out, Kind: KindKeyword}, nil
	}

	fs, err := h.extractor.Extract(ctx, text)
	if err != nil {
		return Reply{Text: extractFailure(err), Kind: KindExtractFailed}, err
	}
	out, res, err := h.searcher.Answer(ctx, fs, text)
	if err != nil {
		return Reply{Text: summaryFailure(err), Kind: KindSummaryFailed}, err
	}
	h.log.Info().Int("level", res.Level).Int("matches", res.Total()).Msg("answered")
	return Reply{Text: out, Kind: KindSummary}, nil
}

func (h *Handler) debug(ctx context.Context, query string) (Reply, error) {
	var v interface{}
	fs, err := h.extractor.Extract(ctx, query)
	if err != nil {
		v = map[string]string{"__error__": err.Error()}
	} else {
		v = fs
	}
	b, merr := json.MarshalIndent(v, "", "  ")
	if merr != nil {
		return Reply{}, fmt.Errorf("marshal filters: %w", merr)
	}
	return Reply{Text: string(b), Kind: KindDebug}, err
}

func extractFailure(err error) string {
	reason := err.Error()
	var xerr *extract.Error
	if errors.As(err, &xerr) {
		reason = xerr.Reason
	}
	return "Sorry, I couldn't understand that request: " + reason
}

func summaryFailure(err error) string {
	var serr *search.SummaryError
	if errors.As(err, &serr) {
		return serr.Error()
	}
	return "GPT error: " + err.Error()
}

func formatCounts(title string, counts []stats.Count) string {
	if len(counts) == 0 {
		return noSuchRecord
	}
	lines := make([]string, 0, len(counts)+1)
	lines = append(lines, title+":")
	for _, c := range counts {
		lines = append(lines, fmt.Sprintf("%s: %d", c.Value, c.Count))
	}
	return strings.Join(lines, "\n")
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// stripAll removes every phrase from text, ignoring case
func stripAll(text string, phrases []string) string {
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(p))
		for re.MatchString(text) {
			text = re.ReplaceAllString(text, "")
		}
	}
	return strings.TrimSpace(text)
}
