package cmd

import (
	"fmt"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/chat"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/config"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/extract"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/keyword"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/llm"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/llm/openai"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/metrics"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/search"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/server"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/stats"
	"github.com/rs/zerolog"
)

// app holds the components shared by every command
type app struct {
	data    *dal.Dataset
	metrics *metrics.Metrics
	matcher *search.Matcher
	stats   *stats.Engine
	// search and chat are nil when no model is configured
	search *search.Service
	chat   *chat.Handler
	log    zerolog.Logger
}

// newApp loads the dataset and builds the offline components
func newApp(c config.Config, log zerolog.Logger) (*app, error) {
	data, err := dal.Load(c.Data)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", c.Data).Int("cars", data.Len()).Msg("dataset loaded")

	return &app{
		data:    data,
		metrics: metrics.New(),
		matcher: search.NewMatcher(data, c.Search.MaxCombinations),
		stats:   stats.New(data),
		log:     log,
	}, nil
}

// withModel wires the model-backed components on top of a
func (a *app) withModel(c config.Config) error {
	if err := c.ValidateModel(); err != nil {
		return err
	}
	return a.withCompleter(c, openai.New(openai.Config{
		APIKey:  c.LLM.APIKey,
		BaseURL: c.LLM.BaseURL,
		Model:   c.LLM.Model,
		Timeout: c.LLM.Timeout,
	}, a.log))
}

func (a *app) withCompleter(c config.Config, base llm.Completer) error {
	model := llm.NewLimited(
		llm.NewInstrumented(base, a.metrics, a.log),
		c.LLM.RatePerSecond, c.LLM.Burst)

	a.search = search.NewService(
		a.matcher,
		search.NewSummarizer(model, c.LLM.SummaryTemp, c.LLM.SummaryMaxTokens),
		a.log,
		func(r search.Result) { a.metrics.FallbackLevel(r.Level) })

	handler := chat.Config{
		Mode:      c.Chat.Mode,
		Triggers:  c.Chat.Triggers,
		Extractor: extract.New(model, a.log, extract.WithMaxTokens(c.LLM.ExtractMaxTokens)),
		Searcher:  a.search,
		Stats:     a.stats,
		Log:       a.log,
		OnReply:   func(k chat.Kind) { a.metrics.Reply(string(k)) },
	}
	switch c.Chat.Mode {
	case chat.ModeFilters:
	case chat.ModeKeyword:
		handler.Keyword = keyword.New(a.data, model, c.Chat.Team)
	default:
		return fmt.Errorf("unknown chat mode %q", c.Chat.Mode)
	}
	a.chat = chat.NewHandler(handler)
	return nil
}

// deps returns the HTTP dependencies. /ask is only served with a model.
func (a *app) deps() server.Deps {
	d := server.Deps{
		Stats:   a.stats,
		Metrics: a.metrics,
		Log:     a.log,
		Search:  a.matcher,
	}
	if a.search != nil {
		d.Search = a.search
	}
	if a.chat != nil {
		d.Chat = a.chat
	}
	return d
}
