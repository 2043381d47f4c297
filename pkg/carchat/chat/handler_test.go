package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/extract"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/llm"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/search"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/stats"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	fs    dal.FilterSet
	err   error
	calls []string
}

func (f *fakeExtractor) Extract(ctx context.Context, query string) (dal.FilterSet, error) {
	f.calls = append(f.calls, query)
	return f.fs, f.err
}

type countingSearcher struct {
	inner Searcher
	calls int
}

func (c *countingSearcher) Answer(ctx context.Context, fs dal.FilterSet, query string) (string, search.Result, error) {
	c.calls++
	return c.inner.Answer(ctx, fs, query)
}

type countingStats struct {
	inner Stats
	calls int
}

func (c *countingStats) CountByField(f dal.Field) []stats.Count {
	c.calls++
	return c.inner.CountByField(f)
}

func (c *countingStats) ExtremeValue(f dal.Field, m stats.Mode, e stats.Equals) (dal.Car, bool) {
	c.calls++
	return c.inner.ExtremeValue(f, m, e)
}

type fakeKeyword struct {
	reply string
	err   error
}

func (f fakeKeyword) Reply(ctx context.Context, q string) (string, error) {
	return f.reply, f.err
}

func fixture() *dal.Dataset {
	return dal.NewDataset(
		dal.NewCar(2020, "Toyota", "Camry", "Red", "Jeddah", "Sedan", 4, 2.5, 50000, 95000),
		dal.NewCar(2019, "Toyota", "Land Cruiser", "Blue", "Riyadh", "SUV", 8, 5.7, 12000, 210000),
		dal.NewCar(2022, "Kia", "Sportage", "White", "Riyadh", "SUV", 4, 2.0, 99000, 105000),
	)
}

type harness struct {
	handler   *Handler
	extractor *fakeExtractor
	searcher  *countingSearcher
	stats     *countingStats
	model     *[]llm.Request
	kinds     []Kind
}

func newHarness(t *testing.T, modelReply string, modelErr error) *harness {
	t.Helper()
	ds := fixture()
	var reqs []llm.Request
	model := llm.CompleterFunc(func(ctx context.Context, req llm.Request) (string, error) {
		reqs = append(reqs, req)
		return modelReply, modelErr
	})
	h := &harness{
		extractor: &fakeExtractor{},
		searcher: &countingSearcher{inner: search.NewService(
			search.NewMatcher(ds, 0), search.NewSummarizer(model, 0.5, 400), zerolog.Nop(), nil)},
		stats: &countingStats{inner: stats.New(ds)},
		model: &reqs,
	}
	h.handler = NewHandler(Config{
		Triggers:  DefaultTriggers(),
		Extractor: h.extractor,
		Searcher:  h.searcher,
		Stats:     h.stats,
		Log:       zerolog.Nop(),
		OnReply:   func(k Kind) { h.kinds = append(h.kinds, k) },
	})
	return h
}

func TestStandardFlow(t *testing.T) {
	h := newHarness(t, "We have a blue Land Cruiser in Riyadh.", nil)
	h.extractor.fs = dal.FilterSet{Color: dal.Candidates{"red", "blue"}, City: dal.Candidates{"riyadh"}}

	r := h.handler.Reply(context.Background(), "  red or blue cars in Riyadh ")
	assert.Equal(t, Reply{Text: "We have a blue Land Cruiser in Riyadh.", Kind: KindSummary}, r)
	assert.Equal(t, []string{"red or blue cars in Riyadh"}, h.extractor.calls)
	require.Len(t, *h.model, 1)
	assert.Contains(t, (*h.model)[0].Messages[0].Content, "Fallback level used: 1")
	assert.Equal(t, []Kind{KindSummary}, h.kinds)
}

func TestExtractionFailureShortCircuits(t *testing.T) {
	h := newHarness(t, "unused", nil)
	h.extractor.err = &extract.Error{Reason: "no JSON object in model reply"}

	r, err := h.handler.Handle(context.Background(), "show me something nice")
	require.Error(t, err)
	assert.Equal(t, KindExtractFailed, r.Kind)
	assert.Equal(t, "Sorry, I couldn't understand that request: no JSON object in model reply", r.Text)
	assert.Equal(t, 0, h.searcher.calls)
	assert.Equal(t, 0, h.stats.calls)
	assert.Empty(t, *h.model)
}

func TestSummaryFailure(t *testing.T) {
	h := newHarness(t, "", errors.New("insufficient quota"))

	r := h.handler.Reply(context.Background(), "any suv")
	assert.Equal(t, KindSummaryFailed, r.Kind)
	assert.Equal(t, "GPT error: insufficient quota", r.Text)
}

func TestTriggers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "CityCount",
			text: "How many cars in each city?",
			want: "Cars per city:\nRiyadh: 2\nJeddah: 1",
		},
		{
			name: "LowestMileage",
			text: "which car has the LOWEST MILEAGE",
			want: "Lowest mileage car:\n🚗 2019 Toyota Land Cruiser — Blue in Riyadh\n🛞 SUV | 8 cyl | 5.7L | 12,000 km\n💰 210,000 SAR",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, "unused", nil)
			r := h.handler.Reply(context.Background(), tc.text)
			assert.Equal(t, KindStats, r.Kind)
			assert.Equal(t, tc.want, r.Text)
			assert.Empty(t, h.extractor.calls)
			assert.Empty(t, *h.model)
		})
	}
}

func TestLowestMileageEmptyDataset(t *testing.T) {
	h := NewHandler(Config{Triggers: DefaultTriggers(), Stats: stats.New(dal.NewDataset()), Log: zerolog.Nop()})
	r := h.Reply(context.Background(), "lowest mileage")
	assert.Equal(t, noSuchRecord, r.Text)
}

func TestDebugTrigger(t *testing.T) {
	h := newHarness(t, "unused", nil)
	h.extractor.fs = dal.FilterSet{Brand: dal.Candidates{"kia"}}

	r := h.handler.Reply(context.Background(), "debug filters red kia in abha")
	assert.Equal(t, KindDebug, r.Kind)
	assert.JSONEq(t, `{"brand": ["kia"]}`, r.Text)
	assert.Equal(t, []string{"red kia in abha"}, h.extractor.calls)
	assert.Equal(t, 0, h.searcher.calls)
}

func TestDebugTriggerExtractionFailure(t *testing.T) {
	h := newHarness(t, "unused", nil)
	h.extractor.err = &extract.Error{Reason: "unexpected end of JSON input"}

	r, err := h.handler.Handle(context.Background(), "Debug Filters kia")
	require.Error(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(r.Text), &got))
	assert.Equal(t, "unexpected end of JSON input", got["__error__"])
}

func TestEmptyMessage(t *testing.T) {
	h := newHarness(t, "unused", nil)
	r := h.handler.Reply(context.Background(), "   ")
	assert.Equal(t, KindEmpty, r.Kind)
	assert.Empty(t, h.extractor.calls)
}

func TestKeywordMode(t *testing.T) {
	h := NewHandler(Config{Mode: ModeKeyword, Triggers: DefaultTriggers(), Keyword: fakeKeyword{reply: "Hello!"}, Log: zerolog.Nop()})
	assert.Equal(t, Reply{Text: "Hello!", Kind: KindKeyword}, h.Reply(context.Background(), "any camry?"))

	h = NewHandler(Config{Mode: ModeKeyword, Keyword: fakeKeyword{err: errors.New("timeout")}, Log: zerolog.Nop()})
	r, err := h.Handle(context.Background(), "any camry?")
	require.Error(t, err)
	assert.Equal(t, KindKeywordFailed, r.Kind)
	assert.Equal(t, "GPT error: timeout", r.Text)
}

func TestStripAll(t *testing.T) {
	assert.Equal(t, "red kia", stripAll("DEBUG FILTERS red kia", []string{"debug filters"}))
	assert.Equal(t, "a  b", stripAll("a x b x", []string{"x", ""}))

	tests := []struct {
		in   string
		want string
	}{
		{"ȺȺȺȺ debug filters", "ȺȺȺȺ"},
		{"ȺȺ debug filters kia", "ȺȺ  kia"},
		{"İİ debug filters kia", "İİ  kia"},
	}
	for _, tc := range tests {
		got := stripAll(tc.in, []string{"debug filters"})
		assert.Equal(t, tc.want, got, tc.in)
		assert.True(t, utf8.ValidString(got), tc.in)
	}
}

func TestDebugTriggerMultibyteText(t *testing.T) {
	h := newHarness(t, "unused", nil)
	h.extractor.fs = dal.FilterSet{Brand: dal.Candidates{"kia"}}

	r := h.handler.Reply(context.Background(), "ȺȺȺȺ debug filters")
	assert.Equal(t, KindDebug, r.Kind)
	assert.Equal(t, []string{"ȺȺȺȺ"}, h.extractor.calls)
}
