// Package extract turns a free-text question into a dal.FilterSet by asking a
// language model for a JSON object.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/llm"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxTokens = 200
	operation        = "extract"
	temperature      = 0
)

const promptTemplate = `
You are a filter-extraction assistant for car data queries.

Extract a valid lowercase JSON object from this user query.
Supported filters:
- brand, name, color, city, body_type
- min_price, max_price
- min_year, max_year
- min_mileage, max_mileage
- cylinders
- cylinder_size_liters

Values may be strings, numbers, or arrays if multiple choices apply.

Example:
User: "Show me red Toyotas or Kias in Riyadh or Abha under 200K with less than 100,000 km"
JSON:
{
  "brand": ["toyota", "kia"],
  "color": "red",
  "city": ["riyadh", "abha"],
  "max_price": 200000,
  "max_mileage": 100000
}

Now extract filters from:
"%s"

Return JSON only:
`

// Error reports why a question could not be turned into filters
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extractor asks the model for filters, once per question
type Extractor struct {
	model     llm.Completer
	maxTokens int
	log       zerolog.Logger
}

type Option func(*Extractor)

// WithMaxTokens bounds the size of the model reply
func WithMaxTokens(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

func New(model llm.Completer, log zerolog.Logger, opts ...Option) *Extractor {
	e := &Extractor{model: model, maxTokens: DefaultMaxTokens, log: log}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Prompt returns the instruction sent to the model for query
func Prompt(query string) string {
	return fmt.Sprintf(promptTemplate, query)
}

// Extract returns the filters for query. Any failure, from transport to a
// malformed reply, is an *Error.
func (e *Extractor) Extract(ctx context.Context, query string) (dal.FilterSet, error) {
	reply, err := e.model.Complete(ctx, llm.UserPrompt(operation, Prompt(query), temperature, e.maxTokens))
	if err != nil {
		return dal.FilterSet{}, &Error{Reason: err.Error(), Err: err}
	}
	fs, err := Parse(reply)
	if err != nil {
		e.log.Debug().Str("reply", reply).Msg("unparseable filter reply")
		return dal.FilterSet{}, err
	}
	return fs, nil
}

// Parse decodes the JSON object spanning the first '{' to the last '}' of text
func Parse(text string) (dal.FilterSet, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return dal.FilterSet{}, &Error{Reason: "no JSON object in model reply"}
	}
	var fs dal.FilterSet
	if err := json.Unmarshal([]byte(text[start:end+1]), &fs); err != nil {
		return dal.FilterSet{}, &Error{Reason: err.Error(), Err: err}
	}
	return fs, nil
}
