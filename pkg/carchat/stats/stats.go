// Package stats holds the deterministic aggregations over the car dataset.
// Nothing here calls the language model.
package stats

import (
	"sort"
	"strings"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
)

// Mode selects the minimum or maximum in ExtremeValue
type Mode string

const (
	ModeMin Mode = "min"
	ModeMax Mode = "max"
)

// Count is one row of a frequency table
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Equals is an exact, case-sensitive equality filter on field values
type Equals map[dal.Field]string

// Match reports whether c has every field in e with exactly that value
func (e Equals) Match(c dal.Car) bool {
	for f, want := range e {
		got, ok := c.Text(f)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Engine answers statistics questions over a dataset
type Engine struct {
	cars *dal.Dataset
}

func New(cars *dal.Dataset) *Engine {
	return &Engine{cars: cars}
}

// CountByField returns the frequency of each present value of field, most
// frequent first. Ties keep the order in which values were first seen.
func (e *Engine) CountByField(field dal.Field) []Count {
	return countBy(e.cars.Filter(func(dal.Car) bool { return true }), field)
}

// CountByFieldInCity is CountByField over cars whose city equals city, ignoring case
func (e *Engine) CountByFieldInCity(field dal.Field, city string) []Count {
	return countBy(e.cars.Filter(func(c dal.Car) bool {
		got, ok := c.Text(dal.FieldCity)
		return ok && strings.EqualFold(got, city)
	}), field)
}

// CountFieldsSummary returns CountByField for each of fields
func (e *Engine) CountFieldsSummary(fields ...dal.Field) map[dal.Field][]Count {
	out := make(map[dal.Field][]Count, len(fields))
	for _, f := range fields {
		out[f] = e.CountByField(f)
	}
	return out
}

func countBy(cars []dal.Car, field dal.Field) []Count {
	index := make(map[string]int)
	var counts []Count
	for _, c := range cars {
		v, ok := c.Text(field)
		if !ok {
			continue
		}
		if i, seen := index[v]; seen {
			counts[i].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, Count{Value: v, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// ExtremeValue returns the car with the lowest or highest value of a numeric
// field among cars matching filters. The first car wins ties. ok is false when
// no car qualifies.
func (e *Engine) ExtremeValue(field dal.Field, mode Mode, filters Equals) (best dal.Car, ok bool) {
	var bestV float64
	e.cars.Each(func(_ int, c dal.Car) bool {
		if !filters.Match(c) {
			return true
		}
		v, has := c.Number(field)
		if !has {
			return true
		}
		if !ok || (mode == ModeMax && v > bestV) || (mode != ModeMax && v < bestV) {
			best, bestV, ok = c, v, true
		}
		return true
	})
	return best, ok
}

// AverageValue returns the mean of a numeric field over matching cars. ok is
// false when no car qualifies.
func (e *Engine) AverageValue(field dal.Field, filters Equals) (avg float64, ok bool) {
	var sum float64
	var n int
	e.cars.Each(func(_ int, c dal.Car) bool {
		if !filters.Match(c) {
			return true
		}
		if v, has := c.Number(field); has {
			sum += v
			n++
		}
		return true
	})
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// CarsInPriceRange returns matching cars priced within [lo, hi]. A missing
// price counts as 0.
func (e *Engine) CarsInPriceRange(lo, hi float64, filters Equals) []dal.Car {
	return e.cars.Filter(func(c dal.Car) bool {
		p := c.NumberOr0(dal.FieldPrice)
		return p >= lo && p <= hi && filters.Match(c)
	})
}
