// Package search applies a FilterSet to the dataset, relaxing the categorical
// filters one combination at a time until something matches, and asks the
// model to summarize what was found.
package search

import (
	"strings"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
)

// DefaultMaxCombinations caps how many categorical combinations one search may try
const DefaultMaxCombinations = 256

// Wildcard marks a dimension without a constraint inside a Combination
const Wildcard = ""

// Combination is one candidate per categorical dimension, in dal.Categorical order
type Combination [5]string

// Result defines the outcome of a search
type Result struct {
	Cars []dal.Car `json:"cars"`
	// Level is the index of the combination that produced Cars, or of the last
	// combination tried when nothing matched
	Level    int `json:"level"`
	Attempts int `json:"attempts"`
}

// Total returns the number of matching cars
func (r Result) Total() int {
	return len(r.Cars)
}

// Top returns at most n matches in dataset order
func (r Result) Top(n int) []dal.Car {
	if n >= 0 && len(r.Cars) > n {
		return r.Cars[:n]
	}
	return r.Cars
}

// Matcher runs fallback searches over a dataset
type Matcher struct {
	cars            *dal.Dataset
	maxCombinations int
}

// NewMatcher returns a matcher over cars. A non-positive cap uses DefaultMaxCombinations.
func NewMatcher(cars *dal.Dataset, maxCombinations int) *Matcher {
	if maxCombinations <= 0 {
		maxCombinations = DefaultMaxCombinations
	}
	return &Matcher{cars: cars, maxCombinations: maxCombinations}
}

// Search returns the matches of the first combination, in product order, that
// matches at least one car passing the numeric bounds of fs.
func (m *Matcher) Search(fs dal.FilterSet) Result {
	eligible := m.cars.Filter(func(c dal.Car) bool { return boundsMatch(c, fs) })

	var res Result
	Combinations(fs, m.maxCombinations, func(i int, combo Combination) bool {
		res.Level = i
		res.Attempts = i + 1
		var matches []dal.Car
		for _, c := range eligible {
			if combo.Matches(c) {
				matches = append(matches, c)
			}
		}
		if len(matches) > 0 {
			res.Cars = matches
			return false
		}
		return true
	})
	return res
}

// Combinations calls fn with every combination of fs candidates in Cartesian
// product order, the last dimension varying fastest, until fn returns false or
// limit combinations were produced. Absent dimensions contribute a Wildcard.
func Combinations(fs dal.FilterSet, limit int, fn func(i int, combo Combination) bool) {
	var lists [5][]string
	for d, f := range dal.Categorical {
		lists[d] = fs.Candidates(f)
		if len(lists[d]) == 0 {
			lists[d] = []string{Wildcard}
		}
	}

	var idx [5]int
	for i := 0; i < limit; i++ {
		var combo Combination
		for d := range lists {
			combo[d] = lists[d][idx[d]]
		}
		if !fn(i, combo) {
			return
		}
		d := len(idx) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(lists[d]) {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}

// Matches reports whether every non-wildcard dimension equals the car's value,
// ignoring case and surrounding whitespace. Absent fields never match.
func (combo Combination) Matches(c dal.Car) bool {
	for d, want := range combo {
		if want == Wildcard {
			continue
		}
		got, ok := c.Text(dal.Categorical[d])
		if !ok || normalize(got) != normalize(want) {
			return false
		}
	}
	return true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// boundsMatch applies the numeric constraints of fs. Missing car fields count as 0.
func boundsMatch(c dal.Car, fs dal.FilterSet) bool {
	return minMatch(c, dal.FieldPrice, fs.MinPrice) &&
		maxMatch(c, dal.FieldPrice, fs.MaxPrice) &&
		minMatch(c, dal.FieldYear, fs.MinYear) &&
		maxMatch(c, dal.FieldYear, fs.MaxYear) &&
		minMatch(c, dal.FieldMileage, fs.MinMileage) &&
		maxMatch(c, dal.FieldMileage, fs.MaxMileage) &&
		exactMatch(c, dal.FieldCylinders, fs.Cylinders) &&
		exactMatch(c, dal.FieldCylinderSizeLiters, fs.CylinderSizeLiters)
}

func minMatch(c dal.Car, f dal.Field, bound *float64) bool {
	return bound == nil || c.NumberOr0(f) >= *bound
}

func maxMatch(c dal.Car, f dal.Field, bound *float64) bool {
	return bound == nil || c.NumberOr0(f) <= *bound
}

func exactMatch(c dal.Car, f dal.Field, want *float64) bool {
	return want == nil || c.NumberOr0(f) == *want
}
