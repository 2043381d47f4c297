package dal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Candidates is the list of accepted values for one categorical dimension.
// A scalar in JSON decodes as a single candidate.
type Candidates []string

// UnmarshalJSON accepts a string, a number, or an array of either
func (c *Candidates) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		out := make(Candidates, 0, len(items))
		for _, item := range items {
			s, err := scalarString(item)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		*c = out
		return nil
	}
	s, err := scalarString(b)
	if err != nil {
		return err
	}
	*c = Candidates{s}
	return nil
}

func scalarString(b []byte) (string, error) {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("expected string or number, got %s", string(b))
}

// Categorical lists the dimensions in fallback precedence order
var Categorical = []Field{FieldBrand, FieldName, FieldColor, FieldCity, FieldBodyType}

// FilterSet holds the structured constraints extracted from a question.
// A nil or empty entry means no constraint on that dimension.
type FilterSet struct {
	Brand    Candidates `json:"brand,omitempty"`
	Name     Candidates `json:"name,omitempty"`
	Color    Candidates `json:"color,omitempty"`
	City     Candidates `json:"city,omitempty"`
	BodyType Candidates `json:"body_type,omitempty"`

	MinPrice           *float64 `json:"min_price,omitempty"`
	MaxPrice           *float64 `json:"max_price,omitempty"`
	MinYear            *float64 `json:"min_year,omitempty"`
	MaxYear            *float64 `json:"max_year,omitempty"`
	MinMileage         *float64 `json:"min_mileage,omitempty"`
	MaxMileage         *float64 `json:"max_mileage,omitempty"`
	Cylinders          *float64 `json:"cylinders,omitempty"`
	CylinderSizeLiters *float64 `json:"cylinder_size_liters,omitempty"`
}

// Candidates returns the candidate list for a categorical field
func (fs FilterSet) Candidates(f Field) Candidates {
	switch f {
	case FieldBrand:
		return fs.Brand
	case FieldName:
		return fs.Name
	case FieldColor:
		return fs.Color
	case FieldCity:
		return fs.City
	case FieldBodyType:
		return fs.BodyType
	}
	return nil
}

// SetCandidates replaces the candidate list for a categorical field
func (fs *FilterSet) SetCandidates(f Field, c Candidates) error {
	switch f {
	case FieldBrand:
		fs.Brand = c
	case FieldName:
		fs.Name = c
	case FieldColor:
		fs.Color = c
	case FieldCity:
		fs.City = c
	case FieldBodyType:
		fs.BodyType = c
	default:
		return fmt.Errorf("%w: %s is not categorical", ErrUnknownField, f)
	}
	return nil
}

// Bound names a numeric constraint key
type Bound string

const (
	BoundMinPrice           Bound = "min_price"
	BoundMaxPrice           Bound = "max_price"
	BoundMinYear            Bound = "min_year"
	BoundMaxYear            Bound = "max_year"
	BoundMinMileage         Bound = "min_mileage"
	BoundMaxMileage         Bound = "max_mileage"
	BoundCylinders          Bound = "cylinders"
	BoundCylinderSizeLiters Bound = "cylinder_size_liters"
)

// Bounds lists every numeric constraint key
var Bounds = []Bound{
	BoundMinPrice, BoundMaxPrice, BoundMinYear, BoundMaxYear,
	BoundMinMileage, BoundMaxMileage, BoundCylinders, BoundCylinderSizeLiters,
}

func (fs *FilterSet) bound(b Bound) **float64 {
	switch b {
	case BoundMinPrice:
		return &fs.MinPrice
	case BoundMaxPrice:
		return &fs.MaxPrice
	case BoundMinYear:
		return &fs.MinYear
	case BoundMaxYear:
		return &fs.MaxYear
	case BoundMinMileage:
		return &fs.MinMileage
	case BoundMaxMileage:
		return &fs.MaxMileage
	case BoundCylinders:
		return &fs.Cylinders
	case BoundCylinderSizeLiters:
		return &fs.CylinderSizeLiters
	}
	return nil
}

// SetBound sets a numeric constraint
func (fs *FilterSet) SetBound(b Bound, v float64) error {
	p := fs.bound(b)
	if p == nil {
		return fmt.Errorf("unknown bound %q", b)
	}
	*p = &v
	return nil
}

// Bound returns the numeric constraint b and whether it is set
func (fs FilterSet) Bound(b Bound) (float64, bool) {
	p := fs.bound(b)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// Empty reports whether the set constrains nothing
func (fs FilterSet) Empty() bool {
	for _, f := range Categorical {
		if len(fs.Candidates(f)) > 0 {
			return false
		}
	}
	for _, b := range Bounds {
		if _, ok := fs.Bound(b); ok {
			return false
		}
	}
	return true
}

// UnmarshalJSON decodes filters leniently: bounds may be numbers or numeric
// strings, unknown keys are ignored and a null value means no constraint.
func (fs *FilterSet) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*fs = FilterSet{}
	for key, v := range raw {
		key = strings.ToLower(strings.TrimSpace(key))
		if string(bytes.TrimSpace(v)) == "null" {
			continue
		}
		if f, err := ParseField(key); err == nil && !f.Numeric() {
			var c Candidates
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("filter %s: %w", key, err)
			}
			if err := fs.SetCandidates(f, c); err != nil {
				return err
			}
			continue
		}
		p := fs.bound(Bound(key))
		if p == nil {
			continue
		}
		n, err := boundValue(v)
		if err != nil {
			return fmt.Errorf("filter %s: %w", key, err)
		}
		*p = &n
	}
	return nil
}

func boundValue(b []byte) (float64, error) {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		return n, nil
	}
	return 0, fmt.Errorf("not a number: %s", string(b))
}
