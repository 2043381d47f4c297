package dal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Dataset is the read-only car inventory shared by every component.
// It is built once at startup and never mutated.
type Dataset struct {
	cars []Car
}

// NewDataset returns a dataset holding cars in the given order
func NewDataset(cars ...Car) *Dataset {
	c := make([]Car, len(cars))
	copy(c, cars)
	return &Dataset{cars: c}
}

// Load reads a JSON array of listings from path
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return ds, nil
}

// Parse decodes a JSON array of listings
func Parse(r io.Reader) (*Dataset, error) {
	var cars []Car
	if err := json.NewDecoder(r).Decode(&cars); err != nil {
		return nil, err
	}
	return &Dataset{cars: cars}, nil
}

// Len returns the number of listings
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.cars)
}

// At returns the i-th listing
func (d *Dataset) At(i int) Car {
	return d.cars[i]
}

// Each calls fn for every listing in dataset order until fn returns false
func (d *Dataset) Each(fn func(i int, c Car) bool) {
	if d == nil {
		return
	}
	for i, c := range d.cars {
		if !fn(i, c) {
			return
		}
	}
}

// Filter returns the listings for which keep returns true, in dataset order
func (d *Dataset) Filter(keep func(c Car) bool) []Car {
	var out []Car
	d.Each(func(_ int, c Car) bool {
		if keep(c) {
			out = append(out, c)
		}
		return true
	})
	return out
}
