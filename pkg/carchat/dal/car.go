package dal

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownField is returned when a field name is not part of the car schema
var ErrUnknownField = errors.New("unknown field")

// Field defines a car listing attribute
type Field string

const (
	FieldYear               Field = "year"
	FieldBrand              Field = "brand"
	FieldName               Field = "name"
	FieldColor              Field = "color"
	FieldCity               Field = "city"
	FieldBodyType           Field = "body_type"
	FieldCylinders          Field = "cylinders"
	FieldCylinderSizeLiters Field = "cylinder_size_liters"
	FieldMileage            Field = "mileage"
	FieldPrice              Field = "price"
)

// Fields lists the schema in file order
var Fields = []Field{
	FieldYear, FieldBrand, FieldName, FieldColor, FieldCity,
	FieldBodyType, FieldCylinders, FieldCylinderSizeLiters, FieldMileage, FieldPrice,
}

// ParseField returns the Field named s
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if f.bit() == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
	return f, nil
}

// Numeric reports whether the field holds a number
func (f Field) Numeric() bool {
	switch f {
	case FieldYear, FieldCylinders, FieldCylinderSizeLiters, FieldMileage, FieldPrice:
		return true
	}
	return false
}

func (f Field) bit() uint16 {
	for i, v := range Fields {
		if v == f {
			return 1 << uint(i)
		}
	}
	return 0
}

// Car defines one listing from the dataset. Fields that were missing or had the
// wrong type in the source file are absent, see Has.
type Car struct {
	Year               int     `json:"year"`
	Brand              string  `json:"brand"`
	Name               string  `json:"name"`
	Color              string  `json:"color"`
	City               string  `json:"city"`
	BodyType           string  `json:"body_type"`
	Cylinders          int     `json:"cylinders"`
	CylinderSizeLiters float64 `json:"cylinder_size_liters"`
	Mileage            float64 `json:"mileage"`
	Price              float64 `json:"price"`

	present uint16
}

// NewCar returns a car with every field present
func NewCar(year int, brand, name, color, city, bodyType string, cylinders int, size, mileage, price float64) Car {
	return Car{
		Year: year, Brand: brand, Name: name, Color: color, City: city, BodyType: bodyType,
		Cylinders: cylinders, CylinderSizeLiters: size, Mileage: mileage, Price: price,
		present: 1<<uint(len(Fields)) - 1,
	}
}

// Has reports whether f was present in the source record
func (c Car) Has(f Field) bool {
	return c.present&f.bit() != 0
}

// Without returns a copy of c with the given fields marked absent
func (c Car) Without(fields ...Field) Car {
	for _, f := range fields {
		c.present &^= f.bit()
	}
	return c
}

// Number returns the numeric value of f, false when absent or not numeric
func (c Car) Number(f Field) (float64, bool) {
	if !f.Numeric() || !c.Has(f) {
		return 0, false
	}
	switch f {
	case FieldYear:
		return float64(c.Year), true
	case FieldCylinders:
		return float64(c.Cylinders), true
	case FieldCylinderSizeLiters:
		return c.CylinderSizeLiters, true
	case FieldMileage:
		return c.Mileage, true
	case FieldPrice:
		return c.Price, true
	}
	return 0, false
}

// NumberOr0 returns the numeric value of f, or 0 when it is absent
func (c Car) NumberOr0(f Field) float64 {
	v, _ := c.Number(f)
	return v
}

// Text returns the canonical string form of f, false when absent
func (c Car) Text(f Field) (string, bool) {
	if !c.Has(f) {
		return "", false
	}
	switch f {
	case FieldBrand:
		return c.Brand, true
	case FieldName:
		return c.Name, true
	case FieldColor:
		return c.Color, true
	case FieldCity:
		return c.City, true
	case FieldBodyType:
		return c.BodyType, true
	}
	v, ok := c.Number(f)
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

// UnmarshalJSON decodes a listing field by field so that a bad value only
// drops that field.
func (c *Car) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = Car{}
	for _, f := range Fields {
		v, ok := raw[string(f)]
		if !ok || string(v) == "null" {
			continue
		}
		if c.decodeField(f, v) {
			c.present |= f.bit()
		}
	}
	return nil
}

func (c *Car) decodeField(f Field, v json.RawMessage) bool {
	switch f {
	case FieldBrand:
		return json.Unmarshal(v, &c.Brand) == nil
	case FieldName:
		return json.Unmarshal(v, &c.Name) == nil
	case FieldColor:
		return json.Unmarshal(v, &c.Color) == nil
	case FieldCity:
		return json.Unmarshal(v, &c.City) == nil
	case FieldBodyType:
		return json.Unmarshal(v, &c.BodyType) == nil
	case FieldYear, FieldCylinders:
		var n float64
		if json.Unmarshal(v, &n) != nil || n != math.Trunc(n) {
			return false
		}
		if f == FieldYear {
			c.Year = int(n)
		} else {
			c.Cylinders = int(n)
		}
		return true
	case FieldCylinderSizeLiters:
		return json.Unmarshal(v, &c.CylinderSizeLiters) == nil
	case FieldMileage:
		return json.Unmarshal(v, &c.Mileage) == nil
	case FieldPrice:
		return json.Unmarshal(v, &c.Price) == nil
	}
	return false
}

// MarshalJSON writes only the present fields
func (c Car) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(Fields))
	for _, f := range Fields {
		if !c.Has(f) {
			continue
		}
		if f.Numeric() {
			out[string(f)] = c.NumberOr0(f)
			if f == FieldYear || f == FieldCylinders {
				out[string(f)] = int(c.NumberOr0(f))
			}
			continue
		}
		s, _ := c.Text(f)
		out[string(f)] = s
	}
	return json.Marshal(out)
}
