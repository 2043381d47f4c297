package search

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
)

const (
	// SummaryLimit is the number of matches shown to the model
	SummaryLimit = 30
	// ListingLimit is the number of matches in a raw listing
	ListingLimit = 100

	NoMatches = "No matching cars found."
	currency  = "SAR"
)

// FormatPrice renders a price with thousands separators and no decimals
func FormatPrice(p float64) string {
	return humanize.Comma(int64(math.Round(p))) + " " + currency
}

// FormatMileage renders a mileage with thousands separators
func FormatMileage(km float64) string {
	return humanize.Comma(int64(km)) + " km"
}

// FormatLiters renders an engine size as given, keeping one decimal for whole numbers
func FormatLiters(l float64) string {
	s := strconv.FormatFloat(l, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatCar renders one car as the three-line block used in summaries
func FormatCar(c dal.Car) string {
	return fmt.Sprintf("🚗 %d %s %s — %s in %s\n🛞 %s | %d cyl | %sL | %s\n💰 %s",
		c.Year, c.Brand, c.Name, c.Color, c.City,
		c.BodyType, c.Cylinders, FormatLiters(c.CylinderSizeLiters), FormatMileage(c.Mileage),
		FormatPrice(c.Price))
}

// FormatLine renders one car on a single line as used in raw listings
func FormatLine(c dal.Car) string {
	return fmt.Sprintf("%d %s %s - %s, %s - %s", c.Year, c.Brand, c.Name, c.Color, c.City, FormatPrice(c.Price))
}

// Block renders up to limit cars, or NoMatches when there are none
func Block(cars []dal.Car, limit int, format func(dal.Car) string) string {
	if len(cars) == 0 {
		return NoMatches
	}
	if limit >= 0 && len(cars) > limit {
		cars = cars[:limit]
	}
	lines := make([]string, 0, len(cars))
	for _, c := range cars {
		lines = append(lines, format(c))
	}
	return strings.Join(lines, "\n")
}
