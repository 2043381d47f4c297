package search

import (
	"strings"
	"testing"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 SAR"},
		{999, "999 SAR"},
		{95000, "95,000 SAR"},
		{123456.5, "123,457 SAR"},
		{1250000.2, "1,250,000 SAR"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatPrice(tc.in))
	}
}

func TestFormatCar(t *testing.T) {
	c := dal.NewCar(2020, "Toyota", "Camry", "Red", "Jeddah", "Sedan", 4, 2.5, 45000, 95000)
	assert.Equal(t,
		"🚗 2020 Toyota Camry — Red in Jeddah\n🛞 Sedan | 4 cyl | 2.5L | 45,000 km\n💰 95,000 SAR",
		FormatCar(c))
	assert.Equal(t, "2020 Toyota Camry - Red, Jeddah - 95,000 SAR", FormatLine(c))
}

func TestFormatLiters(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2.0, "2.0"},
		{1.25, "1.25"},
		{5.7, "5.7"},
		{0, "0.0"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatLiters(tc.in))
	}

	c := dal.NewCar(2019, "Mini", "Cooper", "Green", "Dammam", "Hatchback", 3, 1.25, 20000, 80000)
	assert.Contains(t, FormatCar(c), "| 3 cyl | 1.25L |")
}

func TestPriceConsistentAcrossListings(t *testing.T) {
	c := dal.NewCar(2020, "Toyota", "Camry", "Red", "Jeddah", "Sedan", 4, 2.5, 45000, 123456)
	assert.Contains(t, FormatCar(c), "123,456 SAR")
	assert.Contains(t, FormatLine(c), "123,456 SAR")
}

func TestBlock(t *testing.T) {
	assert.Equal(t, NoMatches, Block(nil, SummaryLimit, FormatCar))

	var cars []dal.Car
	for i := 0; i < 40; i++ {
		cars = append(cars, dal.NewCar(2000+i, "Kia", "Rio", "Red", "Abha", "Hatchback", 4, 1.4, 1000, 1000))
	}
	out := Block(cars, SummaryLimit, FormatLine)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, SummaryLimit)
	assert.True(t, strings.HasPrefix(lines[0], "2000 "))
	assert.True(t, strings.HasPrefix(lines[SummaryLimit-1], "2029 "))
}
