package keyword

import (
	"context"
	"strings"
	"testing"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *dal.Dataset {
	return dal.NewDataset(
		dal.NewCar(2020, "Toyota", "Camry", "Red", "Riyadh", "Sedan", 4, 2.5, 45000, 95000),
		dal.NewCar(2019, "Toyota", "Yaris", "White", "Jeddah", "Hatchback", 4, 1.5, 80000, 42000),
		dal.NewCar(2022, "Kia", "Sportage", "Red", "Abha", "SUV", 4, 2.0, 15000, 105000),
	)
}

func TestMatching(t *testing.T) {
	r := New(fixture(), nil, nil)

	got := r.Matching(Keywords("Any RED cars?"))
	require.Len(t, got, 2)
	assert.Equal(t, "Camry", got[0].Name)
	assert.Equal(t, "Sportage", got[1].Name)

	assert.Empty(t, r.Matching(Keywords("lamborghini")))
}

func TestCountSummary(t *testing.T) {
	r := New(fixture(), nil, nil)
	assert.Equal(t, "Toyota: 2 match(es)\nRed: 2 match(es)", r.CountSummary(Keywords("toyota red toyota zzz")))
	assert.Equal(t, noKeywordMatches, r.CountSummary(Keywords("zzz")))
}

func TestListing(t *testing.T) {
	r := New(fixture(), nil, nil)
	assert.Equal(t, "2022 Kia Sportage - Red, Abha - 105,000 SAR", r.Listing([]string{"kia"}))
	assert.Equal(t, noEntries, r.Listing([]string{"zzz"}))
}

func TestRulesWithTeam(t *testing.T) {
	r := New(fixture(), nil, []Contact{{Name: "Mubarak", Role: "manager", Phone: "0500000000"}, {Name: "Ahmed"}})
	rules := r.Rules()
	assert.Contains(t, rules, "Mubarak (manager) (phone 0500000000), Ahmed.")
	assert.NotContains(t, New(fixture(), nil, nil).Rules(), "Team members")
}

func TestReply(t *testing.T) {
	var got llm.Request
	model := llm.CompleterFunc(func(ctx context.Context, req llm.Request) (string, error) {
		got = req
		return "Hello! We have a red Camry in Riyadh.", nil
	})

	out, err := New(fixture(), model, nil).Reply(context.Background(), "camry")
	require.NoError(t, err)
	assert.Equal(t, "Hello! We have a red Camry in Riyadh.", out)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, llm.RoleSystem, got.Messages[0].Role)
	user := got.Messages[1].Content
	assert.True(t, strings.HasSuffix(user, "Question: camry\nAnswer:"))
	assert.Contains(t, user, "2020 Toyota Camry - Red, Riyadh - 95,000 SAR")
	assert.Equal(t, float32(DefaultTemperature), got.Temperature)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
}
