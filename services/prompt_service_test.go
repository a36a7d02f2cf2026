package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"shopbot/models"
)

func sampleProducts() []models.Product {
	return []models.Product{
		{ID: 42, Name: "Ilis Helmet", Description: "Full-face helmet", Price: 59.99, StockQuantity: 7},
		{ID: 7, Name: "Kuts Keyboard", Description: "Mechanical keyboard", Price: 120, StockQuantity: 3},
	}
}

func TestShouldIncludeLinks(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"What's the price of the helmet?", true},
		{"How do I reset my password?", false},
		{"Can you RECOMMEND something?", true},
		{"I'm looking for a gift", true},
		{"Do you sell stocking stuffers?", true}, // substring match on "stock"
		{"Where can I BUY this?", true},
		{"hello there", false},
		{"", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ShouldIncludeLinks(tc.message), "message: %q", tc.message)
	}
}

func TestBuildProductContext(t *testing.T) {
	got := BuildProductContext(sampleProducts())

	want := "Available products:\n" +
		"- Ilis Helmet: Full-face helmet (Price: $59.99, Stock: 7)\n" +
		"- Kuts Keyboard: Mechanical keyboard (Price: $120.00, Stock: 3)\n"
	assert.Equal(t, want, got)
}

func TestBuildProductContext_EmptyCatalog(t *testing.T) {
	assert.Equal(t, "Available products:\n", BuildProductContext(nil))
	assert.Equal(t, "Available products:\n", BuildProductContext([]models.Product{}))
}

func TestBuildProductLinks(t *testing.T) {
	links := BuildProductLinks(sampleProducts())

	assert.Equal(t, []models.ProductLink{
		{Name: "Ilis Helmet", URL: "/product_info/42"},
		{Name: "Kuts Keyboard", URL: "/product_info/7"},
	}, links)
}

func TestBuildProductLinks_Empty(t *testing.T) {
	links := BuildProductLinks(nil)
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestBuildPrompt(t *testing.T) {
	context := BuildProductContext(sampleProducts())
	prompt := BuildPrompt("What's the price of the helmet?", context)

	assert.True(t, strings.HasPrefix(prompt, "You are a helpful e-commerce assistant."))
	assert.Contains(t, prompt, context)
	assert.Contains(t, prompt, "User question: What's the price of the helmet?")
	assert.Contains(t, prompt, "6. For general questions or non-product related queries")
}
