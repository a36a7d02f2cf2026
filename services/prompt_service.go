package services

import (
	"fmt"
	"strings"

	"shopbot/models"
)

// SystemPersona is sent as the first turn of every new conversation session.
// Its reply is discarded; it only seeds the model's context.
const SystemPersona = `You are a helpful e-commerce assistant for RakkGears. Your role is to:
1. Provide accurate information about products
2. Help customers find products based on their needs
3. Answer questions about product specifications, prices, and availability
4. Maintain a professional and friendly tone
5. Focus on product-related queries and avoid discussing sensitive topics
6. Always verify product availability before making recommendations
7. Be clear about pricing and stock information
If you're unsure about any information, acknowledge the limitation and suggest contacting customer service.`

// productKeywords triggers link inclusion. Matching is a case-insensitive
// substring check, not a word match: "stocking" matches "stock".
var productKeywords = []string{
	"product", "recommend", "suggestion", "looking for", "price",
	"cost", "buy", "purchase", "available", "stock",
}

// BuildProductContext renders the catalog snapshot as the human-readable
// block injected into the prompt, one line per product. An empty catalog
// yields just the header line.
func BuildProductContext(products []models.Product) string {
	var b strings.Builder
	b.WriteString("Available products:\n")
	for _, p := range products {
		b.WriteString(fmt.Sprintf("- %s: %s (Price: $%.2f, Stock: %d)\n", p.Name, p.Description, p.Price, p.StockQuantity))
	}
	return b.String()
}

// BuildProductLinks derives one deep link per product, in catalog order.
func BuildProductLinks(products []models.Product) []models.ProductLink {
	links := make([]models.ProductLink, 0, len(products))
	for _, p := range products {
		links = append(links, models.ProductLink{
			Name: p.Name,
			URL:  fmt.Sprintf("/product_info/%d", p.ID),
		})
	}
	return links
}

// BuildPrompt assembles the full grounded prompt for one turn: the fixed
// preamble, the live product context, the raw user message, and the fixed
// instruction list.
func BuildPrompt(userMessage, productContext string) string {
	return fmt.Sprintf(`You are a helpful e-commerce assistant. When recommending products, always mention that you can provide direct links to them.

Available products:
%s

User question: %s

Instructions:
1. If the user asks about a specific product, provide a helpful response and mention that you can provide a direct link to the product.
2. If recommending products, explain why they might be suitable and mention that you can provide direct links.
3. Keep responses friendly and professional.
4. Always include product prices and stock information in your response.
5. Only recommend products if the user is specifically asking for recommendations or information about products.
6. For general questions or non-product related queries, provide a helpful response without product recommendations.
`, productContext, userMessage)
}

// ShouldIncludeLinks reports whether the user message is product-relevant
// enough to attach deep links to the turn.
func ShouldIncludeLinks(userMessage string) bool {
	lowered := strings.ToLower(userMessage)
	for _, keyword := range productKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
