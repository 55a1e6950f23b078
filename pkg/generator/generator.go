// Package generator produces reply text for a classified message.
package generator

import (
	"context"

	"github.com/coldreach/autoreply/pkg/types"
)

// Generator produces reply text for a category. Implementations may be
// slow or fail; a failure aborts only the current message's processing.
type Generator interface {
	Generate(ctx context.Context, category types.Category) (string, error)
}

// StaticGenerator returns canned replies without calling any API. Used in
// tests and when no generator API key is configured.
type StaticGenerator struct{}

func (StaticGenerator) Generate(_ context.Context, category types.Category) (string, error) {
	switch category {
	case types.CategoryInterested:
		return "Thanks for your interest! Would you be open to scheduling a quick demo call?", nil
	case types.CategoryMoreInfo:
		return "Happy to share more details about the product. What would you like to know?", nil
	default:
		return "Thank you for taking the time to get back to us.", nil
	}
}
