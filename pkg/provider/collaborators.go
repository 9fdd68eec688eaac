package provider

import (
	"context"

	"github.com/emberfit/coach/pkg/types"
)

// TemplateContent is canned coaching copy keyed by (category, subcategory).
type TemplateContent struct {
	Text        string   `json:"text"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// TemplateProvider supplies canned fallback and category content. The
// literal wording is opaque to the orchestration layer.
type TemplateProvider interface {
	// Lookup returns content for the given category and subcategory.
	// The second return value is false when no template exists.
	Lookup(category types.Category, subcategory string) (TemplateContent, bool)
}

// HealthDataProvider supplies current and historical metric snapshots,
// consumed read-only by the context store and trigger evaluator.
type HealthDataProvider interface {
	// Current returns the latest metric snapshot for the user.
	Current(ctx context.Context, userID string) (*types.HealthSnapshot, error)

	// History returns up to days of samples for one metric, oldest first.
	History(ctx context.Context, userID, metric string, days int) ([]types.MetricPoint, error)
}
