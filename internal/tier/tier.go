// Package tier определяет уровень исполнителя по его истории заказов и рейтингу.
package tier

import (
	"math"

	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/pricing"
)

// Classifier определяет уровень исполнителя по таблице порогов.
type Classifier struct {
	tables *pricing.Tables
}

// NewClassifier создаёт классификатор поверх указанных таблиц.
func NewClassifier(tables *pricing.Tables) *Classifier {
	return &Classifier{tables: tables}
}

var defaultClassifier = NewClassifier(pricing.Default())

// Classify определяет уровень по таблицам по умолчанию.
func Classify(completedOrders int, rating float64) (model.ProviderTier, error) {
	return defaultClassifier.Classify(completedOrders, rating)
}

// Classify проходит пороги от высшего уровня к низшему и возвращает первый, для которого
// выполнены оба условия: число заказов и рейтинг.
func (c *Classifier) Classify(completedOrders int, rating float64) (model.ProviderTier, error) {
	if completedOrders < 0 {
		return "", model.InvalidInput("negative completed orders %d", completedOrders)
	}
	if math.IsNaN(rating) || rating < 0 || rating > 5 {
		return "", model.InvalidInput("rating %v out of range [0, 5]", rating)
	}

	for _, rule := range c.tables.Tiers {
		if completedOrders >= rule.MinOrders && rating >= rule.MinRating {
			return rule.Tier, nil
		}
	}
	return model.TierNew, nil
}

// ClassifyStats определяет уровень по статистике исполнителя.
func (c *Classifier) ClassifyStats(stats model.ProviderStats) (model.ProviderTier, error) {
	return c.Classify(stats.CompletedOrders, stats.Rating)
}
