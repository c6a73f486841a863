// Package fairness оценивает цену относительно рыночной: полоса справедливости и ценовой индекс.
package fairness

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/pricing"
)

// Engine оценивает цены по таблицам полос и уровней.
type Engine struct {
	tables *pricing.Tables
}

// NewEngine создаёт оценщик поверх указанных таблиц.
func NewEngine(tables *pricing.Tables) *Engine {
	return &Engine{tables: tables}
}

var defaultEngine = NewEngine(pricing.Default())

// EvaluateFairness оценивает цену по таблицам по умолчанию.
func EvaluateFairness(price, reference int64) (model.FairnessEvaluation, error) {
	return defaultEngine.EvaluateFairness(price, reference)
}

// EvaluateIndex рассчитывает ценовой индекс по таблицам по умолчанию.
func EvaluateIndex(price, average int64) (model.IndexEvaluation, error) {
	return defaultEngine.EvaluateIndex(price, average)
}

// Index возвращает round(price / max(reference, 1) × 100).
func Index(price, reference int64) int64 {
	return percentOf(price, reference)
}

var (
	maxPercent = decimal.NewFromInt(pricing.Unbounded)
	minPercent = decimal.NewFromInt(math.MinInt64)
)

// percentOf возвращает round(value / max(reference, 1) × 100), насыщаясь на границах int64.
func percentOf(value, reference int64) int64 {
	if reference < 1 {
		reference = 1
	}
	p := decimal.NewFromInt(value).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(reference)).Round(0)
	switch {
	case p.GreaterThan(maxPercent):
		return pricing.Unbounded
	case p.LessThan(minPercent):
		return math.MinInt64
	}
	return p.IntPart()
}

func checkPrices(price, reference int64) error {
	if price < 0 {
		return model.InvalidInput("negative price %d", price)
	}
	if reference < 0 {
		return model.InvalidInput("negative reference price %d", reference)
	}
	return nil
}

// EvaluateFairness относит цену к полосе справедливости. Рекомендуемая цена всегда равна рыночной.
// Если индекс не попал ни в одну полосу, используется полоса по умолчанию.
func (e *Engine) EvaluateFairness(price, reference int64) (model.FairnessEvaluation, error) {
	if err := checkPrices(price, reference); err != nil {
		return model.FairnessEvaluation{}, err
	}

	index := Index(price, reference)
	band, ok := e.tables.Band(index)
	if !ok {
		band = e.tables.DefaultBand
	}

	delta := price - reference

	return model.FairnessEvaluation{
		Index:            index,
		Band:             band,
		Delta:            delta,
		DeltaPercent:     percentOf(delta, reference),
		ReferencePrice:   reference,
		RecommendedPrice: reference,
	}, nil
}

// EvaluateIndex относит цену к одному из четырёх уровней. Защита покупателя включается только на премиум-уровне.
func (e *Engine) EvaluateIndex(price, average int64) (model.IndexEvaluation, error) {
	if err := checkPrices(price, average); err != nil {
		return model.IndexEvaluation{}, err
	}

	index := Index(price, average)
	level, ok := e.tables.Level(index)
	if !ok {
		return model.IndexEvaluation{Index: index, Level: e.tables.DefaultLevel}, nil
	}

	return model.IndexEvaluation{
		Index:             index,
		Level:             level.Level,
		ProtectionEnabled: level.Protection,
	}, nil
}
