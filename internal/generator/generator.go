// Package generator создаёт правдоподобные демонстрационные данные маркетплейса.
package generator

import (
	"math"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/mmeshcher/taza-marketplace/internal/lifecycle"
	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/pricing"
	"github.com/mmeshcher/taza-marketplace/internal/service"
)

var etas = []string{
	string(model.ETATwoHours),
	string(model.ETAFourHours),
	string(model.ETASameDay),
	string(model.ETANextDay),
	string(model.ETAThreeDays),
}

// Generator выдаёт случайные, но согласованные с таблицами цен заказы, предложения и статистику.
type Generator struct {
	faker  *gofakeit.Faker
	tables *pricing.Tables
}

// New создаёт генератор. Одинаковый seed даёт одинаковую последовательность.
func New(seed int64, tables *pricing.Tables) *Generator {
	return &Generator{
		faker:  gofakeit.New(seed),
		tables: tables,
	}
}

// OrderInput возвращает заказ со случайной категорией и ценой в пределах ±40% от рыночной.
func (g *Generator) OrderInput() service.OrderInput {
	categories := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		categories = append(categories, string(c))
	}
	category := model.Category(g.faker.RandomString(categories))

	var subcategory string
	base, _ := g.tables.AveragePrice(category)
	if subs := g.tables.Subcategories(category); len(subs) > 0 && g.faker.Bool() {
		subcategory = g.faker.RandomString(subs)
		base, _ = g.tables.SubcategoryPrice(category, subcategory)
	}

	urgencies := make([]string, 0, len(model.Urgencies))
	for _, u := range model.Urgencies {
		urgencies = append(urgencies, string(u))
	}

	return service.OrderInput{
		Category:    category,
		Subcategory: subcategory,
		PriceOffer:  g.around(base, 0.4),
		Urgency:     model.Urgency(g.faker.RandomString(urgencies)),
	}
}

// Offer возвращает предложение исполнителя с ценой в пределах ±15% от цены клиента.
func (g *Generator) Offer(order model.Order) lifecycle.OfferDraft {
	return lifecycle.OfferDraft{
		ProposedPrice: max(1, g.around(order.PriceOffer, 0.15)),
		Comment:       g.faker.Sentence(6),
		ETA:           model.ETA(g.faker.RandomString(etas)),
	}
}

// ProviderStats возвращает историю исполнителя с рейтингом от 3 до 5.
func (g *Generator) ProviderStats(providerID string) model.ProviderStats {
	return model.ProviderStats{
		ProviderID:      providerID,
		CompletedOrders: g.faker.Number(0, 600),
		Rating:          math.Round(g.faker.Float64Range(3, 5)*100) / 100,
	}
}

// ID возвращает новый идентификатор участника.
func (g *Generator) ID() string {
	return g.faker.UUID()
}

// Chance возвращает true с вероятностью p.
func (g *Generator) Chance(p float64) bool {
	return g.faker.Float64Range(0, 1) < p
}

// around возвращает неотрицательное целое в пределах base·(1±spread).
func (g *Generator) around(base int64, spread float64) int64 {
	f := g.faker.Float64Range(1-spread, 1+spread)
	return max(0, int64(math.Round(float64(base)*f)))
}
