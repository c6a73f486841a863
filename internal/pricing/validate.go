package pricing

import (
	"errors"
	"fmt"

	"github.com/mmeshcher/taza-marketplace/internal/model"
)

// Validate проверяет полноту и непротиворечивость таблиц. Вызывается один раз при старте:
// дефект таблиц считается ошибкой конфигурации, а не ошибкой времени выполнения.
func (t *Tables) Validate() error {
	var errs []error

	if t.BaseRate.IsNegative() {
		errs = append(errs, errors.New("base rate is negative"))
	}
	if !t.CommissionFloor.IsPositive() {
		errs = append(errs, errors.New("commission floor must be positive"))
	}
	if t.MinMarketPrice < 0 {
		errs = append(errs, errors.New("min market price is negative"))
	}

	for _, c := range model.Categories {
		rule, ok := t.category(c)
		if !ok {
			errs = append(errs, fmt.Errorf("category %s has no price rule", c))
			continue
		}
		if rule.AveragePrice <= 0 {
			errs = append(errs, fmt.Errorf("category %s has no average price", c))
		}
		if !rule.Multiplier.IsPositive() {
			errs = append(errs, fmt.Errorf("category %s has no multiplier", c))
		}
		seen := make(map[string]struct{}, len(rule.Subcategories))
		for _, s := range rule.Subcategories {
			if _, dup := seen[s.Name]; dup {
				errs = append(errs, fmt.Errorf("subcategory %s/%s is listed twice", c, s.Name))
			}
			seen[s.Name] = struct{}{}
			if s.Price <= 0 {
				errs = append(errs, fmt.Errorf("subcategory %s/%s has no price", c, s.Name))
			}
		}
	}

	for _, tr := range []model.Trend{model.TrendUp, model.TrendDown, model.TrendStable} {
		if _, err := t.TrendMultiplier(tr); err != nil {
			errs = append(errs, fmt.Errorf("trend %s has no multiplier", tr))
		}
	}

	for _, u := range model.Urgencies {
		if _, err := t.UrgencyFee(u); err != nil {
			errs = append(errs, fmt.Errorf("urgency %s has no fee", u))
		}
	}

	errs = append(errs, t.validateTiers()...)
	errs = append(errs, t.validateBands()...)
	errs = append(errs, t.validateLevels()...)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", model.ErrConfigurationDefect, errors.Join(errs...))
	}
	return nil
}

func (t *Tables) validateTiers() []error {
	var errs []error

	for _, tier := range model.Tiers {
		if _, err := t.TierDiscount(tier); err != nil {
			errs = append(errs, fmt.Errorf("tier %s has no rule", tier))
		}
	}

	for i := 1; i < len(t.Tiers); i++ {
		prev, cur := t.Tiers[i-1], t.Tiers[i]
		if prev.Tier.Rank() <= cur.Tier.Rank() {
			errs = append(errs, fmt.Errorf("tier table is not ordered from highest: %s before %s", prev.Tier, cur.Tier))
		}
		if prev.MinOrders < cur.MinOrders || prev.MinRating < cur.MinRating {
			errs = append(errs, fmt.Errorf("tier %s has lower thresholds than %s", prev.Tier, cur.Tier))
		}
	}

	if n := len(t.Tiers); n > 0 {
		last := t.Tiers[n-1]
		if last.MinOrders != 0 || last.MinRating != 0 {
			errs = append(errs, fmt.Errorf("lowest tier %s must accept any provider", last.Tier))
		}
	}

	return errs
}

func (t *Tables) validateBands() []error {
	ranges := make([][2]int64, 0, len(t.FairnessBands))
	for _, b := range t.FairnessBands {
		ranges = append(ranges, [2]int64{b.Min, b.Max})
	}
	errs := checkRanges("fairness band", ranges)

	if !t.hasBand(t.DefaultBand) {
		errs = append(errs, fmt.Errorf("default band %q is not in the band table", t.DefaultBand))
	}
	return errs
}

func (t *Tables) validateLevels() []error {
	ranges := make([][2]int64, 0, len(t.IndexLevels))
	for _, l := range t.IndexLevels {
		ranges = append(ranges, [2]int64{l.Min, l.Max})
	}
	errs := checkRanges("index level", ranges)

	found := false
	for _, l := range t.IndexLevels {
		if l.Level == t.DefaultLevel {
			found = true
		}
	}
	if !found {
		errs = append(errs, fmt.Errorf("default level %q is not in the level table", t.DefaultLevel))
	}
	return errs
}

func (t *Tables) hasBand(band model.FairnessBand) bool {
	for _, b := range t.FairnessBands {
		if b.Band == band {
			return true
		}
	}
	return false
}

// checkRanges проверяет, что диапазоны покрывают [0, Unbounded] без пересечений и разрывов.
func checkRanges(name string, ranges [][2]int64) []error {
	if len(ranges) == 0 {
		return []error{fmt.Errorf("%s table is empty", name)}
	}

	var errs []error
	if ranges[0][0] != 0 {
		errs = append(errs, fmt.Errorf("%s table must start at 0, starts at %d", name, ranges[0][0]))
	}
	for i, r := range ranges {
		if r[0] > r[1] {
			errs = append(errs, fmt.Errorf("%s range %d..%d is empty", name, r[0], r[1]))
		}
		if i > 0 && r[0] != ranges[i-1][1]+1 {
			errs = append(errs, fmt.Errorf("%s range %d..%d does not follow %d..%d", name, r[0], r[1], ranges[i-1][0], ranges[i-1][1]))
		}
	}
	if last := ranges[len(ranges)-1]; last[1] != Unbounded {
		errs = append(errs, fmt.Errorf("%s table must be open-ended, ends at %d", name, last[1]))
	}
	return errs
}
