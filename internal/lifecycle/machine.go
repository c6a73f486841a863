package lifecycle

import (
	"fmt"
	"time"

	"github.com/mmeshcher/taza-marketplace/internal/commission"
	"github.com/mmeshcher/taza-marketplace/internal/fairness"
	"github.com/mmeshcher/taza-marketplace/internal/model"
	"github.com/mmeshcher/taza-marketplace/internal/pricing"
	"github.com/mmeshcher/taza-marketplace/internal/tier"
	"github.com/mmeshcher/taza-marketplace/internal/validation"
)

// Machine применяет действия к снимкам заказов и пересчитывает производные поля.
type Machine struct {
	tables     *pricing.Tables
	commission *commission.Calculator
	fairness   *fairness.Engine
	tiers      *tier.Classifier
}

// NewMachine проверяет таблицы и создаёт машину состояний. Дефект таблиц возвращается сразу,
// чтобы сервис не стартовал с неполной конфигурацией.
func NewMachine(tables *pricing.Tables) (*Machine, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Machine{
		tables:     tables,
		commission: commission.NewCalculator(tables),
		fairness:   fairness.NewEngine(tables),
		tiers:      tier.NewClassifier(tables),
	}, nil
}

// Tables возвращает справочные таблицы машины.
func (m *Machine) Tables() *pricing.Tables {
	return m.tables
}

// Commission возвращает калькулятор комиссии машины.
func (m *Machine) Commission() *commission.Calculator {
	return m.commission
}

// Fairness возвращает оценщик справедливости машины.
func (m *Machine) Fairness() *fairness.Engine {
	return m.fairness
}

// Tiers возвращает классификатор уровней машины.
func (m *Machine) Tiers() *tier.Classifier {
	return m.tiers
}

// Snapshot содержит согласованное состояние заказа и его предложений на момент вызова.
type Snapshot struct {
	Order  model.Order
	Offers []model.Offer
}

// OrderDraft описывает новый заказ клиента.
type OrderDraft struct {
	ID          string         `validate:"required"`
	ClientID    string         `validate:"required"`
	Category    model.Category `validate:"enum"`
	Subcategory string
	PriceOffer  int64         `validate:"gte=0"`
	Urgency     model.Urgency `validate:"enum"`
}

// OfferDraft описывает предложение исполнителя.
type OfferDraft struct {
	ID            string    `validate:"required"`
	ProposedPrice int64     `validate:"gt=0"`
	Comment       string    `validate:"required"`
	ETA           model.ETA `validate:"enum"`
}

// Payload содержит данные, необходимые конкретному действию.
type Payload struct {
	Now time.Time

	// submit_offer
	Offer *OfferDraft

	// accept_offer
	OfferID       string
	PartnerID     string
	ProviderStats *model.ProviderStats

	// request_courier
	CourierID string

	// cancel
	Reason string

	// MarketPrice: рыночная цена заказа; ноль означает цену из таблиц при стабильном тренде.
	MarketPrice int64
}

// Result содержит новый снимок после успешного перехода.
type Result struct {
	Order model.Order
	// Offer заполнен только для submit_offer.
	Offer *model.Offer
	// Recomputed сообщает, что комиссия и оценка справедливости были пересчитаны.
	Recomputed bool
}

func invalid(status model.OrderStatus, action Action, reason string) error {
	return &model.InvalidTransitionError{Status: string(status), Action: string(action), Reason: reason}
}

func ptr[T any](v T) *T {
	return &v
}

func (m *Machine) reference(order model.Order, market int64) (int64, error) {
	if market > 0 {
		return market, nil
	}
	entry, err := m.tables.MarketPrice(order.Category, order.Subcategory, model.TrendStable)
	if err != nil {
		return 0, err
	}
	return entry.Price, nil
}

// NewOrder создаёт заказ в статусе new с оценкой справедливости цены клиента.
func (m *Machine) NewOrder(d OrderDraft, marketPrice int64, now time.Time) (model.Order, error) {
	if err := validation.Struct(d); err != nil {
		return model.Order{}, err
	}
	if _, err := m.tables.SubcategoryPrice(d.Category, d.Subcategory); err != nil {
		return model.Order{}, err
	}

	sla, err := m.tables.Deadline(d.Urgency)
	if err != nil {
		return model.Order{}, err
	}

	order := model.Order{
		ID:          d.ID,
		ClientID:    d.ClientID,
		Category:    d.Category,
		Subcategory: d.Subcategory,
		PriceOffer:  d.PriceOffer,
		Urgency:     d.Urgency,
		Deadline:    now.Add(sla),
		Status:      model.OrderStatusNew,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ref, err := m.reference(order, marketPrice)
	if err != nil {
		return model.Order{}, err
	}
	eval, err := m.fairness.EvaluateFairness(order.PriceOffer, ref)
	if err != nil {
		return model.Order{}, err
	}
	order.Fairness = &eval

	return order, nil
}

// Apply применяет действие участника к снимку заказа. Входной снимок не изменяется: при ошибке
// вызывающий продолжает работать с исходным состоянием.
func (m *Machine) Apply(s Snapshot, action Action, actor model.Actor, p Payload) (Result, error) {
	if !action.Valid() {
		return Result{}, model.InvalidInput("unknown action %q", action)
	}

	order := s.Order

	t, ok := findTransition(order.Status, action, actor.Role)
	if !ok {
		return Result{}, invalid(order.Status, action, fmt.Sprintf("not allowed for %s", actor.Role))
	}
	if actor.ID == "" {
		return Result{}, model.InvalidInput("actor id is empty")
	}

	var (
		res Result
		err error
	)

	switch action {
	case ActionSubmitOffer:
		res, err = m.submitOffer(s, actor, p)
	case ActionAcceptOffer:
		res, err = m.acceptOffer(s, actor, p)
	case ActionStartWork:
		res, err = m.startWork(order, actor)
	case ActionRequestCourier:
		res, err = m.requestCourier(order, actor, p)
	case ActionComplete:
		res, err = m.complete(order, actor, p)
	case ActionCancel:
		res, err = m.cancel(order, actor, p)
	}
	if err != nil {
		return Result{}, err
	}

	res.Order.Status = t.To
	if action == ActionAcceptOffer && res.Order.PartnerID != nil {
		res.Order.Status = model.OrderStatusAtPartner
	}
	res.Order.Version = order.Version + 1
	res.Order.UpdatedAt = p.Now

	return res, nil
}

func (m *Machine) submitOffer(s Snapshot, actor model.Actor, p Payload) (Result, error) {
	order := s.Order

	for _, o := range s.Offers {
		if o.ProviderID == actor.ID {
			return Result{}, invalid(order.Status, ActionSubmitOffer, "provider already made an offer")
		}
	}

	if p.Offer == nil {
		return Result{}, model.InvalidInput("offer is required")
	}
	if err := validation.Struct(*p.Offer); err != nil {
		return Result{}, err
	}

	ref, err := m.reference(order, p.MarketPrice)
	if err != nil {
		return Result{}, err
	}
	eval, err := m.fairness.EvaluateFairness(p.Offer.ProposedPrice, ref)
	if err != nil {
		return Result{}, err
	}

	offer := model.Offer{
		ID:            p.Offer.ID,
		OrderID:       order.ID,
		ProviderID:    actor.ID,
		ProposedPrice: p.Offer.ProposedPrice,
		Comment:       p.Offer.Comment,
		ETA:           p.Offer.ETA,
		Fairness:      &eval,
		CreatedAt:     p.Now,
	}

	return Result{Order: order, Offer: &offer}, nil
}

func (m *Machine) acceptOffer(s Snapshot, actor model.Actor, p Payload) (Result, error) {
	order := s.Order

	if actor.ID != order.ClientID {
		return Result{}, invalid(order.Status, ActionAcceptOffer, "actor is not the order client")
	}
	if order.ChosenProviderID != nil {
		return Result{}, invalid(order.Status, ActionAcceptOffer, "provider already chosen")
	}
	if p.OfferID == "" {
		return Result{}, model.InvalidInput("offer id is required")
	}

	var offer *model.Offer
	for i := range s.Offers {
		if s.Offers[i].ID == p.OfferID && s.Offers[i].OrderID == order.ID {
			offer = &s.Offers[i]
			break
		}
	}
	if offer == nil {
		return Result{}, invalid(order.Status, ActionAcceptOffer, "offer not found on order")
	}

	stats := model.ProviderStats{ProviderID: offer.ProviderID}
	if p.ProviderStats != nil {
		if p.ProviderStats.ProviderID != "" && p.ProviderStats.ProviderID != offer.ProviderID {
			return Result{}, model.InvalidInput("stats belong to %s, offer to %s", p.ProviderStats.ProviderID, offer.ProviderID)
		}
		stats = *p.ProviderStats
	}

	providerTier, err := m.tiers.ClassifyStats(stats)
	if err != nil {
		return Result{}, err
	}
	breakdown, err := m.commission.Compute(offer.ProposedPrice, order.Urgency, providerTier)
	if err != nil {
		return Result{}, err
	}
	ref, err := m.reference(order, p.MarketPrice)
	if err != nil {
		return Result{}, err
	}
	eval, err := m.fairness.EvaluateFairness(offer.ProposedPrice, ref)
	if err != nil {
		return Result{}, err
	}

	order.ChosenProviderID = ptr(offer.ProviderID)
	order.ChosenOfferID = ptr(offer.ID)
	order.FinalPrice = offer.ProposedPrice
	order.Commission = &breakdown
	order.Fairness = &eval
	if p.PartnerID != "" {
		order.PartnerID = ptr(p.PartnerID)
	}

	return Result{Order: order, Recomputed: true}, nil
}

func (m *Machine) startWork(order model.Order, actor model.Actor) (Result, error) {
	if !is(order.PartnerID, actor.ID) {
		return Result{}, invalid(order.Status, ActionStartWork, "actor is not the order partner")
	}
	return Result{Order: order}, nil
}

func (m *Machine) requestCourier(order model.Order, actor model.Actor, p Payload) (Result, error) {
	if !is(order.PartnerID, actor.ID) {
		return Result{}, invalid(order.Status, ActionRequestCourier, "actor is not the order partner")
	}
	if p.CourierID == "" {
		return Result{}, model.InvalidInput("courier id is required")
	}
	order.CourierID = ptr(p.CourierID)
	return Result{Order: order}, nil
}

func (m *Machine) complete(order model.Order, actor model.Actor, p Payload) (Result, error) {
	var assigned *string
	switch actor.Role {
	case model.RoleProvider:
		assigned = order.ChosenProviderID
	case model.RolePartner:
		assigned = order.PartnerID
	case model.RoleCourier:
		assigned = order.CourierID
	}
	if !is(assigned, actor.ID) {
		return Result{}, invalid(order.Status, ActionComplete, fmt.Sprintf("actor is not the order %s", actor.Role))
	}

	order.CompletedAt = ptr(p.Now)
	return Result{Order: order}, nil
}

func (m *Machine) cancel(order model.Order, actor model.Actor, p Payload) (Result, error) {
	switch actor.Role {
	case model.RoleClient:
		if actor.ID != order.ClientID {
			return Result{}, invalid(order.Status, ActionCancel, "actor is not the order client")
		}
	case model.RoleProvider:
		if !is(order.ChosenProviderID, actor.ID) {
			return Result{}, invalid(order.Status, ActionCancel, "actor is not the chosen provider")
		}
	}

	order.CancelledAt = ptr(p.Now)
	order.CancelReason = p.Reason
	return Result{Order: order}, nil
}

func is(id *string, actorID string) bool {
	return id != nil && *id == actorID
}
