// Package metrics содержит метрики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal считает HTTP-запросы по маршруту и коду ответа.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taza_http_requests_total",
			Help: "Количество HTTP запросов",
		},
		[]string{"route", "status"},
	)

	// HTTPRequestDuration измеряет длительность HTTP-запросов.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "taza_http_request_duration_seconds",
			Help: "Длительность HTTP запросов",
		},
		[]string{"route"},
	)

	// TransitionsTotal считает применённые переходы заказов и курьерских плеч.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taza_transitions_total",
			Help: "Количество применённых переходов",
		},
		[]string{"action", "status"},
	)

	// RejectionsTotal считает отклонённые действия по причине.
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taza_rejections_total",
			Help: "Количество отклонённых действий",
		},
		[]string{"action", "reason"}, // invalid_transition, invalid_input, conflict
	)

	// VersionConflicts считает повторы из-за конкурентного изменения заказа.
	VersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taza_version_conflicts_total",
			Help: "Количество конфликтов версий при сохранении",
		},
	)

	// EventsPublished считает отправку событий заказа в брокер.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taza_events_published_total",
			Help: "Количество событий заказа, отправленных в брокер",
		},
		[]string{"result"},
	)

	// TrendUpdates считает обновления трендов из рыночного фида.
	TrendUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taza_trend_updates_total",
			Help: "Количество обновлений рыночных трендов",
		},
		[]string{"result"},
	)
)
