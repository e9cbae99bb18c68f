package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// StorefrontMetrics covers cart commands, checkout outcomes, payment latency,
// webhook deliveries and active shoppers.
type StorefrontMetrics struct {
	cartCommands    *prometheus.CounterVec
	checkoutOutcome *prometheus.CounterVec
	paymentDuration *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
	activeShoppers  prometheus.Gauge
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	m := &StorefrontMetrics{
		cartCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_commands_total",
			Help:      "Cart commands applied, by kind.",
		}, []string{"kind"}),
		checkoutOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_outcomes_total",
			Help:      "Checkout confirm and payment outcomes.",
		}, []string{"outcome"}),
		paymentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_duration_seconds",
			Help:      "Time from opening the hosted payment page to its terminal result.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"provider", "outcome"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment provider webhook events, by provider and result.",
		}, []string{"provider", "result"}),
		activeShoppers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_shoppers",
			Help:      "Shoppers with a live cart in memory.",
		}),
	}
	reg.MustRegister(m.cartCommands, m.checkoutOutcome, m.paymentDuration, m.webhookEvents, m.activeShoppers)
	return m
}

func (m *StorefrontMetrics) ObserveCartCommand(kind string) {
	if m == nil || m.cartCommands == nil {
		return
	}
	m.cartCommands.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *StorefrontMetrics) ObserveCheckoutOutcome(outcome string) {
	if m == nil || m.checkoutOutcome == nil {
		return
	}
	m.checkoutOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *StorefrontMetrics) ObservePaymentDuration(provider, outcome string, d time.Duration) {
	if m == nil || m.paymentDuration == nil {
		return
	}
	m.paymentDuration.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Observe(d.Seconds())
}

func (m *StorefrontMetrics) ObserveWebhook(provider, result string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(provider), normalizeLabel(result)).Inc()
}

func (m *StorefrontMetrics) SetActiveShoppers(n int) {
	if m == nil || m.activeShoppers == nil {
		return
	}
	m.activeShoppers.Set(float64(n))
}

