package metrics

import (
	"net/http"
	"time"

	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mcp_gateway"

// Outcome labels.
const (
	OutcomeRedirect = "redirect"
	OutcomeDialog   = "dialog"
	OutcomeSelect   = "select"
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
)

// Metrics tracks the authorization flow and tool calls.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	AuthorizeTotal   *prometheus.CounterVec
	CallbackTotal    *prometheus.CounterVec
	UpstreamFailures *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	TokensIssued     *prometheus.CounterVec
	ToolCalls        *prometheus.CounterVec
}

// New registers the gateway metrics on a fresh registry, alongside the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AuthorizeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorize_total",
			Help:      "Authorization requests by provider and outcome",
		}, []string{"provider", "outcome"}),
		CallbackTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_total",
			Help:      "Provider callbacks by provider and outcome",
		}, []string{"provider", "outcome"}),
		UpstreamFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Failed identity provider calls by provider, operation and failure kind",
		}, []string{"provider", "op", "kind"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Duration of identity provider calls",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider", "op"}),
		TokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Token endpoint requests by result",
		}, []string{"result"}),
		ToolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls by tool and result",
		}, []string{"tool", "result"}),
	}
}

func (m *Metrics) Authorize(provider, outcome string) {
	if m == nil {
		return
	}
	m.AuthorizeTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) Callback(provider string, err error) {
	if m == nil {
		return
	}
	m.CallbackTotal.WithLabelValues(provider, outcomeOf(err)).Inc()
}

func (m *Metrics) TokenIssued(err error) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(outcomeOf(err)).Inc()
}

// ObserveUpstream matches providers.Observer.
func (m *Metrics) ObserveUpstream(provider providers.Name, op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(string(provider), op).Observe(elapsed.Seconds())
	if err != nil {
		m.UpstreamFailures.WithLabelValues(string(provider), op, gwerrors.KindOf(err).String()).Inc()
	}
}

// ObserveTool matches tools.CallObserver.
func (m *Metrics) ObserveTool(tool string, ok bool) {
	if m == nil {
		return
	}
	result := OutcomeSuccess
	if !ok {
		result = OutcomeError
	}
	m.ToolCalls.WithLabelValues(tool, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
