// Package telemetry provides observability for the provisioning flow.
package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vistalink/screen-setup/internal/provisioning"
)

// Metrics collects provisioning counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	stateTransitions *prometheus.CounterVec
	probes           *prometheus.CounterVec
	dnsResets        *prometheus.CounterVec
	dnsVerifications *prometheus.CounterVec
	activations      *prometheus.CounterVec
	submissions      *prometheus.CounterVec
	attempt          prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "screen_setup",
		Name:      "state_transitions_total",
		Help:      "Provisioning state entries by state.",
	}, []string{"state"})
	m.probes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "screen_setup",
		Name:      "connectivity_probes_total",
		Help:      "Connectivity probe results.",
	}, []string{"outcome"})
	m.dnsResets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "screen_setup",
		Name:      "dns_resets_total",
		Help:      "DNS reset attempts by outcome.",
	}, []string{"outcome"})
	m.dnsVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "screen_setup",
		Name:      "dns_verifications_total",
		Help:      "DNS verification checks by outcome.",
	}, []string{"outcome"})
	m.activations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "screen_setup",
		Name:      "activations_total",
		Help:      "Device activation calls by outcome.",
	}, []string{"outcome"})
	m.submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "screen_setup",
		Name:      "credential_submissions_total",
		Help:      "Portal credential submissions by outcome.",
	}, []string{"outcome"})
	m.attempt = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "screen_setup",
		Name:      "provisioning_attempt",
		Help:      "Retry attempts recorded for the current provisioning run.",
	})

	m.registry.MustRegister(
		m.stateTransitions,
		m.probes,
		m.dnsResets,
		m.dnsVerifications,
		m.activations,
		m.submissions,
		m.attempt,
	)
	return m
}

// Publish records a state change. Metrics implements provisioning.Sink so it
// can be fed straight from the machine.
func (m *Metrics) Publish(e provisioning.StatusEvent) {
	m.stateTransitions.WithLabelValues(string(e.State)).Inc()
	m.attempt.Set(float64(e.Attempt))
}

// ObserveSubmission counts a portal credential submission.
func (m *Metrics) ObserveSubmission(accepted bool) {
	m.submissions.WithLabelValues(boolOutcome(accepted, "accepted", "rejected")).Inc()
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Prober wraps next so every probe outcome is counted.
func (m *Metrics) Prober(next provisioning.Prober) provisioning.Prober {
	return &instrumentedProber{next: next, metrics: m}
}

// Resetter wraps next so DNS resets and verifications are counted.
func (m *Metrics) Resetter(next provisioning.DNSResetter) provisioning.DNSResetter {
	return &instrumentedResetter{next: next, metrics: m}
}

// Activator wraps next so activation outcomes are counted.
func (m *Metrics) Activator(next provisioning.Activator) provisioning.Activator {
	return &instrumentedActivator{next: next, metrics: m}
}

type instrumentedProber struct {
	next    provisioning.Prober
	metrics *Metrics
}

func (p *instrumentedProber) Online(ctx context.Context) bool {
	online := p.next.Online(ctx)
	p.metrics.probes.WithLabelValues(boolOutcome(online, "online", "offline")).Inc()
	return online
}

type instrumentedResetter struct {
	next    provisioning.DNSResetter
	metrics *Metrics
}

func (r *instrumentedResetter) Reset() error {
	err := r.next.Reset()
	r.metrics.dnsResets.WithLabelValues(errOutcome(err)).Inc()
	return err
}

func (r *instrumentedResetter) Verify() error {
	err := r.next.Verify()
	r.metrics.dnsVerifications.WithLabelValues(errOutcome(err)).Inc()
	return err
}

type instrumentedActivator struct {
	next    provisioning.Activator
	metrics *Metrics
}

func (a *instrumentedActivator) Activate(ctx context.Context) error {
	err := a.next.Activate(ctx)
	a.metrics.activations.WithLabelValues(errOutcome(err)).Inc()
	return err
}

func boolOutcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

func errOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
