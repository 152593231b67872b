// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome constants for authentication metrics.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeRejected           = "rejected"
	OutcomeError              = "error"
)

// Logins is the counter for login attempts.
// Use RegisterMetrics to register this with a Prometheus registry.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gundem_logins_total",
		Help: "Total number of login attempts by outcome",
	},
	[]string{"outcome"},
)

// Registrations is the counter for registration attempts.
// Use RegisterMetrics to register this with a Prometheus registry.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gundem_registrations_total",
		Help: "Total number of registration attempts by outcome",
	},
	[]string{"outcome"},
)

// HashUpgrades is the counter for rehash-on-login credential upgrades.
// The "failure" status counts upgrade writes that did not persist; the login
// itself still succeeds in that case.
var HashUpgrades = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gundem_hash_upgrades_total",
		Help: "Total number of legacy-to-PBKDF2 credential upgrades by status",
	},
	[]string{"status"},
)

// ExternalProvisions is the counter for external-identity resolutions.
var ExternalProvisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gundem_external_provisions_total",
		Help: "Total number of external-identity resolutions by result",
	},
	[]string{"result"},
)

// SessionsSwept is the counter for expired sessions removed by the janitor.
var SessionsSwept = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "gundem_sessions_swept_total",
		Help: "Total number of expired sessions deleted",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus
// registry. This must be called at startup to make metrics available on
// /metrics. Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(Registrations)
	reg.MustRegister(HashUpgrades)
	reg.MustRegister(ExternalProvisions)
	reg.MustRegister(SessionsSwept)
}

// RecordLogin increments the login counter with the given outcome.
func RecordLogin(outcome string) {
	Logins.WithLabelValues(outcome).Inc()
}

// RecordRegistration increments the registration counter with the given outcome.
func RecordRegistration(outcome string) {
	Registrations.WithLabelValues(outcome).Inc()
}

// RecordHashUpgrade increments the hash upgrade counter.
func RecordHashUpgrade(status string) {
	HashUpgrades.WithLabelValues(status).Inc()
}

// RecordExternalProvision increments the external provision counter.
func RecordExternalProvision(result string) {
	ExternalProvisions.WithLabelValues(result).Inc()
}

// RecordSessionsSwept adds the number of deleted sessions to the sweep counter.
func RecordSessionsSwept(n int64) {
	if n > 0 {
		SessionsSwept.Add(float64(n))
	}
}
