package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-auth-otp/internal/domain"
)

// OTP purposes and verification outcomes used as label values.
const (
	PurposeRegistration = "registration"
	PurposeResend       = "resend"
	PurposeAdminLogin   = "admin_login"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the issuance counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	OTPIssued        *prometheus.CounterVec
	OTPVerifications *prometheus.CounterVec
	Logins           *prometheus.CounterVec
	TokensIssued     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		OTPIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_otp_issued_total",
			Help: "One-time codes generated, by purpose.",
		}, []string{"purpose"}),
		OTPVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_otp_verifications_total",
			Help: "One-time code checks, by result.",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts, by account type and result.",
		}, []string{"account_type", "result"}),
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Token pairs issued, by account type.",
		}, []string{"account_type"}),
	}
	reg.MustRegister(m.OTPIssued, m.OTPVerifications, m.Logins, m.TokensIssued)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OTPIssuedFor(purpose string) {
	if m == nil {
		return
	}
	m.OTPIssued.WithLabelValues(purpose).Inc()
}

func (m *Metrics) OTPChecked(ok bool) {
	if m == nil {
		return
	}
	m.OTPVerifications.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) LoginAttempt(t domain.AccountType, ok bool) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(string(t), result(ok)).Inc()
}

func (m *Metrics) TokensIssuedFor(t domain.AccountType) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(string(t)).Inc()
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}
