package internaldefs

import (
	authflow "github.com/evergrow360/authflow"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// CounterDefs maps every client counter onto its exported name.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricCallSuccess, Name: "authflow_call_success_total", Help: "Business calls that returned a 2xx status."},
	{ID: authflow.MetricCallUnauthorized, Name: "authflow_call_unauthorized_total", Help: "401 responses observed on business calls."},
	{ID: authflow.MetricCallRetried, Name: "authflow_call_retried_total", Help: "Calls re-dispatched after a successful refresh."},
	{ID: authflow.MetricCallTransportError, Name: "authflow_call_transport_error_total", Help: "Network failures and timeouts."},
	{ID: authflow.MetricCallServerError, Name: "authflow_call_server_error_total", Help: "Non-401 error statuses."},
	{ID: authflow.MetricLoginSuccess, Name: "authflow_login_success_total", Help: "Successful logins and registrations."},
	{ID: authflow.MetricLoginFailure, Name: "authflow_login_failure_total", Help: "Rejected logins and registrations."},
	{ID: authflow.MetricLogout, Name: "authflow_logout_total", Help: "Logout operations."},
	{ID: authflow.MetricRefreshSuccess, Name: "authflow_refresh_success_total", Help: "Refresh calls that produced a new credential pair."},
	{ID: authflow.MetricRefreshFailure, Name: "authflow_refresh_failure_total", Help: "Refresh attempts that ended the session."},
	{ID: authflow.MetricRefreshCoalesced, Name: "authflow_refresh_coalesced_total", Help: "Callers that shared an in-flight refresh."},
	{ID: authflow.MetricRefreshProactive, Name: "authflow_refresh_proactive_total", Help: "Refreshes triggered by the scheduler ahead of expiry."},
	{ID: authflow.MetricPersistFailure, Name: "authflow_persist_failure_total", Help: "Best-effort credential storage writes that failed."},
}

// HistogramDefs maps every client histogram onto its exported name.
var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricCallLatency, Name: "authflow_call_latency_seconds", Help: "Business-call latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, Prometheus
// formatting.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters OTel
// instrument names allow.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// both exporters emit.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
