// Package prometheus renders authflow client metrics in the Prometheus
// text exposition format, either as a string or as an http.Handler.
package prometheus
