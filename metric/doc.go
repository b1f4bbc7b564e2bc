// Package metric provides Prometheus instrumentation for plugins built on
// this SDK. A MetricsRegistry owns an isolated prometheus.Registry
// pre-populated with core connection and dispatch metrics plus Go runtime
// collectors; plugins register their own collectors through the
// MetricsRegistrar interface. Server exposes the registry over HTTP for
// scraping.
//
// Metrics are entirely optional. The client only records metrics when a
// registry is supplied, so plugins that do not care about observability pay
// nothing.
package metric
