// Package metric provides Prometheus-based metrics collection and an HTTP
// server for scraping them.
//
// The package manages a private registry holding the core bridge metrics
// (frames in and out, drops, connection state, dispatch errors and latency)
// and any component metrics registered through MetricsRegistrar.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(":9100", "/metrics", registry)
//	server.Handle("/healthz", healthHandler)
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop(ctx)
//
//	core := registry.CoreMetrics()
//	core.RecordReceived(metric.KindCommand)
//	core.RecordConnectionStatus(true)
//
// # Core Metrics
//
// All core metrics live under the "ponybridge" namespace:
//
//   - messages_received_total{kind}: frames read from the gateway
//   - messages_sent_total{kind}: frames written to the gateway
//   - messages_dropped_total{reason}: outgoing frames discarded while offline
//   - connection_status: 1 while the gateway socket is open
//   - reconnect_attempts_total: connection attempts after a failure
//   - dispatch_errors_total{kind}: handler failures and protocol violations
//   - dispatch_duration_seconds{kind}: handler execution time
//
// # Component Metrics
//
// Components register their own collectors under a component key. Duplicate
// keys, and Prometheus name conflicts, are rejected with classified errors:
//
//	hits := prometheus.NewCounter(prometheus.CounterOpts{...})
//	if err := registry.RegisterCounter("network_bodies", "cache_hits", hits); err != nil {
//	    return err
//	}
package metric
