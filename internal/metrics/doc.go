// Package metrics records compile pipeline observations.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	svc := compile.NewService(cfg, deps)             // NoopRecorder
//	svc.WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// The Prometheus implementation can be scraped over HTTP (HTTPHandler, used by
// watch mode) or dumped to a node_exporter textfile after a one-shot compile
// (WriteTextfile).
package metrics
