// Package observability exports case-run counters to Prometheus.
//
// A Collector is a ptest.Observer: attach it to a Runner with
// ptest.WithObserver and it counts finished runs by verdict, advanced
// cycles and soft assertions by result. Batch runs write the counters to a
// node-exporter textfile with WriteTextfile.
package observability
