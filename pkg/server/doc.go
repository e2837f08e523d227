// Package server exposes an element engine over HTTP.
//
// The inspection API lists registered types and pending requests, accepts
// new definitions and declarations, and streams lifecycle events over a
// WebSocket:
//
//	GET  /healthz             liveness and engine counters
//	GET  /elements            registered prototypes
//	GET  /elements/{name}     one registered prototype
//	GET  /pending             requests that are still waiting
//	POST /definitions         define a script (rate limited)
//	POST /declarations        request a registration (rate limited)
//	POST /documents           apply a JSON, YAML, or HCL document (rate limited)
//	GET  /events              lifecycle event stream (WebSocket)
//	GET  /metrics             Prometheus metrics, when configured
//
// Errors are JSON objects carrying the coded error:
//
//	{"error": {"code": "E221", "message": "Element not found", ...}, "requestId": "..."}
package server
