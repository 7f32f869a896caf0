// Package observability builds the process logger and the Prometheus
// collectors for the RAG server.
//
// Request-scoped log fields (request id, tenant id) are read from the
// context populated by the middleware package.
package observability
