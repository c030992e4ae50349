// Package httpserver provides the HTTP server hosting the portfolio API. It
// wraps the API routes with request logging, exposes health and drain
// endpoints for load balancers, and runs the Prometheus metrics listener
// alongside the API listener.
package httpserver
