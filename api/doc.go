// Package api defines the wire types and headers shared by the portfolio
// service's HTTP handlers and clients.
package api
