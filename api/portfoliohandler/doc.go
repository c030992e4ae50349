// Package portfoliohandler implements the HTTP surface of the confidential
// portfolio service: authenticated submission and decryption-request
// endpoints, the proof-verified oracle callback, and the public read
// endpoint. It also provides a signing HTTP client for the same API.
package portfoliohandler
