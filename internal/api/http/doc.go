// Package http exposes the policy engine to the browser shell as a JSON API.
//
// Navigation decisions, including blocks, answer 200; the decision body says
// what happened. Error statuses are reserved for malformed requests, unknown
// profiles and domains, and clear failures.
package http
