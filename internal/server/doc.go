// Package server implements the HTTP server for the raceday dashboard
// and API, including the Server-Sent Events stream of race updates.
package server
