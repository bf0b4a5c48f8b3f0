// Package id generates identifiers used to correlate log lines.
//
//   - UUID: random UUID v4, used as the request ID of every proxied request
//   - RequestID: reuses a safe caller-supplied ID, otherwise a new UUID
package id
