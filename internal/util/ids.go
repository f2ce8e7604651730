// Package util provides small identifier helpers shared across the demo
// server's transport and job-tracking layers.
package util

import "github.com/google/uuid"

// NewReqID generates a request-correlation identifier for logs and
// response tracing headers.
func NewReqID() string {
	return uuid.NewString()
}
