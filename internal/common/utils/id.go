// Package utils provides ID generation and retry helpers used throughout
// the meeting orchestration core.
package utils

import (
	"fmt"
	"time"
)

// GenerateConferenceRequestID generates an idempotency request id for
// conference creation, derived from the current time. Calendar providers
// dedupe conference allocation on this id, so accidental retries of the
// same logical create are safe.
func GenerateConferenceRequestID() string {
	return fmt.Sprintf("conf-%d", time.Now().UnixNano())
}
