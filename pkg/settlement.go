package giga

import (
	"context"
	"errors"
)

// SubmitResult is the settlement service's answer to a submission.
type SubmitResult struct {
	Success bool   `json:"success"`
	TXID    string `json:"txid"`  // settlement transaction id, on success
	Error   string `json:"error"` // reason for rejection
}

// Submitter delivers a signed envelope (canonical bytes) to the settlement
// service for a guarantor group. A rejection is a result with Success false;
// an error means the outcome is unknown, unless it is a NotSentError.
type Submitter interface {
	Submit(ctx context.Context, envelope []byte, groupID string) (SubmitResult, error)
}

// NotSentError is a submission failure where the envelope never reached the
// settlement service (no connection, or cancelled before the request was
// written). Nothing can settle from it.
type NotSentError struct {
	Err error
}

func (e NotSentError) Error() string {
	return "not sent: " + e.Err.Error()
}

func (e NotSentError) Unwrap() error {
	return e.Err
}

func IsNotSent(err error) bool {
	var ns NotSentError
	return errors.As(err, &ns)
}
