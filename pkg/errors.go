package giga

import (
	"fmt"
)

type ErrorCode string

const (
	BadRequest        ErrorCode = "bad-request"
	NotAvailable      ErrorCode = "not-available"
	NotFound          ErrorCode = "not-found"
	UnknownError      ErrorCode = "unknown-error"
	InvalidTxn        ErrorCode = "invalid-txn"
	MissingKey        ErrorCode = "missing-key"        // no private key for a spending address
	MissingSource     ErrorCode = "missing-source"     // UTXO lacks the source transaction needed to sign it
	InvalidChange     ErrorCode = "invalid-change"     // change address missing or of the wrong currency
	InsufficientFunds ErrorCode = "insufficient-funds" // selection could not cover a currency
	InstrumentBusy    ErrorCode = "instrument-busy"    // a TXCer is already locked by another draft
	SubmitFailed      ErrorCode = "submit-failed"      // settlement service rejected or was unreachable
)

type ErrorInfo struct {
	Code    ErrorCode // machine-readble ErrorCode enumeration
	Message string    // human-readable debug message (in production, logged on the server only)
}

func (e *ErrorInfo) Error() string {
	return string(e.Message)
}

func NewErr(code ErrorCode, format string, args ...any) error {
	return &ErrorInfo{Code: code, Message: fmt.Sprintf(format, args...)}
}

func IsNotFoundError(err error) bool {
	return IsError(err, NotFound)
}

func IsInsufficientFunds(err error) bool {
	return IsError(err, InsufficientFunds)
}

func IsError(err error, ofType ErrorCode) bool {
	if e, ok := err.(*ErrorInfo); ok {
		return e.Code == ofType
	}
	return false
}
