package receive

import (
	"encoding/json"
	"errors"
	"fmt"
)

type ErrorCode string

// Well-known BIP78 error codes.
const (
	CodeUnavailable          ErrorCode = "unavailable"
	CodeNotEnoughMoney       ErrorCode = "not-enough-money"
	CodeVersionUnsupported   ErrorCode = "version-unsupported"
	CodeOriginalPsbtRejected ErrorCode = "original-psbt-rejected"
)

var publicMessages = map[ErrorCode]string{
	CodeUnavailable:          "The payjoin endpoint is not available for now.",
	CodeNotEnoughMoney:       "The receiver added some inputs but could not bump the fee of the payjoin proposal.",
	CodeVersionUnsupported:   "This version of payjoin is not supported.",
	CodeOriginalPsbtRejected: "The receiver rejected the original PSBT.",
}

var (
	ErrInputsOwned                = errors.New("original spends receiver inputs")
	ErrMixedInputScripts          = errors.New("original mixes input script types")
	ErrInputSeen                  = errors.New("original spends an input seen before")
	ErrNoReceiverOutput           = errors.New("original pays no receiver output")
	ErrNotBroadcastable           = errors.New("original is not broadcastable")
	ErrFeeRateTooLow              = errors.New("original fee rate below minimum")
	ErrOutputSubstitutionDisabled = errors.New("output substitution disabled by sender")
	ErrAlreadySubstituted         = errors.New("receiver output already substituted")
	ErrAlreadyContributed         = errors.New("receiver already contributed an input")
	ErrNotWitnessInput            = errors.New("contributed input is not a witness output")
	ErrSelectionFailed            = errors.New("no privacy preserving input candidate")
	ErrUnsignedReceiverInput      = errors.New("contributed input left unsigned")
)

// Error is the only error a receiver ever reports to its peer. The public
// rendering depends on Code alone; the wrapped cause stays local.
type Error struct {
	Code  ErrorCode
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

type wireError struct {
	ErrorCode ErrorCode `json:"errorCode"`
	Message   string    `json:"message"`
	Supported []int     `json:"supported,omitempty"`
}

// Body renders the BIP78 JSON error document.
func (e *Error) Body() []byte {
	msg := wireError{ErrorCode: e.Code, Message: publicMessages[e.Code]}
	if e.Code == CodeVersionUnsupported {
		msg.Supported = supportedVersions
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return []byte(`{"errorCode":"unavailable"}`)
	}
	return body
}

func rejected(err error) *Error {
	return &Error{Code: CodeOriginalPsbtRejected, cause: err}
}

func unavailable(err error) *Error {
	return &Error{Code: CodeUnavailable, cause: err}
}

// AsError coerces any error into a receiver Error, defaulting to unavailable.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var pjErr *Error
	if errors.As(err, &pjErr) {
		return pjErr
	}
	return unavailable(err)
}
