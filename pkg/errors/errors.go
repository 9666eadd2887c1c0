// Package errors provides structured error handling for IdeaLink.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
// The Code of an IdeaLinkError is the machine-readable error kind that
// callers switch on; the Message is what a user sees.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes.
const (
	ExitSuccess     = 0 // Successful execution
	ExitGeneral     = 1 // General/unknown error
	ExitInput       = 2 // Invalid input
	ExitRejected    = 3 // User declined the wallet prompt
	ExitNotFound    = 4 // Resource not found
	ExitPermission  = 5 // Permission denied or insufficient funds
	ExitUnavailable = 6 // Provider missing, not connected, or timed out
)

// Detail keys shared across packages.
const (
	DetailReason = "reason"
	DetailData   = "data"
	DetailTxHash = "tx_hash"
	DetailResult = "result"
)

// IdeaLinkError is the structured error type for IdeaLink.
type IdeaLinkError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *IdeaLinkError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *IdeaLinkError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for IdeaLinkError. Two errors match when their codes match.
func (e *IdeaLinkError) Is(target error) bool {
	var t *IdeaLinkError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &IdeaLinkError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &IdeaLinkError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &IdeaLinkError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrInsufficientFunds = &IdeaLinkError{
		Code:     "INSUFFICIENT_FUNDS",
		Message:  "insufficient funds for transaction",
		ExitCode: ExitPermission,
	}

	// Wallet session errors.
	ErrProviderUnavailable = &IdeaLinkError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "no wallet provider found",
		Suggestion: "Configure provider.wallet_url or create a development wallet with 'idealink devwallet create'",
		ExitCode:   ExitUnavailable,
	}

	ErrNotConnected = &IdeaLinkError{
		Code:       "NOT_CONNECTED",
		Message:    "wallet is not connected",
		Suggestion: "Connect your wallet and try again",
		ExitCode:   ExitUnavailable,
	}

	// Settlement input errors. These never reach the network.
	ErrInvalidIdeaID = &IdeaLinkError{
		Code:     "INVALID_IDEA_ID",
		Message:  "invalid idea identifier",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &IdeaLinkError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount",
		ExitCode: ExitInput,
	}

	ErrInvalidVestingDuration = &IdeaLinkError{
		Code:     "INVALID_VESTING_DURATION",
		Message:  "vesting duration must be a positive number of seconds",
		ExitCode: ExitInput,
	}

	ErrAmountMismatch = &IdeaLinkError{
		Code:     "AMOUNT_MISMATCH",
		Message:  "confirmed amount does not match the quoted amount",
		ExitCode: ExitInput,
	}

	ErrSettlementInFlight = &IdeaLinkError{
		Code:       "SETTLEMENT_IN_FLIGHT",
		Message:    "a settlement for this idea is already in progress",
		Suggestion: "Wait for the pending transaction to confirm before submitting again",
		ExitCode:   ExitInput,
	}

	// Contract and network errors.
	ErrSimulationReverted = &IdeaLinkError{
		Code:     "SIMULATION_REVERTED",
		Message:  "transaction simulation reverted",
		ExitCode: ExitGeneral,
	}

	ErrEstimationFailed = &IdeaLinkError{
		Code:     "ESTIMATION_FAILED",
		Message:  "gas estimation failed",
		ExitCode: ExitGeneral,
	}

	ErrUserRejected = &IdeaLinkError{
		Code:     "USER_REJECTED",
		Message:  "request rejected in wallet",
		ExitCode: ExitRejected,
	}

	ErrTransactionReverted = &IdeaLinkError{
		Code:     "TRANSACTION_REVERTED",
		Message:  "transaction reverted",
		ExitCode: ExitGeneral,
	}

	ErrTimeout = &IdeaLinkError{
		Code:       "TIMEOUT",
		Message:    "wallet or network did not respond in time",
		Suggestion: "Check your wallet and network connection",
		ExitCode:   ExitUnavailable,
	}

	// ErrTxHashUnreadable means the wallet accepted a transaction but its
	// answer was not a transaction hash. The transaction may be broadcast.
	ErrTxHashUnreadable = &IdeaLinkError{
		Code:       "TX_HASH_UNREADABLE",
		Message:    "wallet accepted the transaction but returned no readable hash",
		Suggestion: "The transaction may already be broadcast; check your wallet activity before retrying",
		ExitCode:   ExitGeneral,
	}

	ErrNetworkError = &IdeaLinkError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrCallFailed = &IdeaLinkError{
		Code:     "CALL_FAILED",
		Message:  "contract call failed",
		ExitCode: ExitGeneral,
	}

	ErrEventNotFound = &IdeaLinkError{
		Code:     "EVENT_NOT_FOUND",
		Message:  "expected contract event not found in receipt",
		ExitCode: ExitGeneral,
	}

	ErrInvalidAddress = &IdeaLinkError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidChecksum = &IdeaLinkError{
		Code:     "INVALID_CHECKSUM",
		Message:  "invalid address checksum",
		ExitCode: ExitInput,
	}

	// Development wallet errors.
	ErrKeystoreNotFound = &IdeaLinkError{
		Code:       "KEYSTORE_NOT_FOUND",
		Message:    "development wallet keystore not found",
		Suggestion: "Create one with 'idealink devwallet create'",
		ExitCode:   ExitNotFound,
	}

	ErrKeystoreExists = &IdeaLinkError{
		Code:     "KEYSTORE_EXISTS",
		Message:  "development wallet keystore already exists",
		ExitCode: ExitInput,
	}

	ErrInvalidMnemonic = &IdeaLinkError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrDecryptionFailed = &IdeaLinkError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong password or corrupted file",
		ExitCode: ExitPermission,
	}

	// Config errors.
	ErrConfigInvalid = &IdeaLinkError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &IdeaLinkError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
	}
)

// New creates a new IdeaLinkError with the given code and message.
func New(code, message string) *IdeaLinkError {
	return &IdeaLinkError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var le *IdeaLinkError
	if errors.As(err, &le) {
		return &IdeaLinkError{
			Code:       le.Code,
			Message:    fmt.Sprintf("%s: %s", msg, le.Message),
			Details:    le.Details,
			Suggestion: le.Suggestion,
			Cause:      err,
			ExitCode:   le.ExitCode,
		}
	}

	return &IdeaLinkError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error. Existing details are kept unless overridden.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var le *IdeaLinkError
	if errors.As(err, &le) {
		merged := make(map[string]string, len(le.Details)+len(details))
		for k, v := range le.Details {
			merged[k] = v
		}
		for k, v := range details {
			merged[k] = v
		}
		return &IdeaLinkError{
			Code:       le.Code,
			Message:    le.Message,
			Details:    merged,
			Suggestion: le.Suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &IdeaLinkError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var le *IdeaLinkError
	if errors.As(err, &le) {
		return &IdeaLinkError{
			Code:       le.Code,
			Message:    le.Message,
			Details:    le.Details,
			Suggestion: suggestion,
			Cause:      le.Cause,
			ExitCode:   le.ExitCode,
		}
	}

	return &IdeaLinkError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a sentinel error.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var le *IdeaLinkError
	if errors.As(err, &le) {
		return &IdeaLinkError{
			Code:       le.Code,
			Message:    le.Message,
			Details:    le.Details,
			Suggestion: le.Suggestion,
			Cause:      cause,
			ExitCode:   le.ExitCode,
		}
	}

	return fmt.Errorf("%w: %w", err, cause)
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var le *IdeaLinkError
	if errors.As(err, &le) {
		return le.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var le *IdeaLinkError
	if errors.As(err, &le) {
		return le.Code
	}
	return "GENERAL_ERROR"
}

// Detail returns a detail value from the outermost IdeaLinkError, or "".
func Detail(err error, key string) string {
	var le *IdeaLinkError
	if errors.As(err, &le) {
		return le.Details[key]
	}
	return ""
}

// Reason returns the decoded revert reason carried by err, if any.
func Reason(err error) string {
	return Detail(err, DetailReason)
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
