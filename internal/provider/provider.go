// Package provider defines the EIP-1193 style wallet provider IdeaLink talks
// to, along with a JSON-RPC backed implementation and a local development
// wallet that signs with keys held in memory.
//
// A Provider answers requests by JSON-RPC method name and publishes two
// events: accountsChanged with a JSON array of addresses, and chainChanged
// with a hex chain id.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/ethereum/go-ethereum/rpc"
)

// Event names.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

// JSON-RPC methods used by IdeaLink.
const (
	MethodRequestAccounts       = "eth_requestAccounts"
	MethodAccounts              = "eth_accounts"
	MethodChainID               = "eth_chainId"
	MethodGetBalance            = "eth_getBalance"
	MethodBlockNumber           = "eth_blockNumber"
	MethodCall                  = "eth_call"
	MethodEstimateGas           = "eth_estimateGas"
	MethodGasPrice              = "eth_gasPrice"
	MethodGetTransactionCount   = "eth_getTransactionCount"
	MethodSendTransaction       = "eth_sendTransaction"
	MethodSendRawTransaction    = "eth_sendRawTransaction"
	MethodGetTransactionReceipt = "eth_getTransactionReceipt"
)

// Provider error codes.
const (
	CodeUserRejected       = 4001
	CodeUnauthorized       = 4100
	CodeUnsupportedMethod  = 4200
	CodeDisconnected       = 4900
	CodeChainDisconnected  = 4901
	CodeRequestPending     = -32002
	CodeMethodNotFound     = -32601
	CodeInternal           = -32603
	CodeExecutionReverted  = 3
	CodeInvalidParams      = -32602
	CodeTransactionPending = -32000
)

// Provider is a wallet provider.
type Provider interface {
	// Request sends a JSON-RPC request and returns the raw result.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// On registers a handler for a provider event. The returned function
	// removes the handler.
	On(event string, handler func(payload json.RawMessage)) (unsubscribe func())

	// Close releases the provider's resources.
	Close() error
}

// RPCError is an error returned by a provider, normalized from whatever
// transport produced it.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode implements rpc.Error.
func (e *RPCError) ErrorCode() int { return e.Code }

// ErrorData implements rpc.DataError.
func (e *RPCError) ErrorData() any {
	if len(e.Data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return string(e.Data)
	}
	return v
}

var (
	_ rpc.Error     = (*RPCError)(nil)
	_ rpc.DataError = (*RPCError)(nil)
)

// NewRPCError creates an RPCError.
func NewRPCError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

// UserRejected is the error a wallet returns when its user declines a prompt.
func UserRejected() *RPCError {
	return NewRPCError(CodeUserRejected, "User rejected the request.")
}

// AsRPCError extracts a provider error from err. Errors from go-ethereum's
// rpc client are converted, keeping their code and data.
func AsRPCError(err error) (*RPCError, bool) {
	if err == nil {
		return nil, false
	}

	var re *RPCError
	if errors.As(err, &re) {
		return re, true
	}

	var ce rpc.Error
	if !errors.As(err, &ce) {
		return nil, false
	}

	out := &RPCError{Code: ce.ErrorCode(), Message: ce.Error()}
	var de rpc.DataError
	if errors.As(err, &de) && de.ErrorData() != nil {
		if raw, mErr := json.Marshal(de.ErrorData()); mErr == nil {
			out.Data = raw
		}
	}
	return out, true
}

// IsUserRejected reports whether err is a provider rejection (code 4001).
func IsUserRejected(err error) bool {
	re, ok := AsRPCError(err)
	return ok && re.Code == CodeUserRejected
}

// HasCode reports whether err is a provider error with the given code.
func HasCode(err error, code int) bool {
	re, ok := AsRPCError(err)
	return ok && re.Code == code
}

// IsTimeout reports whether err means the provider or network did not
// answer in time.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
