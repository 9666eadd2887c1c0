package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/idealink/internal/provider"
	"github.com/mrz1836/idealink/internal/session"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// UnknownRevertReason is reported when neither the provider nor the revert
// data explain a revert.
const UnknownRevertReason = "transaction reverted for an unknown reason"

// maxErrorNesting bounds how deep wallet error payloads are searched.
const maxErrorNesting = 3

// Revert is a decoded revert.
type Revert struct {
	// Reason is the best available explanation.
	Reason string
	// Data is the raw revert data, hex encoded, if the provider returned any.
	Data string
}

// details renders the revert as error details.
func (r Revert) details() map[string]string {
	d := map[string]string{ilerr.DetailReason: r.Reason}
	if r.Data != "" {
		d[ilerr.DetailData] = r.Data
	}
	return d
}

// DecodeRevert explains a failed call. It uses the reason the provider
// supplied, then the contract's known errors applied to the revert data,
// and otherwise reports UnknownRevertReason with the raw data attached.
func DecodeRevert(err error) Revert {
	return decodeRevert(settlementABI, err)
}

func decodeRevert(contractABI abi.ABI, err error) Revert {
	var rev Revert

	re, ok := provider.AsRPCError(err)
	if ok {
		var reason string
		reason, rev.Data = errorPayload(re.Message, re.Data, 0)
		if reason != "" {
			rev.Reason = reason
			return rev
		}
	}

	if reason, ok := decodeRevertData(contractABI, rev.Data); ok {
		rev.Reason = reason
		return rev
	}

	rev.Reason = UnknownRevertReason
	return rev
}

// errorPayload extracts a revert reason and revert data from a provider
// error. Wallets wrap node errors in different ways, so the data field may
// be a hex string, a plain reason, or an object with nested errors.
func errorPayload(message string, data json.RawMessage, depth int) (reason, revertData string) {
	reason = reasonFromMessage(message)
	if len(data) == 0 || depth > maxErrorNesting {
		return reason, ""
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if strings.HasPrefix(s, "0x") {
			return reason, s
		}
		if reason == "" {
			reason = reasonFromMessage(s)
		}
		return reason, ""
	}

	var obj struct {
		Reason        string          `json:"reason"`
		Message       string          `json:"message"`
		Data          json.RawMessage `json:"data"`
		OriginalError json.RawMessage `json:"originalError"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return reason, ""
	}

	if reason == "" {
		reason = obj.Reason
	}
	nestedReason, nestedData := errorPayload(obj.Message, obj.Data, depth+1)
	if reason == "" {
		reason = nestedReason
	}
	revertData = nestedData

	if len(obj.OriginalError) > 0 {
		var orig struct {
			Message string          `json:"message"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(obj.OriginalError, &orig); err == nil {
			origReason, origData := errorPayload(orig.Message, orig.Data, depth+1)
			if reason == "" {
				reason = origReason
			}
			if revertData == "" {
				revertData = origData
			}
		}
	}
	return reason, revertData
}

// reasonFromMessage returns the reason string nodes append to revert
// messages, or "" when the message carries none.
func reasonFromMessage(message string) string {
	for _, prefix := range []string{
		"execution reverted: ",
		"VM Exception while processing transaction: revert ",
	} {
		if rest, ok := strings.CutPrefix(message, prefix); ok {
			return strings.TrimSpace(rest)
		}
	}

	const marker = "reverted with reason string '"
	if i := strings.Index(message, marker); i >= 0 {
		rest := message[i+len(marker):]
		if j := strings.LastIndex(rest, "'"); j >= 0 {
			return rest[:j]
		}
	}
	return ""
}

// decodeRevertData decodes Error(string), Panic(uint256) and the contract's
// custom errors.
func decodeRevertData(contractABI abi.ABI, hexData string) (string, bool) {
	if hexData == "" {
		return "", false
	}
	data, err := hexutil.Decode(hexData)
	if err != nil || len(data) < 4 {
		return "", false
	}

	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason, true
	}

	for _, abiErr := range contractABI.Errors {
		if !bytes.Equal(abiErr.ID[:4], data[:4]) {
			continue
		}
		unpacked, err := abiErr.Unpack(data)
		if err != nil {
			return abiErr.Name, true
		}
		values, _ := unpacked.([]any)
		return formatCustomError(abiErr.Name, values), true
	}
	return "", false
}

func formatCustomError(name string, values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case common.Address:
			parts[i] = val.Hex()
		case *big.Int:
			parts[i] = val.String()
		case []byte:
			parts[i] = hexutil.Encode(val)
		default:
			parts[i] = fmt.Sprint(val)
		}
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

// isRevert reports whether a provider error means the EVM reverted, as
// opposed to a transport or request failure.
func isRevert(re *provider.RPCError) bool {
	if re.Code == provider.CodeExecutionReverted {
		return true
	}
	msg := strings.ToLower(re.Message)
	return strings.Contains(msg, "revert") || strings.Contains(msg, "invalid opcode")
}

// callError maps an eth_call failure to kind, or to a timeout or network
// error when the contract never ran.
func (g *Gateway) callError(kind *ilerr.IdeaLinkError, err error) error {
	if provider.IsTimeout(err) {
		return ilerr.WithCause(ilerr.ErrTimeout, err)
	}
	re, ok := provider.AsRPCError(err)
	if !ok {
		return ilerr.WithCause(ilerr.ErrNetworkError, err)
	}
	if strings.Contains(strings.ToLower(re.Message), "insufficient funds") {
		return ilerr.WithCause(ilerr.ErrInsufficientFunds, err)
	}
	if !isRevert(re) {
		return ilerr.WithCause(ilerr.ErrNetworkError, err)
	}
	return ilerr.WithCause(ilerr.WithDetails(kind, decodeRevert(g.abi, err).details()), err)
}

// sendError maps an eth_sendTransaction failure.
func sendError(err error) error {
	switch {
	case ilerr.Is(err, ilerr.ErrNotConnected), ilerr.Is(err, ilerr.ErrTxHashUnreadable):
		return err
	case provider.IsUserRejected(err):
		return ilerr.WithCause(ilerr.ErrUserRejected, err)
	case provider.IsTimeout(err):
		return ilerr.WithCause(ilerr.ErrTimeout, err)
	}

	re, ok := provider.AsRPCError(err)
	if !ok {
		return ilerr.Wrap(ilerr.WithCause(ilerr.ErrNetworkError, err), "sending transaction")
	}
	switch {
	case re.Code == provider.CodeUnauthorized || re.Code == provider.CodeDisconnected || re.Code == provider.CodeChainDisconnected:
		return ilerr.WithCause(ilerr.ErrNotConnected, err)
	case strings.Contains(strings.ToLower(re.Message), "insufficient funds"):
		return ilerr.WithCause(ilerr.ErrInsufficientFunds, err)
	case isRevert(re):
		return ilerr.WithCause(ilerr.WithDetails(ilerr.ErrSimulationReverted, DecodeRevert(err).details()), err)
	default:
		return ilerr.Wrap(ilerr.WithCause(ilerr.ErrNetworkError, err), "sending transaction")
	}
}

// minedRevertError explains a transaction that was mined with a failure
// status by replaying it against the block it was mined in.
func (g *Gateway) minedRevertError(ctx context.Context, signer *session.Signer, args provider.TxArgs, rcpt *Receipt) error {
	rev := Revert{Reason: UnknownRevertReason}

	block := "latest"
	if rcpt.BlockNumber != nil {
		block = hexutil.EncodeBig(rcpt.BlockNumber.ToInt())
	}
	if _, err := signer.Request(ctx, provider.MethodCall, args, block); err != nil {
		rev = decodeRevert(g.abi, err)
	}

	details := rev.details()
	details[ilerr.DetailTxHash] = rcpt.TxHash.Hex()
	return ilerr.WithDetails(ilerr.ErrTransactionReverted, details)
}
