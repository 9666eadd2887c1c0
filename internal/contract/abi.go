// Package contract binds the IdeaLink settlement contract.
//
// The Gateway is the only component that builds or sends transactions. Every
// state-changing call is simulated with eth_call first and never reaches the
// wallet if the simulation reverts. Gas is estimated with a safety margin and
// falls back to a fixed limit when estimation fails. The call then blocks
// until the transaction is confirmed.
package contract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultAddress is the settlement contract deployed on Avalanche C-Chain.
//
//nolint:gochecknoglobals // fixed deployment address
var DefaultAddress = common.HexToAddress("0xD5c64211e39CB3b6D2474AF4FD963ad0fdd9F2cF")

// Contract method, event and error names.
const (
	MethodPurchaseIdea       = "purchaseIdea"
	MethodDeposit            = "deposit"
	MethodRelease            = "release"
	MethodVestedAmount       = "vestedAmount"
	MethodReleasableAmount   = "releasableAmount"
	MethodInvestedAmount     = "investedAmount"
	MethodReleasedAmount     = "releasedAmount"
	MethodVestings           = "vestings"
	MethodTotalInvested      = "totalAVAXInvested"
	MethodRate               = "RATE"
	MethodToken              = "token"
	MethodOwner              = "owner"
	EventDeposited           = "Deposited"
	EventReleased            = "Released"
	ErrorUnauthorizedAccount = "OwnableUnauthorizedAccount"
)

// SettlementABI is the JSON ABI of the settlement contract.
const SettlementABI = `[
	{"type":"function","name":"purchaseIdea","stateMutability":"payable",
	 "inputs":[{"name":"ideaId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"deposit","stateMutability":"payable",
	 "inputs":[{"name":"ideaId","type":"uint256"},{"name":"vestingDuration","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"release","stateMutability":"nonpayable",
	 "inputs":[{"name":"ideaId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"vestedAmount","stateMutability":"view",
	 "inputs":[{"name":"ideaId","type":"uint256"},{"name":"investor","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"releasableAmount","stateMutability":"view",
	 "inputs":[{"name":"ideaId","type":"uint256"},{"name":"investor","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"investedAmount","stateMutability":"view",
	 "inputs":[{"name":"ideaId","type":"uint256"},{"name":"investor","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"releasedAmount","stateMutability":"view",
	 "inputs":[{"name":"ideaId","type":"uint256"},{"name":"investor","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"vestings","stateMutability":"view",
	 "inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],
	 "outputs":[{"name":"totalAmount","type":"uint256"},{"name":"released","type":"uint256"},
	            {"name":"start","type":"uint256"},{"name":"duration","type":"uint256"}]},
	{"type":"function","name":"totalAVAXInvested","stateMutability":"view",
	 "inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"RATE","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"token","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"Deposited","anonymous":false,
	 "inputs":[{"name":"ideaId","type":"uint256","indexed":true},
	           {"name":"investor","type":"address","indexed":true},
	           {"name":"avaxAmount","type":"uint256","indexed":false},
	           {"name":"tokenAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Released","anonymous":false,
	 "inputs":[{"name":"ideaId","type":"uint256","indexed":true},
	           {"name":"investor","type":"address","indexed":true},
	           {"name":"amount","type":"uint256","indexed":false}]},
	{"type":"error","name":"OwnableInvalidOwner","inputs":[{"name":"owner","type":"address"}]},
	{"type":"error","name":"OwnableUnauthorizedAccount","inputs":[{"name":"account","type":"address"}]}
]`

//nolint:gochecknoglobals // parsed once from a constant
var settlementABI = mustParseABI(SettlementABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parsing settlement ABI: %v", err))
	}
	return parsed
}

// ABI returns the parsed settlement contract ABI.
func ABI() abi.ABI {
	return settlementABI
}
