package contract

import "github.com/ethereum/go-ethereum/common"

// Stage is a step of a state-changing call.
type Stage int

// Stages in the order they are reached.
const (
	StageSimulating Stage = iota + 1
	StageAwaitingSignature
	StageSubmitted
	StageConfirmed
)

func (s Stage) String() string {
	switch s {
	case StageSimulating:
		return "simulating"
	case StageAwaitingSignature:
		return "awaiting_signature"
	case StageSubmitted:
		return "submitted"
	case StageConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// CallOption configures a single state-changing call.
type CallOption func(*callConfig)

type callConfig struct {
	onStage func(Stage, common.Hash)
}

func newCallConfig(opts []CallOption) callConfig {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c callConfig) stage(s Stage, hash common.Hash) {
	if c.onStage != nil {
		c.onStage(s, hash)
	}
}

// WithStageHook calls h as the call enters each stage. The hash is zero
// until the transaction has been submitted.
func WithStageHook(h func(stage Stage, txHash common.Hash)) CallOption {
	return func(c *callConfig) {
		c.onStage = h
	}
}

// EmitStage reports s to the stage hook in opts, if there is one. It lets
// other implementations of the gateway operations report progress the same
// way the Gateway does.
func EmitStage(opts []CallOption, s Stage, txHash common.Hash) {
	newCallConfig(opts).stage(s, txHash)
}
