package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// State is the state of a settlement attempt.
type State string

// Attempt states.
const (
	StateIdle              State = "idle"
	StateValidating        State = "validating"
	StateSimulating        State = "simulating"
	StateAwaitingSignature State = "awaiting_signature"
	StateSubmitted         State = "submitted"
	StateConfirmed         State = "confirmed"
	StateFailed            State = "failed"
)

// stateOrder ranks the happy-path states. Failed is reachable from any
// non-terminal state.
//
//nolint:gochecknoglobals // lookup table
var stateOrder = map[State]int{
	StateIdle:              0,
	StateValidating:        1,
	StateSimulating:        2,
	StateAwaitingSignature: 3,
	StateSubmitted:         4,
	StateConfirmed:         5,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// Transition records a state change.
type Transition struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

// Attempt tracks one settlement from validation to confirmation or failure.
// States only move forward; a new submission always gets a new Attempt.
type Attempt struct {
	ID           string       `json:"id"`
	Operation    Operation    `json:"operation"`
	IdeaRef      string       `json:"idea"`
	IdeaID       uint64       `json:"idea_id,omitempty"`
	Investor     string       `json:"investor,omitempty"`
	NativeAmount string       `json:"native_amount,omitempty"`
	State        State        `json:"state"`
	TxHash       string       `json:"tx_hash,omitempty"`
	Result       string       `json:"result,omitempty"`
	FailureKind  string       `json:"failure_kind,omitempty"`
	FailureText  string       `json:"failure,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Transitions  []Transition `json:"transitions"`
}

// NewAttempt starts an attempt in the Idle state.
func NewAttempt(op Operation, ideaRef string) *Attempt {
	now := time.Now().UTC()
	return &Attempt{
		ID:          uuid.NewString(),
		Operation:   op,
		IdeaRef:     ideaRef,
		State:       StateIdle,
		CreatedAt:   now,
		UpdatedAt:   now,
		Transitions: []Transition{{State: StateIdle, At: now}},
	}
}

// Advance moves the attempt forward to s. Moving to the current or an
// earlier state, or out of a terminal state, is an error.
func (a *Attempt) Advance(s State) error {
	if a.State.Terminal() {
		return fmt.Errorf("attempt %s is %s: cannot move to %s", a.ID, a.State, s)
	}
	if s == StateFailed {
		return fmt.Errorf("attempt %s: use Fail to record a failure", a.ID)
	}
	to, ok := stateOrder[s]
	if !ok {
		return fmt.Errorf("attempt %s: unknown state %q", a.ID, s)
	}
	if to <= stateOrder[a.State] {
		return fmt.Errorf("attempt %s: cannot move from %s back to %s", a.ID, a.State, s)
	}
	a.set(s)
	return nil
}

// Fail moves the attempt to Failed, recording the error kind and reason.
// A confirmed attempt keeps its state and only records the error, which
// happens when a mined transaction's outcome cannot be read back.
func (a *Attempt) Fail(err error) {
	if a.State == StateFailed {
		return
	}
	a.FailureKind = ilerr.Code(err)
	a.FailureText = err.Error()
	a.Reason = ilerr.Reason(err)
	if hash := ilerr.Detail(err, ilerr.DetailTxHash); hash != "" && a.TxHash == "" {
		a.TxHash = hash
	}
	if a.State == StateConfirmed {
		a.UpdatedAt = time.Now().UTC()
		return
	}
	a.set(StateFailed)
}

// Snapshot returns a copy safe to hand to other goroutines.
func (a *Attempt) Snapshot() Attempt {
	out := *a
	out.Transitions = append([]Transition(nil), a.Transitions...)
	return out
}

func (a *Attempt) set(s State) {
	now := time.Now().UTC()
	a.State = s
	a.UpdatedAt = now
	a.Transitions = append(a.Transitions, Transition{State: s, At: now})
}
