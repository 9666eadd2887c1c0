package settlement

import (
	"fmt"
	"sync"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// inFlight rejects a second concurrent submission of the same operation on
// the same idea by the same investor.
type inFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{keys: make(map[string]struct{})}
}

// acquire reserves the key and returns a release function.
func (g *inFlight) acquire(op Operation, ideaID uint64, investor string) (func(), error) {
	key := fmt.Sprintf("%s|%d|%s", op, ideaID, investor)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.keys[key]; busy {
		return nil, ilerr.WithDetails(ilerr.ErrSettlementInFlight, map[string]string{
			"operation": string(op),
			"idea":      FormatIdeaID(ideaID),
		})
	}
	g.keys[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.keys, key)
			g.mu.Unlock()
		})
	}, nil
}
