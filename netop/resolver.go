package netop

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Indexes of the resolution strategies. The order is the preference order
// applied during the result reduction, not the execution order.
const (
	strategyExactID = iota
	strategyExactName
	strategyIDPrefix
	strategyCount
)

// Human-readable strategy names for the logs.
var strategyNames = [strategyCount]string{
	strategyExactID:   "exact id",
	strategyExactName: "exact name",
	strategyIDPrefix:  "id prefix",
}

// Result of a single resolution strategy: a definitive error, an empty
// match set, exactly one match or multiple matches.
type searchOutcome struct {
	records []NetworkOrPool
	err     error
}

// Resolves a user-supplied identifier - a name, a full platform network id
// or a prefix of one - to exactly one network or network pool. The three
// search strategies run concurrently, but the decision is made strictly by
// the fixed preference order: exact id, exact name, id prefix. Arrival
// order never influences the decision: a slower higher-preference match
// always overrides a faster lower-preference one. Errors of the
// non-winning strategies are logged and dropped.
func (manager *Manager) ResolveNetworkOrPool(identifier string, account string, traceID string) (NetworkOrPool, error) {
	if identifier == "" {
		return nil, NewValidationError("the network identifier must not be empty")
	}

	runners := [strategyCount]func() ([]NetworkOrPool, error){
		strategyExactID: func() ([]NetworkOrPool, error) {
			if !isFullPlatformID(identifier) {
				// Either not an id at all or an impossible one whose halves
				// differ. No real network can match it, so the remote call
				// is skipped.
				return nil, nil
			}
			return manager.SearchNetworksAndPools(SearchFilter{UUID: UUIDFromPlatformID(identifier)}, account, traceID)
		},
		strategyExactName: func() ([]NetworkOrPool, error) {
			return manager.SearchNetworksAndPools(SearchFilter{Name: identifier}, account, traceID)
		},
		strategyIDPrefix: func() ([]NetworkOrPool, error) {
			if !isPlatformIDPrefix(identifier) {
				return nil, nil
			}
			return manager.SearchNetworksAndPools(SearchFilter{UUID: UUIDFromPlatformID(identifier) + "*"}, account, traceID)
		},
	}

	// Launch all strategies and join their completions into the fixed-size
	// outcome set. Each strategy owns its slot, so no locking is needed.
	var outcomes [strategyCount]searchOutcome
	var wg sync.WaitGroup
	wg.Add(strategyCount)
	for i := range runners {
		go func(slot int) {
			defer wg.Done()
			records, err := runners[slot]()
			outcomes[slot] = searchOutcome{
				records: records,
				err:     err,
			}
		}(i)
	}
	wg.Wait()

	// Reduce the completed set by the preference order. The winner is the
	// first strategy that produced a non-empty match set; an error wins
	// only when no strategy matched anything.
	winner := chooseOutcome(outcomes[:])

	// The failures of the losing strategies are non-critical: a valid
	// result has been chosen regardless. Log them so a degraded fallback
	// path does not go fully unnoticed.
	for i := range outcomes {
		if i != winner && outcomes[i].err != nil {
			log.WithError(outcomes[i].err).WithFields(log.Fields{
				"identifier": identifier,
				"strategy":   strategyNames[i],
			}).Warning("Non-critical failure of a network resolution strategy")
		}
	}

	if winner < 0 {
		return nil, NewNetworkNotFoundError(identifier)
	}
	outcome := outcomes[winner]
	if outcome.err != nil {
		return nil, outcome.err
	}
	if len(outcome.records) > 1 {
		return nil, NewAmbiguousNetworkError(identifier)
	}
	return outcome.records[0], nil
}

// Picks the winning strategy from the completed outcome set: the first
// one, in the preference order, holding a non-empty match set, or - when
// nothing matched - the first one holding an error. An error of a
// higher-preference strategy never overrides a valid match of a lower
// one. Returns a negative index when all strategies came back empty. Pure.
func chooseOutcome(outcomes []searchOutcome) int {
	for i := range outcomes {
		if len(outcomes[i].records) > 0 {
			return i
		}
	}
	for i := range outcomes {
		if outcomes[i].err != nil {
			return i
		}
	}
	return -1
}
