package netop

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/docknetio/docknet/netapi"
)

// Filter of a single network search. Exactly one of Name or UUID must be
// set. The UUID may end with the '*' wildcard to request a prefix search.
type SearchFilter struct {
	Name string
	UUID string
}

// A single search strategy attempted by SearchNetworksAndPools.
type searchStrategy struct {
	// Operation name used in the error context and logs.
	name string
	run  func() ([]NetworkOrPool, error)
}

// Searches for the networks and network pools matching the filter. Up to
// four queries are attempted in order, stopping at the first that yields a
// non-empty match list: the native network list, a client-side prefix scan
// over all networks (a fallback for the older services lacking the native
// prefix support), the native pool list and the client-side prefix scan
// over the pools. The prefix fallbacks are skipped for the name filters
// because names cannot be prefix-searched. A 404 or an empty list reported
// by one query never blocks trying the next one; an error is returned only
// when every attempted query failed with a genuine service error.
func (manager *Manager) SearchNetworksAndPools(filter SearchFilter, account string, traceID string) ([]NetworkOrPool, error) {
	if (filter.Name == "") == (filter.UUID == "") {
		return nil, NewValidationError("exactly one of the name or uuid search criteria must be specified")
	}
	listFilter := netapi.ListFilter{
		Name:            filter.Name,
		UUID:            filter.UUID,
		ProvisionableBy: account,
	}
	if err := listFilter.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}
	prefixSearch := strings.HasSuffix(filter.UUID, "*")
	uuidPrefix := strings.TrimSuffix(filter.UUID, "*")

	strategies := []searchStrategy{{
		name: "networks",
		run: func() ([]NetworkOrPool, error) {
			networks, err := manager.service.ListNetworks(listFilter, traceID)
			return networkRecords(networks), err
		},
	}}
	if prefixSearch {
		strategies = append(strategies, searchStrategy{
			name: "networks by the uuid prefix",
			run: func() ([]NetworkOrPool, error) {
				networks, err := manager.service.ListNetworks(netapi.ListFilter{ProvisionableBy: account}, traceID)
				if err != nil {
					return nil, err
				}
				matched := []NetworkOrPool{}
				for _, network := range networks {
					if strings.HasPrefix(network.UUID, uuidPrefix) {
						matched = append(matched, network)
					}
				}
				return matched, nil
			},
		})
	}
	strategies = append(strategies, searchStrategy{
		name: "network pools",
		run: func() ([]NetworkOrPool, error) {
			pools, err := manager.service.ListNetworkPools(listFilter, traceID)
			return poolRecords(pools), err
		},
	})
	if prefixSearch {
		strategies = append(strategies, searchStrategy{
			name: "network pools by the uuid prefix",
			run: func() ([]NetworkOrPool, error) {
				pools, err := manager.service.ListNetworkPools(netapi.ListFilter{ProvisionableBy: account}, traceID)
				if err != nil {
					return nil, err
				}
				matched := []NetworkOrPool{}
				for _, pool := range pools {
					if strings.HasPrefix(pool.UUID, uuidPrefix) {
						matched = append(matched, pool)
					}
				}
				return matched, nil
			},
		})
	}

	var failures []error
	for _, strategy := range strategies {
		records, err := strategy.run()
		if err != nil {
			if netapi.IsNotFound(err) {
				// The service reported no such resources. Fall through to
				// the next query.
				continue
			}
			log.WithError(err).WithField("query", strategy.name).
				Debug("Network search query failed, trying the next one")
			failures = append(failures, errors.WithMessagef(err, "unable to list %s", strategy.name))
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
	}
	if len(failures) > 0 && len(failures) == len(strategies) {
		// Every query failed with a genuine error, so there is nothing to
		// degrade to.
		return nil, failures[0]
	}
	return []NetworkOrPool{}, nil
}
