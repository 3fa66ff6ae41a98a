// Package netop implements the network-management orchestration of the
// docknet shim: it resolves Docker-style network identifiers to the records
// owned by the remote network service and provisions new fabric networks
// with their VLAN segments.
package netop

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/docknetio/docknet/netapi"
)

// NetworkService specifies the part of the network service API consumed by
// the manager. It is implemented by the netapi.Client.
type NetworkService interface {
	ListNetworks(filter netapi.ListFilter, traceID string) ([]*netapi.Network, error)
	ListNetworkPools(filter netapi.ListFilter, traceID string) ([]*netapi.NetworkPool, error)
	GetFabricVLAN(account string, vlanID int, traceID string) (*netapi.FabricVLAN, error)
	ListFabricVLANs(account string, traceID string) ([]*netapi.FabricVLAN, error)
	CreateFabricVLAN(account string, vlan netapi.FabricVLAN, traceID string) (*netapi.FabricVLAN, error)
	DeleteFabricVLAN(account string, vlanID int, traceID string) error
	CreateFabricNetwork(account string, vlanID int, params netapi.FabricNetworkParams, traceID string) (*netapi.Network, error)
	DeleteFabricNetwork(account string, vlanID int, networkUUID string, traceID string) error
}

// A result union of the network searches. It is implemented by both the
// netapi.Network and netapi.NetworkPool records.
type NetworkOrPool interface {
	GetUUID() string
	GetName() string
	IsPool() bool
}

var _ NetworkService = (*netapi.Client)(nil)

// Manager orchestrates the network operations against the remote network
// service. The service client is injected by the caller and reused for the
// process lifetime; the manager itself holds no mutable state, so it is
// safe for concurrent use.
type Manager struct {
	service NetworkService
}

// Instantiates the manager with the given network service client.
func NewManager(service NetworkService) *Manager {
	return &Manager{
		service: service,
	}
}

// Returns all networks and network pools provisionable by the account.
// The member networks of the pools are excluded from the listing by the
// service. A service lacking the pool support reports 404 for the pool
// listing which is treated as an empty pool set.
func (manager *Manager) ListNetworks(account string, traceID string) ([]NetworkOrPool, error) {
	networks, err := manager.service.ListNetworks(netapi.ListFilter{ProvisionableBy: account}, traceID)
	if err != nil && !netapi.IsNotFound(err) {
		return nil, errors.WithMessage(err, "unable to list networks")
	}
	records := networkRecords(networks)
	pools, err := manager.service.ListNetworkPools(netapi.ListFilter{ProvisionableBy: account}, traceID)
	if err != nil && !netapi.IsNotFound(err) {
		return nil, errors.WithMessage(err, "unable to list network pools")
	}
	return append(records, poolRecords(pools)...), nil
}

// Removes a fabric network previously created through the shim. Network
// pools and the shared networks not owned by the fabric are rejected.
func (manager *Manager) DeleteNetwork(identifier string, account string, traceID string) error {
	record, err := manager.ResolveNetworkOrPool(identifier, account, traceID)
	if err != nil {
		return err
	}
	network, ok := record.(*netapi.Network)
	if !ok {
		return NewValidationError("network pools cannot be removed")
	}
	if !network.Fabric {
		return NewValidationError(fmt.Sprintf("the network %s is not a fabric network and cannot be removed", network.Name))
	}
	if err := manager.service.DeleteFabricNetwork(account, network.VLANID, network.UUID, traceID); err != nil {
		return errors.WithMessage(err, "unable to delete the fabric network")
	}
	return nil
}

// Converts the network records to the search result union.
func networkRecords(networks []*netapi.Network) []NetworkOrPool {
	records := []NetworkOrPool{}
	for _, network := range networks {
		records = append(records, network)
	}
	return records
}

// Converts the network pool records to the search result union.
func poolRecords(pools []*netapi.NetworkPool) []NetworkOrPool {
	records := []NetworkOrPool{}
	for _, pool := range pools {
		records = append(records, pool)
	}
	return records
}
