package netop

import (
	"sync"

	"github.com/docknetio/docknet/netapi"
)

// A fake network service recording the calls made by the tested code. The
// behavior of each operation is overridden with a function field; a nil
// field yields an empty success. The recording is guarded by a mutex
// because the resolver issues its searches concurrently.
type fakeNetworkService struct {
	mutex sync.Mutex

	listNetworksFn        func(filter netapi.ListFilter, traceID string) ([]*netapi.Network, error)
	listNetworkPoolsFn    func(filter netapi.ListFilter, traceID string) ([]*netapi.NetworkPool, error)
	getFabricVLANFn       func(account string, vlanID int, traceID string) (*netapi.FabricVLAN, error)
	listFabricVLANsFn     func(account string, traceID string) ([]*netapi.FabricVLAN, error)
	createFabricVLANFn    func(account string, vlan netapi.FabricVLAN, traceID string) (*netapi.FabricVLAN, error)
	deleteFabricVLANFn    func(account string, vlanID int, traceID string) error
	createFabricNetworkFn func(account string, vlanID int, params netapi.FabricNetworkParams, traceID string) (*netapi.Network, error)
	deleteFabricNetworkFn func(account string, vlanID int, networkUUID string, traceID string) error

	networkFilters      []netapi.ListFilter
	poolFilters         []netapi.ListFilter
	getVLANCalls        int
	listVLANCalls       int
	createdVLANIDs      []int
	deletedVLANIDs      []int
	createdNetworks     []netapi.FabricNetworkParams
	deletedNetworkUUIDs []string
}

var _ NetworkService = (*fakeNetworkService)(nil)

func (fake *fakeNetworkService) ListNetworks(filter netapi.ListFilter, traceID string) ([]*netapi.Network, error) {
	fake.mutex.Lock()
	fake.networkFilters = append(fake.networkFilters, filter)
	fake.mutex.Unlock()
	if fake.listNetworksFn == nil {
		return []*netapi.Network{}, nil
	}
	return fake.listNetworksFn(filter, traceID)
}

func (fake *fakeNetworkService) ListNetworkPools(filter netapi.ListFilter, traceID string) ([]*netapi.NetworkPool, error) {
	fake.mutex.Lock()
	fake.poolFilters = append(fake.poolFilters, filter)
	fake.mutex.Unlock()
	if fake.listNetworkPoolsFn == nil {
		return []*netapi.NetworkPool{}, nil
	}
	return fake.listNetworkPoolsFn(filter, traceID)
}

func (fake *fakeNetworkService) GetFabricVLAN(account string, vlanID int, traceID string) (*netapi.FabricVLAN, error) {
	fake.mutex.Lock()
	fake.getVLANCalls++
	fake.mutex.Unlock()
	if fake.getFabricVLANFn == nil {
		return &netapi.FabricVLAN{VLANID: vlanID}, nil
	}
	return fake.getFabricVLANFn(account, vlanID, traceID)
}

func (fake *fakeNetworkService) ListFabricVLANs(account string, traceID string) ([]*netapi.FabricVLAN, error) {
	fake.mutex.Lock()
	fake.listVLANCalls++
	fake.mutex.Unlock()
	if fake.listFabricVLANsFn == nil {
		return []*netapi.FabricVLAN{}, nil
	}
	return fake.listFabricVLANsFn(account, traceID)
}

func (fake *fakeNetworkService) CreateFabricVLAN(account string, vlan netapi.FabricVLAN, traceID string) (*netapi.FabricVLAN, error) {
	fake.mutex.Lock()
	fake.createdVLANIDs = append(fake.createdVLANIDs, vlan.VLANID)
	fake.mutex.Unlock()
	if fake.createFabricVLANFn == nil {
		return &vlan, nil
	}
	return fake.createFabricVLANFn(account, vlan, traceID)
}

func (fake *fakeNetworkService) DeleteFabricVLAN(account string, vlanID int, traceID string) error {
	fake.mutex.Lock()
	fake.deletedVLANIDs = append(fake.deletedVLANIDs, vlanID)
	fake.mutex.Unlock()
	if fake.deleteFabricVLANFn == nil {
		return nil
	}
	return fake.deleteFabricVLANFn(account, vlanID, traceID)
}

func (fake *fakeNetworkService) CreateFabricNetwork(account string, vlanID int, params netapi.FabricNetworkParams, traceID string) (*netapi.Network, error) {
	fake.mutex.Lock()
	fake.createdNetworks = append(fake.createdNetworks, params)
	fake.mutex.Unlock()
	if fake.createFabricNetworkFn == nil {
		return &netapi.Network{
			UUID:   "a8b25d3a-9fd3-44d8-bfbd-b01d0a4cef8a",
			Name:   params.Name,
			Subnet: params.Subnet,
			VLANID: vlanID,
			Fabric: true,
		}, nil
	}
	return fake.createFabricNetworkFn(account, vlanID, params, traceID)
}

func (fake *fakeNetworkService) DeleteFabricNetwork(account string, vlanID int, networkUUID string, traceID string) error {
	fake.mutex.Lock()
	fake.deletedNetworkUUIDs = append(fake.deletedNetworkUUIDs, networkUUID)
	fake.mutex.Unlock()
	if fake.deleteFabricNetworkFn == nil {
		return nil
	}
	return fake.deleteFabricNetworkFn(account, vlanID, networkUUID, traceID)
}

// Returns the recorded network list filters. Safe to call after the
// tested operation completed.
func (fake *fakeNetworkService) recordedNetworkFilters() []netapi.ListFilter {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]netapi.ListFilter{}, fake.networkFilters...)
}

// Returns the recorded pool list filters.
func (fake *fakeNetworkService) recordedPoolFilters() []netapi.ListFilter {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]netapi.ListFilter{}, fake.poolFilters...)
}
