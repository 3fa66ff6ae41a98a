package netop

import (
	"fmt"
	"os"
	"testing"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/docknetio/docknet/netapi"
	"github.com/docknetio/docknet/testutil"
)

// Returns a valid provisioning request used as a baseline by the tests.
func newProvisionRequest() *ProvisionRequest {
	return &ProvisionRequest{
		Name:        "web",
		Subnet:      "10.0.0.0/24",
		InternetNAT: true,
	}
}

// Test the free VLAN id scan over a partially taken id space.
func TestFreeVLANCandidates(t *testing.T) {
	taken := func(ids ...int) (vlans []*netapi.FabricVLAN) {
		for _, id := range ids {
			vlans = append(vlans, &netapi.FabricVLAN{VLANID: id})
		}
		return vlans
	}

	// The reserved id 1 is never a candidate.
	require.Equal(t, []int{0, 2, 3, 4, 5, 6, 7, 8, 9, 10}, freeVLANCandidates(nil))

	// Holes between the taken ids are filled in the ascending order.
	require.Equal(t, []int{4, 5, 6, 7, 8, 9, 10, 11, 12, 13},
		freeVLANCandidates(taken(0, 2, 3, 1023)))

	// The listing order and the duplicates reported by the service do not
	// matter.
	require.Equal(t, []int{4, 5, 6, 7, 8, 9, 10, 11, 12, 13},
		freeVLANCandidates(taken(1023, 3, 0, 2, 3, 0)))

	// A fully taken id space yields no candidates.
	all := []int{}
	for id := netapi.MinVLANID; id <= netapi.MaxVLANID; id++ {
		all = append(all, id)
	}
	require.Empty(t, freeVLANCandidates(taken(all...)))

	// Only the tail of the id space is left.
	require.Equal(t, []int{1022, 1023}, freeVLANCandidates(taken(all[:len(all)-2]...)))
}

// Test the VLAN label validation.
func TestParseVLANLabel(t *testing.T) {
	vlanID, err := parseVLANLabel("")
	require.NoError(t, err)
	require.Zero(t, vlanID)

	vlanID, err = parseVLANLabel("42")
	require.NoError(t, err)
	require.Equal(t, 42, vlanID)

	vlanID, err = parseVLANLabel("0")
	require.NoError(t, err)
	require.Zero(t, vlanID)

	var validationError *ValidationError
	for _, label := range []string{"abc", "4.2", "-1", "1024", "1"} {
		_, err = parseVLANLabel(label)
		require.ErrorAs(t, err, &validationError, "label %s", label)
	}
}

// Test that a malformed request fails the validation without any call to
// the network service.
func TestProvisionValidationShortCircuits(t *testing.T) {
	fake := &fakeNetworkService{}
	manager := NewManager(fake)

	malformed := []*ProvisionRequest{
		{Name: "web", Subnet: "not-a-subnet"},
		{Name: "", Subnet: "10.0.0.0/24"},
		{Name: "web", Subnet: "10.0.0.0/24", Gateway: "not-an-address"},
		{Name: "web", Subnet: "10.0.0.0/24", VLAN: "over 9000"},
		{Name: "web", Subnet: "10.0.0.0/24", IPRange: "10.0.0.10"},
	}
	for _, request := range malformed {
		_, err := manager.ProvisionFabricNetwork(request, testAccount, "trace")
		var validationError *ValidationError
		require.ErrorAs(t, err, &validationError)
	}

	require.Zero(t, fake.getVLANCalls)
	require.Zero(t, fake.listVLANCalls)
	require.Empty(t, fake.createdVLANIDs)
	require.Empty(t, fake.createdNetworks)
	require.Empty(t, fake.deletedVLANIDs)
}

// Test provisioning a network on an explicitly requested, existing VLAN.
func TestProvisionOnExistingVLAN(t *testing.T) {
	fake := &fakeNetworkService{}
	manager := NewManager(fake)

	request := newProvisionRequest()
	request.VLAN = "42"
	result, err := manager.ProvisionFabricNetwork(request, testAccount, "trace")
	require.NoError(t, err)
	require.Equal(t, PlatformNetworkID("a8b25d3a-9fd3-44d8-bfbd-b01d0a4cef8a"), result.ID)

	// The VLAN was resolved, not allocated.
	require.Equal(t, 1, fake.getVLANCalls)
	require.Zero(t, fake.listVLANCalls)
	require.Empty(t, fake.createdVLANIDs)

	// The provisioning range was derived from the subnet with the network
	// and broadcast addresses excluded.
	require.Len(t, fake.createdNetworks, 1)
	params := fake.createdNetworks[0]
	require.Equal(t, "web", params.Name)
	require.Equal(t, "10.0.0.0/24", params.Subnet)
	require.Equal(t, "10.0.0.1", params.ProvisionStartIP)
	require.Equal(t, "10.0.0.254", params.ProvisionEndIP)
	require.True(t, params.InternetNAT)
}

// Test that an explicitly requested address range overrides the derived
// one.
func TestProvisionWithExplicitIPRange(t *testing.T) {
	fake := &fakeNetworkService{}
	manager := NewManager(fake)

	request := newProvisionRequest()
	request.VLAN = "42"
	request.Gateway = "10.0.0.1"
	request.IPRange = "10.0.0.10 - 10.0.0.20"
	_, err := manager.ProvisionFabricNetwork(request, testAccount, "trace")
	require.NoError(t, err)

	require.Len(t, fake.createdNetworks, 1)
	params := fake.createdNetworks[0]
	require.Equal(t, "10.0.0.10", params.ProvisionStartIP)
	require.Equal(t, "10.0.0.20", params.ProvisionEndIP)
	require.Equal(t, "10.0.0.1", params.Gateway)
}

// Test that a request for a VLAN the account does not hold is rejected.
func TestProvisionOnMissingVLAN(t *testing.T) {
	fake := &fakeNetworkService{
		getFabricVLANFn: func(account string, vlanID int, traceID string) (*netapi.FabricVLAN, error) {
			return nil, netapi.NewNotFoundError(fmt.Sprintf("VLAN %d", vlanID))
		},
	}
	manager := NewManager(fake)

	request := newProvisionRequest()
	request.VLAN = "42"
	_, err := manager.ProvisionFabricNetwork(request, testAccount, "trace")
	var vlanNotFoundError *VLANNotFoundError
	require.ErrorAs(t, err, &vlanNotFoundError)
	require.ErrorContains(t, err, "42")
	require.Empty(t, fake.createdNetworks)
}

// Test the automatic VLAN allocation with the first free candidate.
func TestProvisionAllocatesVLAN(t *testing.T) {
	fake := &fakeNetworkService{
		listFabricVLANsFn: func(account string, traceID string) ([]*netapi.FabricVLAN, error) {
			return []*netapi.FabricVLAN{{VLANID: 0}, {VLANID: 2}}, nil
		},
	}
	manager := NewManager(fake)

	_, err := manager.ProvisionFabricNetwork(newProvisionRequest(), testAccount, "trace")
	require.NoError(t, err)
	require.Equal(t, []int{3}, fake.createdVLANIDs)
	require.Empty(t, fake.deletedVLANIDs)
}

// Test that an in-use rejection of a VLAN candidate advances to the next
// candidate instead of failing the provisioning.
func TestProvisionRetriesVLANOnConflict(t *testing.T) {
	fake := &fakeNetworkService{
		listFabricVLANsFn: func(account string, traceID string) ([]*netapi.FabricVLAN, error) {
			return []*netapi.FabricVLAN{{VLANID: 0}, {VLANID: 2}, {VLANID: 3}, {VLANID: 1023}}, nil
		},
		createFabricVLANFn: func(account string, vlan netapi.FabricVLAN, traceID string) (*netapi.FabricVLAN, error) {
			if vlan.VLANID == 4 {
				// A concurrent provisioner took the id first.
				return nil, netapi.NewConflictError("VLAN id in use")
			}
			return &vlan, nil
		},
	}
	manager := NewManager(fake)

	_, err := manager.ProvisionFabricNetwork(newProvisionRequest(), testAccount, "trace")
	require.NoError(t, err)
	require.Equal(t, []int{4, 5}, fake.createdVLANIDs)
}

// Test that an account holding the maximum number of VLANs cannot
// allocate another one.
func TestProvisionVLANSpaceExhausted(t *testing.T) {
	vlans := []*netapi.FabricVLAN{}
	for id := netapi.MinVLANID; id <= netapi.MaxVLANID; id++ {
		vlans = append(vlans, &netapi.FabricVLAN{VLANID: id})
	}
	fake := &fakeNetworkService{
		listFabricVLANsFn: func(account string, traceID string) ([]*netapi.FabricVLAN, error) {
			return vlans, nil
		},
	}
	manager := NewManager(fake)

	_, err := manager.ProvisionFabricNetwork(newProvisionRequest(), testAccount, "trace")
	var noFreeVLANError *NoFreeVLANError
	require.ErrorAs(t, err, &noFreeVLANError)
	require.Empty(t, fake.createdVLANIDs)
}

// Test that losing the allocation race on every candidate reports the
// VLAN space as exhausted after the last attempt.
func TestProvisionAllCandidatesConflict(t *testing.T) {
	fake := &fakeNetworkService{
		createFabricVLANFn: func(account string, vlan netapi.FabricVLAN, traceID string) (*netapi.FabricVLAN, error) {
			return nil, netapi.NewConflictError("VLAN id in use")
		},
	}
	manager := NewManager(fake)

	_, err := manager.ProvisionFabricNetwork(newProvisionRequest(), testAccount, "trace")
	var noFreeVLANError *NoFreeVLANError
	require.ErrorAs(t, err, &noFreeVLANError)
	require.Len(t, fake.createdVLANIDs, maxVLANCandidates)
	require.Empty(t, fake.createdNetworks)
}

// Test that a failed network creation rolls back the VLAN allocated by
// the same pipeline and surfaces the original creation error.
func TestProvisionRollsBackAllocatedVLAN(t *testing.T) {
	fake := &fakeNetworkService{
		createFabricNetworkFn: func(account string, vlanID int, params netapi.FabricNetworkParams, traceID string) (*netapi.Network, error) {
			return nil, errors.New("subnet overlaps another fabric network")
		},
	}
	manager := NewManager(fake)

	_, err := manager.ProvisionFabricNetwork(newProvisionRequest(), testAccount, "trace")
	require.ErrorContains(t, err, "unable to create fabric network")
	require.ErrorContains(t, err, "subnet overlaps another fabric network")
	require.Equal(t, []int{0}, fake.createdVLANIDs)
	require.Equal(t, []int{0}, fake.deletedVLANIDs)
}

// Test that a pre-existing VLAN requested by the client is never touched
// by the rollback.
func TestProvisionNeverRollsBackExistingVLAN(t *testing.T) {
	fake := &fakeNetworkService{
		createFabricNetworkFn: func(account string, vlanID int, params netapi.FabricNetworkParams, traceID string) (*netapi.Network, error) {
			return nil, errors.New("subnet overlaps another fabric network")
		},
	}
	manager := NewManager(fake)

	request := newProvisionRequest()
	request.VLAN = "42"
	_, err := manager.ProvisionFabricNetwork(request, testAccount, "trace")
	require.ErrorContains(t, err, "unable to create fabric network")
	require.Empty(t, fake.deletedVLANIDs)
}

// Test that a rollback failure is logged but never replaces the original
// pipeline error.
func TestProvisionRollbackFailureIsLogged(t *testing.T) {
	var buffer testutil.SafeBuffer
	log.SetOutput(&buffer)
	defer log.SetOutput(os.Stdout)

	fake := &fakeNetworkService{
		createFabricNetworkFn: func(account string, vlanID int, params netapi.FabricNetworkParams, traceID string) (*netapi.Network, error) {
			return nil, errors.New("subnet overlaps another fabric network")
		},
		deleteFabricVLANFn: func(account string, vlanID int, traceID string) error {
			return errors.New("the service is restarting")
		},
	}
	manager := NewManager(fake)

	_, err := manager.ProvisionFabricNetwork(newProvisionRequest(), testAccount, "trace")
	require.ErrorContains(t, err, "subnet overlaps another fabric network")
	require.NotContains(t, err.Error(), "restarting")
	require.Contains(t, buffer.String(), "Unable to roll back a partially provisioned resource")
	require.Contains(t, buffer.String(), "fabric VLAN 0")
}
