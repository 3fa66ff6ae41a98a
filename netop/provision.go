package netop

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"

	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/docknetio/docknet/netapi"
	docknetutil "github.com/docknetio/docknet/util"
)

// Upper bound of the number of free VLAN id candidates computed per one
// provisioning attempt. The scan is advisory: the uniqueness is enforced
// only by the service rejecting a duplicate creation, so the candidates
// are tried sequentially until one of them sticks.
const maxVLANCandidates = 10

// Number of VLAN ids an account may hold. An account at this limit cannot
// allocate another VLAN.
const maxVLANsPerAccount = netapi.MaxVLANID - netapi.MinVLANID + 1

// A request to provision a new fabric network. The VLAN field is the raw
// label supplied by the client, so it is carried as a string and validated
// before any call to the network service.
type ProvisionRequest struct {
	Name        string `json:"name"`
	Subnet      string `json:"subnet"`
	Gateway     string `json:"gateway,omitempty"`
	IPRange     string `json:"ip_range,omitempty"`
	VLAN        string `json:"vlan_id,omitempty"`
	Description string `json:"description,omitempty"`
	InternetNAT bool   `json:"internet_nat,omitempty"`
}

// Result of a successful fabric network provisioning.
type ProvisionResult struct {
	ID string `json:"Id"`
}

// A single compensating action of the provisioning rollback. The list of
// compensations holds only the resources actually created by the running
// pipeline.
type compensation struct {
	resource string
	run      func() error
}

// Provisions a new isolated fabric network for the account. The pipeline
// validates the request, resolves or allocates a VLAN segment and creates
// the network on it. Any failure past the validation stage triggers a
// best-effort concurrent rollback of the resources created so far; the
// rollback never replaces the original pipeline error. The returned id is
// the platform network id of the new network.
func (manager *Manager) ProvisionFabricNetwork(request *ProvisionRequest, account string, traceID string) (*ProvisionResult, error) {
	// Stage 1: validation. All checks are pure, so a malformed request
	// fails before any remote call and requires no rollback.
	vlanID, err := parseVLANLabel(request.VLAN)
	if err != nil {
		return nil, err
	}
	startIP, endIP, err := deriveProvisionRange(request.Subnet, request.IPRange)
	if err != nil {
		return nil, err
	}
	if request.Name == "" {
		return nil, NewValidationError("the network name must not be empty")
	}
	if request.Gateway != "" && net.ParseIP(request.Gateway) == nil {
		return nil, NewValidationError(fmt.Sprintf("unable to parse the gateway address %s", request.Gateway))
	}

	// Stage 2: resolve the requested VLAN or allocate a free one.
	compensations := []compensation{}
	vlanCreated := false
	if request.VLAN != "" {
		if _, err = manager.service.GetFabricVLAN(account, vlanID, traceID); err != nil {
			if netapi.IsNotFound(err) {
				return nil, NewVLANNotFoundError(account, vlanID)
			}
			return nil, errors.WithMessage(err, "unable to find fabric VLAN")
		}
	} else {
		vlanID, err = manager.allocateVLAN(request.Name, account, traceID)
		if err != nil {
			return nil, err
		}
		vlanCreated = true
		compensations = append(compensations, compensation{
			resource: fmt.Sprintf("fabric VLAN %d", vlanID),
			run: func() error {
				return manager.service.DeleteFabricVLAN(account, vlanID, traceID)
			},
		})
	}

	// Stage 3: create the fabric network on the resolved VLAN.
	params := netapi.FabricNetworkParams{
		Name:             request.Name,
		Subnet:           request.Subnet,
		Gateway:          request.Gateway,
		ProvisionStartIP: startIP.String(),
		ProvisionEndIP:   endIP.String(),
		Description:      request.Description,
		InternetNAT:      request.InternetNAT,
	}
	network, err := manager.service.CreateFabricNetwork(account, vlanID, params, traceID)
	if err != nil {
		manager.rollbackProvisioning(compensations)
		return nil, errors.WithMessage(err, "unable to create fabric network")
	}

	log.WithFields(log.Fields{
		"network_uuid": network.UUID,
		"vlan_id":      vlanID,
		"vlan_created": vlanCreated,
		"account":      account,
	}).Info("Provisioned a fabric network")

	return &ProvisionResult{
		ID: PlatformNetworkID(network.UUID),
	}, nil
}

// Allocates a free VLAN id for the account. The account VLAN listing only
// gives an advisory view of the taken ids: between computing the free
// candidates and creating one of them a concurrent provisioner may take it
// first. The service rejects a duplicate creation atomically, so the
// candidates are attempted strictly sequentially in ascending order and
// the in-use rejection merely advances to the next candidate.
func (manager *Manager) allocateVLAN(name string, account string, traceID string) (int, error) {
	vlans, err := manager.service.ListFabricVLANs(account, traceID)
	if err != nil {
		return 0, errors.WithMessage(err, "unable to list fabric VLANs")
	}
	if len(vlans) >= maxVLANsPerAccount {
		return 0, NewNoFreeVLANError(account)
	}
	candidates := freeVLANCandidates(vlans)
	for _, candidate := range candidates {
		if _, err = manager.service.CreateFabricVLAN(account, netapi.FabricVLAN{Name: name, VLANID: candidate}, traceID); err == nil {
			return candidate, nil
		}
		if netapi.IsConflict(err) {
			// Expected contention: the id was taken between the listing
			// and the creation. Try the next candidate.
			log.WithFields(log.Fields{
				"vlan_id": candidate,
				"account": account,
			}).Debug("Fabric VLAN id raced away, trying the next candidate")
			continue
		}
		return 0, errors.WithMessage(err, "unable to create fabric VLAN")
	}
	return 0, NewNoFreeVLANError(account)
}

// Computes up to maxVLANCandidates free VLAN ids of the account in the
// ascending order, skipping the reserved id and the ids already taken.
func freeVLANCandidates(vlans []*netapi.FabricVLAN) []int {
	taken := make([]int, 0, len(vlans))
	for _, vlan := range vlans {
		taken = append(taken, vlan.VLANID)
	}
	sort.Ints(taken)
	// Defensively drop the adjacent duplicates the service should never
	// return.
	deduplicated := taken[:0]
	for i, id := range taken {
		if i == 0 || taken[i-1] != id {
			deduplicated = append(deduplicated, id)
		}
	}
	candidates := []int{}
	next := 0
	for id := netapi.MinVLANID; id <= netapi.MaxVLANID && len(candidates) < maxVLANCandidates; id++ {
		for next < len(deduplicated) && deduplicated[next] < id {
			next++
		}
		if next < len(deduplicated) && deduplicated[next] == id {
			continue
		}
		if id == netapi.ReservedVLANID {
			continue
		}
		candidates = append(candidates, id)
	}
	return candidates
}

// Parses the VLAN label of a provisioning request. An empty label is
// valid and parses to zero; the caller distinguishes it by checking the
// label presence.
func parseVLANLabel(label string) (int, error) {
	if label == "" {
		return 0, nil
	}
	if !govalidator.IsNumeric(label) {
		return 0, NewValidationError(fmt.Sprintf("the VLAN id %s is not a number", label))
	}
	vlanID, err := strconv.Atoi(label)
	if err != nil || vlanID < netapi.MinVLANID || vlanID > netapi.MaxVLANID {
		return 0, NewValidationError(fmt.Sprintf("the VLAN id %s is out of range", label))
	}
	if vlanID == netapi.ReservedVLANID {
		return 0, NewValidationError(fmt.Sprintf("the VLAN id %d is reserved", netapi.ReservedVLANID))
	}
	return vlanID, nil
}

// Derives the provisioning address range of a new fabric network from the
// requested IP range or, if absent, from the full subnet with the network
// and broadcast addresses excluded.
func deriveProvisionRange(subnet string, ipRange string) (net.IP, net.IP, error) {
	if _, _, err := net.ParseCIDR(subnet); err != nil {
		return nil, nil, NewValidationError(fmt.Sprintf("unable to parse the subnet %s", subnet))
	}
	if ipRange != "" {
		startIP, endIP, err := docknetutil.ParseIPRange(ipRange)
		if err != nil {
			return nil, nil, NewValidationError(err.Error())
		}
		return startIP, endIP, nil
	}
	startIP, endIP, err := docknetutil.SubnetProvisionRange(subnet)
	if err != nil {
		return nil, nil, NewValidationError(err.Error())
	}
	return startIP, endIP, nil
}

// Runs the compensating actions of a failed provisioning pipeline
// concurrently. The failures are logged and dropped: the caller always
// receives the original pipeline error.
func (manager *Manager) rollbackProvisioning(compensations []compensation) {
	var wg sync.WaitGroup
	wg.Add(len(compensations))
	for _, comp := range compensations {
		go func(comp compensation) {
			defer wg.Done()
			if err := comp.run(); err != nil {
				log.WithError(err).WithField("resource", comp.resource).
					Warning("Unable to roll back a partially provisioned resource")
			}
		}(comp)
	}
	wg.Wait()
}
