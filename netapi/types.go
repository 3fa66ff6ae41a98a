package netapi

import (
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
)

// Boundaries of the VLAN id space managed by the network service. The
// id 1 is reserved by the switching hardware and is never allocatable.
const (
	MinVLANID      = 0
	MaxVLANID      = 1023
	ReservedVLANID = 1
)

// A network record owned by the network service. The shim never mutates
// the records; it only reads them or triggers their creation and removal.
type Network struct {
	UUID             string   `json:"uuid"`
	Name             string   `json:"name"`
	Subnet           string   `json:"subnet"`
	Gateway          string   `json:"gateway,omitempty"`
	ProvisionStartIP string   `json:"provision_start_ip,omitempty"`
	ProvisionEndIP   string   `json:"provision_end_ip,omitempty"`
	MTU              int      `json:"mtu,omitempty"`
	VLANID           int      `json:"vlan_id"`
	Fabric           bool     `json:"fabric"`
	InternetNAT      bool     `json:"internet_nat,omitempty"`
	NicTag           string   `json:"nic_tag,omitempty"`
	OwnerUUIDs       []string `json:"owner_uuids,omitempty"`
	Description      string   `json:"description,omitempty"`
}

// Returns the network UUID.
func (n *Network) GetUUID() string {
	return n.UUID
}

// Returns the network name.
func (n *Network) GetName() string {
	return n.Name
}

// Indicates that the record is a plain network, not a pool.
func (n *Network) IsPool() bool {
	return false
}

// A named grouping of networks provisioned as a single unit. The member
// networks are excluded from top-level listing once pooled.
type NetworkPool struct {
	UUID        string   `json:"uuid"`
	Name        string   `json:"name"`
	NicTag      string   `json:"nic_tag,omitempty"`
	Networks    []string `json:"networks"`
	Description string   `json:"description,omitempty"`
}

// Returns the pool UUID.
func (p *NetworkPool) GetUUID() string {
	return p.UUID
}

// Returns the pool name.
func (p *NetworkPool) GetName() string {
	return p.Name
}

// Indicates that the record is a network pool.
func (p *NetworkPool) IsPool() bool {
	return true
}

// A VLAN segment allocated to a single account. The allocation is advisory
// until the creating call succeeds because concurrent provisioners may race
// for the same id.
type FabricVLAN struct {
	Name        string `json:"name"`
	VLANID      int    `json:"vlan_id"`
	Description string `json:"description,omitempty"`
}

// Parameters of a fabric network creation call.
type FabricNetworkParams struct {
	Name             string `json:"name"`
	Subnet           string `json:"subnet"`
	Gateway          string `json:"gateway,omitempty"`
	ProvisionStartIP string `json:"provision_start_ip"`
	ProvisionEndIP   string `json:"provision_end_ip"`
	Description      string `json:"description,omitempty"`
	InternetNAT      bool   `json:"internet_nat"`
}

// Filter of the network and network pool list operations. Exactly one of
// Name or UUID must be set. The UUID may end with the '*' wildcard to
// request a prefix search on the services supporting it natively.
type ListFilter struct {
	Name            string
	UUID            string
	ProvisionableBy string
}

// Checks the filter consistency before it is put on the wire. A UUID
// filter without the wildcard must hold a well-formed UUID.
func (filter *ListFilter) Validate() error {
	if filter.Name != "" && filter.UUID != "" {
		return errors.New("a list filter must not combine the name and uuid criteria")
	}
	if filter.UUID != "" && !strings.HasSuffix(filter.UUID, "*") && !govalidator.IsUUID(filter.UUID) {
		return errors.Errorf("the uuid filter %s must be a full UUID or end with '*'", filter.UUID)
	}
	return nil
}

// Converts the filter to the query parameters of a list call.
func (filter *ListFilter) queryParams() map[string]string {
	params := map[string]string{}
	if filter.Name != "" {
		params["name"] = filter.Name
	}
	if filter.UUID != "" {
		params["uuid"] = filter.UUID
	}
	if filter.ProvisionableBy != "" {
		params["provisionable_by"] = filter.ProvisionableBy
	}
	return params
}

// Formats a VLAN id for use in a URL path.
func vlanIDPath(vlanID int) string {
	return strconv.Itoa(vlanID)
}
