package netop

import (
	"strconv"
	"strings"

	"github.com/docknetio/docknet/netapi"
)

// Driver name reported for all networks managed by the shim.
const networkDriver = "sdn"

// Scopes reported for the presented networks. The fabric networks are
// account-private overlays; everything else, including the pools, is a
// shared external network.
const (
	scopeOverlay  = "overlay"
	scopeExternal = "external"
)

// Docker-facing representation of a network or a network pool.
type DockerNetwork struct {
	Name       string            `json:"Name"`
	ID         string            `json:"Id"`
	Scope      string            `json:"Scope"`
	Driver     string            `json:"Driver"`
	EnableIPv6 bool              `json:"EnableIPv6"`
	IPAM       DockerIPAM        `json:"IPAM"`
	Internal   bool              `json:"Internal"`
	Options    map[string]string `json:"Options"`
}

// IPAM section of the Docker network representation.
type DockerIPAM struct {
	Driver string             `json:"Driver"`
	Config []DockerIPAMConfig `json:"Config"`
}

// A single IPAM configuration entry.
type DockerIPAMConfig struct {
	Subnet  string `json:"Subnet,omitempty"`
	IPRange string `json:"IPRange,omitempty"`
	Gateway string `json:"Gateway,omitempty"`
}

// Maps a resolved network or pool record to the public Docker-style
// representation. Pure and side-effect free: the translation involves no
// remote calls.
func ToDockerNetwork(record NetworkOrPool) *DockerNetwork {
	dockerNetwork := &DockerNetwork{
		Name:   record.GetName(),
		ID:     PlatformNetworkID(record.GetUUID()),
		Scope:  scopeExternal,
		Driver: networkDriver,
		IPAM: DockerIPAM{
			Driver: "default",
		},
		Options: map[string]string{},
	}
	network, ok := record.(*netapi.Network)
	if !ok {
		// A pool carries no addressing details of its own; the members are
		// hidden behind it.
		return dockerNetwork
	}
	if network.Fabric {
		dockerNetwork.Scope = scopeOverlay
		dockerNetwork.Internal = !network.InternetNAT
	}
	dockerNetwork.EnableIPv6 = strings.Contains(network.Subnet, ":")
	dockerNetwork.IPAM.Config = append(dockerNetwork.IPAM.Config, DockerIPAMConfig{
		Subnet:  network.Subnet,
		Gateway: network.Gateway,
	})
	if network.MTU > 0 {
		dockerNetwork.Options["mtu"] = strconv.Itoa(network.MTU)
	}
	return dockerNetwork
}
