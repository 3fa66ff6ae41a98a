package docknetutil

import (
	"net"
	"strings"

	cidr "github.com/apparentlymart/go-cidr/cidr"
	"github.com/pkg/errors"
)

// Returns lower and upper bound addresses of the address range. The address
// range may follow two conventions, e.g., 192.0.2.1 - 192.0.3.10
// or 192.0.2.0/24. Both IPv4 and IPv6 ranges are supported by this function.
func ParseIPRange(ipRange string) (net.IP, net.IP, error) {
	// Let's try to see if the range is specified as a pair of upper
	// and lower bound addresses.
	s := strings.Split(ipRange, "-")
	for i := 0; i < len(s); i++ {
		s[i] = strings.TrimSpace(s[i])
	}
	// The length of 2 means that the two addresses with hyphen were specified.
	switch len(s) {
	case 2:
		ips := []net.IP{}
		families := []int{}
		for _, ipStr := range s {
			// Check if the specified value is even an IP address.
			ip := net.ParseIP(ipStr)
			if ip == nil {
				// It is not an IP address. Bail...
				err := errors.Errorf("unable to parse the IP address %s", ipStr)
				return nil, nil, err
			}
			// It is an IP address, so let's see if it converts to IPv4 or IPv6.
			// In both cases, remember the family.
			if ip.To4() != nil {
				families = append(families, 4)
				ips = append(ips, ip)
			} else {
				families = append(families, 6)
				ips = append(ips, ip)
			}
			// If we already checked both addresses, let's compare their families.
			if (len(families) > 1) && (families[0] != families[1]) {
				// IPv4 and IPv6 address given. This is unacceptable.
				err := errors.Errorf("IP addresses in the IP range %s must belong to the same family",
					ipRange)
				return nil, nil, err
			}
		}
		return ips[0], ips[1], nil

	case 1:
		// There is one token only, so apparently this is a range provided as a prefix.
		_, net, err := net.ParseCIDR(s[0])
		if err != nil {
			err = errors.Errorf("unable to parse the range prefix %s", s[0])
			return nil, nil, err
		}
		// For this prefix find an upper and lower bound address.
		lb, ub := cidr.AddressRange(net)
		return lb, ub, nil

	default:
		// No other formats for the address range are accepted.
		err := errors.Errorf("unable to parse the IP range %s", ipRange)
		return nil, nil, err
	}
}

// Returns the provisionable address range of a subnet. Unlike ParseIPRange,
// the network and broadcast addresses are excluded from the returned range
// because they must never be handed out to workloads.
func SubnetProvisionRange(subnet string) (net.IP, net.IP, error) {
	_, ipNet, err := net.ParseCIDR(subnet)
	if err != nil {
		return nil, nil, errors.Errorf("unable to parse the subnet %s", subnet)
	}
	lb, ub := cidr.AddressRange(ipNet)
	return cidr.Inc(lb), cidr.Dec(ub), nil
}
