package netop

import "fmt"

// An error returned when the client input is malformed, e.g. a bad VLAN
// label or an unparsable subnet. It never triggers a call to the network
// service.
type ValidationError struct {
	reason string
}

// Creates new instance of the ValidationError.
func NewValidationError(reason string) error {
	return &ValidationError{
		reason: reason,
	}
}

// Returns error string.
func (e ValidationError) Error() string {
	return e.reason
}

// An error returned when more than one network or pool matches the
// user-supplied identifier.
type AmbiguousNetworkError struct {
	identifier string
}

// Creates new instance of the AmbiguousNetworkError.
func NewAmbiguousNetworkError(identifier string) error {
	return &AmbiguousNetworkError{
		identifier: identifier,
	}
}

// Returns error string.
func (e AmbiguousNetworkError) Error() string {
	return fmt.Sprintf("network identifier %s is ambiguous: it matches more than one network", e.identifier)
}

// An error returned when no network or pool matches the user-supplied
// identifier with any of the resolution strategies.
type NetworkNotFoundError struct {
	identifier string
}

// Creates new instance of the NetworkNotFoundError.
func NewNetworkNotFoundError(identifier string) error {
	return &NetworkNotFoundError{
		identifier: identifier,
	}
}

// Returns error string.
func (e NetworkNotFoundError) Error() string {
	return fmt.Sprintf("network %s not found", e.identifier)
}

// An error returned when the VLAN id requested for a new fabric network is
// not allocated to the account.
type VLANNotFoundError struct {
	account string
	vlanID  int
}

// Creates new instance of the VLANNotFoundError.
func NewVLANNotFoundError(account string, vlanID int) error {
	return &VLANNotFoundError{
		account: account,
		vlanID:  vlanID,
	}
}

// Returns error string.
func (e VLANNotFoundError) Error() string {
	return fmt.Sprintf("unable to find fabric VLAN %d of account %s", e.vlanID, e.account)
}

// An error returned when the account VLAN space is exhausted: either all
// ids are allocated or every computed candidate raced away to concurrent
// provisioners.
type NoFreeVLANError struct {
	account string
}

// Creates new instance of the NoFreeVLANError.
func NewNoFreeVLANError(account string) error {
	return &NoFreeVLANError{
		account: account,
	}
}

// Returns error string.
func (e NoFreeVLANError) Error() string {
	return fmt.Sprintf("no free VLAN id available for account %s", e.account)
}
