package netapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	pkgerrors "github.com/pkg/errors"
)

var _ httpResponse = (*resty.Response)(nil)

// Network service API version. This is the number being a part of
// the URL path, e.g. http://localhost:2030/v1, where 1 is the API
// version specified here.
const apiVersion int = 1

// Header carrying the request-scoped trace id. The id is threaded through
// every call to the network service for correlation only; it does not
// alter the service behavior.
const traceIDHeader = "X-Request-Id"

// Interface to the HTTP response exposing functions to check the response
// status. The resty.Response implements this interface.
type httpResponse interface {
	IsError() bool
	StatusCode() int
	String() string
}

// Sets base path for the network service client, e.g. /v1.
func setClientBasePath(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + fmt.Sprintf("/v%d", apiVersion)
}

// Error payload returned by the network service with non-2xx responses.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// A client of the remote network-management service. It wraps a common
// REST client which is safe for concurrent use, so a single instance is
// meant to be constructed once and shared for the process lifetime.
type Client struct {
	innerClient *resty.Client
	baseURL     string
}

// Instantiates the REST client for the network service. The URL must
// exclude the "/v{n}" part.
func NewClient(url string) *Client {
	return &Client{
		innerClient: resty.New(),
		baseURL:     setClientBasePath(url),
	}
}

// Sets custom timeout for REST client requests.
func (client *Client) SetRequestTimeout(timeout time.Duration) {
	client.innerClient.SetTimeout(timeout)
}

// Appends path to the base URL ensuring correct slashes.
func (client *Client) makeURL(path string) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return client.baseURL + path
}

// Creates a request with the common headers set.
func (client *Client) request(traceID string) *resty.Request {
	request := client.innerClient.R().SetHeader("Accept", "application/json")
	if traceID != "" {
		request.SetHeader(traceIDHeader, traceID)
	}
	return request
}

// Extracts a human-readable message from an error response. If the body
// does not carry the service error structure, the raw body is returned.
func responseMessage(response *resty.Response) string {
	var payload apiError
	if err := json.Unmarshal(response.Body(), &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return response.String()
}

// Maps a non-2xx response to an error. The 404 status becomes the
// NotFoundError so the callers can distinguish a missing resource from a
// genuine service failure. The 409 status becomes the ConflictError.
func responseError(response httpResponse, resource string) error {
	restyResponse, ok := response.(*resty.Response)
	message := response.String()
	if ok {
		message = responseMessage(restyResponse)
	}
	switch response.StatusCode() {
	case http.StatusNotFound:
		return NewNotFoundError(resource)
	case http.StatusConflict:
		return NewConflictError(message)
	default:
		return pkgerrors.Errorf("unexpected status %d returned by the network service: %s",
			response.StatusCode(), message)
	}
}

// Checks that the network service is up. It is used at the shim startup
// to wait for the service readiness.
func (client *Client) Ping(traceID string) error {
	response, err := client.request(traceID).Get(client.makeURL("/ping"))
	if err != nil {
		return pkgerrors.WithStack(err)
	}
	if response.IsError() {
		return responseError(response, "ping endpoint")
	}
	return nil
}

// Lists the networks matching the filter. An empty list is returned when
// the service reports no matches with a success status; a 404 status is
// mapped to the NotFoundError.
func (client *Client) ListNetworks(filter ListFilter, traceID string) ([]*Network, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	var networks []*Network
	response, err := client.request(traceID).
		SetQueryParams(filter.queryParams()).
		SetResult(&networks).
		Get(client.makeURL("/networks"))
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	if response.IsError() {
		return nil, responseError(response, "networks")
	}
	return networks, nil
}

// Lists the network pools matching the filter.
func (client *Client) ListNetworkPools(filter ListFilter, traceID string) ([]*NetworkPool, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	var pools []*NetworkPool
	response, err := client.request(traceID).
		SetQueryParams(filter.queryParams()).
		SetResult(&pools).
		Get(client.makeURL("/network_pools"))
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	if response.IsError() {
		return nil, responseError(response, "network pools")
	}
	return pools, nil
}

// Fetches a single fabric VLAN allocated to the account.
func (client *Client) GetFabricVLAN(account string, vlanID int, traceID string) (*FabricVLAN, error) {
	var vlan FabricVLAN
	response, err := client.request(traceID).
		SetResult(&vlan).
		Get(client.makeURL("/fabrics/" + account + "/vlans/" + vlanIDPath(vlanID)))
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	if response.IsError() {
		return nil, responseError(response, fmt.Sprintf("fabric VLAN %d", vlanID))
	}
	return &vlan, nil
}

// Lists all fabric VLANs allocated to the account.
func (client *Client) ListFabricVLANs(account string, traceID string) ([]*FabricVLAN, error) {
	var vlans []*FabricVLAN
	response, err := client.request(traceID).
		SetResult(&vlans).
		Get(client.makeURL("/fabrics/" + account + "/vlans"))
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	if response.IsError() {
		return nil, responseError(response, "fabric VLANs")
	}
	return vlans, nil
}

// Creates a fabric VLAN for the account. The service enforces the VLAN id
// uniqueness atomically, so a concurrent allocation of the same id yields
// the ConflictError.
func (client *Client) CreateFabricVLAN(account string, vlan FabricVLAN, traceID string) (*FabricVLAN, error) {
	var created FabricVLAN
	response, err := client.request(traceID).
		SetBody(&vlan).
		SetResult(&created).
		Post(client.makeURL("/fabrics/" + account + "/vlans"))
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	if response.IsError() {
		return nil, responseError(response, fmt.Sprintf("fabric VLAN %d", vlan.VLANID))
	}
	return &created, nil
}

// Deletes a fabric VLAN of the account. It is a best-effort call used
// during rollback.
func (client *Client) DeleteFabricVLAN(account string, vlanID int, traceID string) error {
	response, err := client.request(traceID).
		Delete(client.makeURL("/fabrics/" + account + "/vlans/" + vlanIDPath(vlanID)))
	if err != nil {
		return pkgerrors.WithStack(err)
	}
	if response.IsError() {
		return responseError(response, fmt.Sprintf("fabric VLAN %d", vlanID))
	}
	return nil
}

// Creates a fabric network on the given VLAN of the account.
func (client *Client) CreateFabricNetwork(account string, vlanID int, params FabricNetworkParams, traceID string) (*Network, error) {
	var network Network
	response, err := client.request(traceID).
		SetBody(&params).
		SetResult(&network).
		Post(client.makeURL("/fabrics/" + account + "/vlans/" + vlanIDPath(vlanID) + "/networks"))
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	if response.IsError() {
		return nil, responseError(response, fmt.Sprintf("fabric network %s", params.Name))
	}
	return &network, nil
}

// Deletes a fabric network of the account. It is used for the rollback of
// partially provisioned networks and for the explicit network removal.
func (client *Client) DeleteFabricNetwork(account string, vlanID int, networkUUID string, traceID string) error {
	response, err := client.request(traceID).
		Delete(client.makeURL("/fabrics/" + account + "/vlans/" + vlanIDPath(vlanID) + "/networks/" + networkUUID))
	if err != nil {
		return pkgerrors.WithStack(err)
	}
	if response.IsError() {
		return responseError(response, fmt.Sprintf("fabric network %s", networkUUID))
	}
	return nil
}
