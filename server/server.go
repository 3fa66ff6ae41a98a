// Package server exposes the Docker-style HTTP surface of the docknet
// shim and maps the orchestration errors to the HTTP statuses.
package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/docknetio/docknet/netapi"
	"github.com/docknetio/docknet/netop"
)

// Header carrying the account scope of a request. The platform gateway in
// front of the shim authenticates the caller and injects the header.
const accountHeader = "X-Auth-Account"

// Header carrying the request-scoped trace id. A missing id is generated
// so every call to the network service can be correlated.
const traceIDHeader = "X-Request-Id"

// NetworkManager specifies the orchestration operations consumed by the
// HTTP handlers. It is implemented by the netop.Manager.
type NetworkManager interface {
	ListNetworks(account string, traceID string) ([]netop.NetworkOrPool, error)
	ResolveNetworkOrPool(identifier string, account string, traceID string) (netop.NetworkOrPool, error)
	ProvisionFabricNetwork(request *netop.ProvisionRequest, account string, traceID string) (*netop.ProvisionResult, error)
	DeleteNetwork(identifier string, account string, traceID string) error
}

var _ NetworkManager = (*netop.Manager)(nil)

// HTTP server of the shim.
type Server struct {
	echo    *echo.Echo
	manager NetworkManager
	metrics *metrics
}

// Instantiates the server and registers the routes.
func NewServer(manager NetworkManager) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		echo:    e,
		manager: manager,
		metrics: newMetrics(),
	}

	e.GET("/ping", server.ping)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(server.metrics.Registry, promhttp.HandlerOpts{})))
	e.GET("/v1/networks", server.listNetworks)
	e.GET("/v1/networks/:id", server.inspectNetwork)
	e.POST("/v1/networks/create", server.createNetwork)
	e.DELETE("/v1/networks/:id", server.deleteNetwork)

	return server
}

// Starts serving on the given address. It blocks until the server is shut
// down.
func (server *Server) Start(address string) error {
	return server.echo.Start(address)
}

// Gracefully shuts the server down.
func (server *Server) Shutdown(ctx context.Context) error {
	return server.echo.Shutdown(ctx)
}

// Extracts the account scope and the trace id of a request. The trace id
// is echoed back in the response so a caller can correlate the failures.
func requestScope(c echo.Context) (string, string, error) {
	account := c.Request().Header.Get(accountHeader)
	if account == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing the "+accountHeader+" header")
	}
	traceID := c.Request().Header.Get(traceIDHeader)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	c.Response().Header().Set(traceIDHeader, traceID)
	return account, traceID, nil
}

// Responds to the liveness probes.
func (server *Server) ping(c echo.Context) error {
	return c.String(http.StatusOK, "pong")
}

// Lists the networks and pools visible to the account.
func (server *Server) listNetworks(c echo.Context) error {
	account, traceID, err := requestScope(c)
	if err != nil {
		return err
	}
	records, err := server.manager.ListNetworks(account, traceID)
	if err != nil {
		return errorResponse(c, err)
	}
	dockerNetworks := []*netop.DockerNetwork{}
	for _, record := range records {
		dockerNetworks = append(dockerNetworks, netop.ToDockerNetwork(record))
	}
	return c.JSON(http.StatusOK, dockerNetworks)
}

// Resolves an ambiguous network identifier and returns the matching
// network or pool.
func (server *Server) inspectNetwork(c echo.Context) error {
	account, traceID, err := requestScope(c)
	if err != nil {
		return err
	}
	record, err := server.manager.ResolveNetworkOrPool(c.Param("id"), account, traceID)
	server.metrics.observe(server.metrics.ResolutionTotal, err)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, netop.ToDockerNetwork(record))
}

// Provisions a new fabric network.
func (server *Server) createNetwork(c echo.Context) error {
	account, traceID, err := requestScope(c)
	if err != nil {
		return err
	}
	var request netop.ProvisionRequest
	if err = c.Bind(&request); err != nil {
		return errorResponse(c, netop.NewValidationError("unable to parse the network creation request"))
	}
	result, err := server.manager.ProvisionFabricNetwork(&request, account, traceID)
	server.metrics.observe(server.metrics.ProvisionTotal, err)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// Removes a fabric network.
func (server *Server) deleteNetwork(c echo.Context) error {
	account, traceID, err := requestScope(c)
	if err != nil {
		return err
	}
	err = server.manager.DeleteNetwork(c.Param("id"), account, traceID)
	server.metrics.observe(server.metrics.RemovalTotal, err)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Writes a structured error response with the status matching the error
// kind.
func errorResponse(c echo.Context, err error) error {
	log.WithError(err).WithFields(log.Fields{
		"method": c.Request().Method,
		"uri":    c.Request().RequestURI,
	}).Error("Network operation failed")
	return c.JSON(statusForError(err), map[string]string{
		"message": err.Error(),
	})
}

// Maps an orchestration error to the HTTP status code.
func statusForError(err error) int {
	var validationError *netop.ValidationError
	var networkNotFoundError *netop.NetworkNotFoundError
	var vlanNotFoundError *netop.VLANNotFoundError
	var ambiguousNetworkError *netop.AmbiguousNetworkError
	var noFreeVLANError *netop.NoFreeVLANError
	switch {
	case errors.As(err, &validationError), errors.As(err, &ambiguousNetworkError):
		return http.StatusBadRequest
	case errors.As(err, &networkNotFoundError), errors.As(err, &vlanNotFoundError):
		return http.StatusNotFound
	case errors.As(err, &noFreeVLANError):
		return http.StatusServiceUnavailable
	case netapi.IsNotFound(err):
		return http.StatusNotFound
	default:
		// A wrapped failure of the network service.
		return http.StatusBadGateway
	}
}
