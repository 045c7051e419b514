// Package vsphere implements the management-API provider against a
// vCenter or standalone ESXi endpoint.
package vsphere

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/performance"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"

	"vsphere-healthcheck/internal/collector"
	"vsphere-healthcheck/internal/model"
)

// Client talks to one management endpoint for the duration of a run.
type Client struct {
	vc     *govmomi.Client
	perf   *performance.Manager
	props  *property.Collector
	logger zerolog.Logger
}

var _ collector.Provider = (*Client)(nil)

// Connect authenticates against host. A failure here is fatal to the run.
func Connect(ctx context.Context, host, user, password string, insecure bool, logger zerolog.Logger) (*Client, error) {
	u, err := soap.ParseURL(host)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", host, err)
	}
	u.User = url.UserPassword(user, password)

	vc, err := govmomi.NewClient(ctx, u, insecure)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", u.Host, err)
	}
	logger.Info().Str("endpoint", u.Host).Str("user", user).Msg("connected to management server")

	return &Client{
		vc:     vc,
		perf:   performance.NewManager(vc.Client),
		props:  property.DefaultCollector(vc.Client),
		logger: logger,
	}, nil
}

// Close logs out of the endpoint.
func (c *Client) Close(ctx context.Context) {
	if err := c.vc.Logout(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("logout failed")
	}
}

func vmRef(inst model.Instance) types.ManagedObjectReference {
	return types.ManagedObjectReference{Type: "VirtualMachine", Value: inst.Ref}
}
