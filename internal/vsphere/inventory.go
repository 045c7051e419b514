package vsphere

import (
	"context"
	"fmt"
	"strings"

	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"vsphere-healthcheck/internal/model"
)

// Reserved name prefix for the platform's own cluster-service agent VMs.
// Matched case-insensitively.
const systemAgentPrefix = "vcls"

// ListInstances enumerates every powered-on virtual machine whose name does
// not carry the system-agent prefix.
func (c *Client) ListInstances(ctx context.Context) ([]model.Instance, error) {
	mgr := view.NewManager(c.vc.Client)
	v, err := mgr.CreateContainerView(ctx, c.vc.Client.ServiceContent.RootFolder, []string{"VirtualMachine"}, true)
	if err != nil {
		return nil, fmt.Errorf("create inventory view: %w", err)
	}
	defer func() { _ = v.Destroy(ctx) }()

	var vms []mo.VirtualMachine
	props := []string{"name", "runtime.powerState", "summary.config"}
	if err := v.Retrieve(ctx, []string{"VirtualMachine"}, props, &vms); err != nil {
		return nil, fmt.Errorf("retrieve inventory: %w", err)
	}

	out := make([]model.Instance, 0, len(vms))
	for _, vm := range vms {
		if !inScope(vm.Name, vm.Runtime.PowerState) {
			continue
		}
		out = append(out, model.Instance{
			Name:       vm.Name,
			Ref:        vm.Self.Value,
			PowerState: string(vm.Runtime.PowerState),
			MemoryMB:   vm.Summary.Config.MemorySizeMB,
			NumCPU:     vm.Summary.Config.NumCpu,
		})
	}
	c.logger.Debug().Int("total", len(vms)).Int("in_scope", len(out)).Msg("inventory listed")
	return out, nil
}

// inScope keeps powered-on machines that are not platform agent VMs.
func inScope(name string, state types.VirtualMachinePowerState) bool {
	if state != types.VirtualMachinePowerStatePoweredOn {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(name), systemAgentPrefix)
}
