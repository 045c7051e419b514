package vsphere

import (
	"context"
	"fmt"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"vsphere-healthcheck/internal/model"
)

// GetCluster resolves the compute resource owning an instance's current
// host. Standalone hosts report their compute-resource name.
func (c *Client) GetCluster(ctx context.Context, inst model.Instance) (string, error) {
	var vm mo.VirtualMachine
	if err := c.props.RetrieveOne(ctx, vmRef(inst), []string{"runtime.host"}, &vm); err != nil {
		return "", fmt.Errorf("resolve host of %s: %w", inst.Name, err)
	}
	if vm.Runtime.Host == nil {
		return "", nil
	}
	var host mo.HostSystem
	if err := c.props.RetrieveOne(ctx, *vm.Runtime.Host, []string{"parent"}, &host); err != nil {
		return "", fmt.Errorf("resolve parent of host for %s: %w", inst.Name, err)
	}
	if host.Parent == nil {
		return "", nil
	}
	var parent mo.ManagedEntity
	if err := c.props.RetrieveOne(ctx, *host.Parent, []string{"name"}, &parent); err != nil {
		return "", fmt.Errorf("resolve cluster name for %s: %w", inst.Name, err)
	}
	return parent.Name, nil
}

// ListVirtualDisks walks the virtual hardware of every instance and maps
// each disk's controller-relative bus address to its backing datastore.
func (c *Client) ListVirtualDisks(ctx context.Context, insts []model.Instance) ([]model.DiskDescriptor, error) {
	if len(insts) == 0 {
		return nil, nil
	}
	refs := make([]types.ManagedObjectReference, 0, len(insts))
	for _, inst := range insts {
		refs = append(refs, vmRef(inst))
	}

	var vms []mo.VirtualMachine
	if err := c.props.Retrieve(ctx, refs, []string{"name", "config.hardware.device"}, &vms); err != nil {
		return nil, fmt.Errorf("retrieve virtual hardware: %w", err)
	}

	var out []model.DiskDescriptor
	for _, vm := range vms {
		if vm.Config == nil {
			continue
		}
		devices := object.VirtualDeviceList(vm.Config.Hardware.Device)
		for _, dev := range devices {
			disk, ok := dev.(*types.VirtualDisk)
			if !ok {
				continue
			}
			out = append(out, model.DiskDescriptor{
				VM:         vm.Name,
				BusAddress: busAddress(devices, disk),
				Datastore:  datastoreName(disk),
			})
		}
	}
	return out, nil
}

// busAddress renders the controller-relative device address the realtime
// disk counters use as their instance id, e.g. "scsi0:1".
func busAddress(devices object.VirtualDeviceList, disk *types.VirtualDisk) string {
	if disk.UnitNumber == nil {
		return ""
	}
	ctrl := devices.FindByKey(disk.ControllerKey)
	if ctrl == nil {
		return ""
	}
	prefix := "scsi"
	var bus int32
	switch ct := ctrl.(type) {
	case types.BaseVirtualSCSIController:
		bus = ct.GetVirtualSCSIController().BusNumber
	case *types.VirtualIDEController:
		prefix, bus = "ide", ct.BusNumber
	case *types.VirtualNVMEController:
		prefix, bus = "nvme", ct.BusNumber
	case types.BaseVirtualSATAController:
		prefix, bus = "sata", ct.GetVirtualSATAController().BusNumber
	default:
		if bc, ok := ctrl.(types.BaseVirtualController); ok {
			bus = bc.GetVirtualController().BusNumber
		}
	}
	return fmt.Sprintf("%s%d:%d", prefix, bus, *disk.UnitNumber)
}

func datastoreName(disk *types.VirtualDisk) string {
	backing, ok := disk.Backing.(types.BaseVirtualDeviceFileBackingInfo)
	if !ok {
		return ""
	}
	var p object.DatastorePath
	if p.FromString(backing.GetVirtualDeviceFileBackingInfo().FileName) {
		return p.Datastore
	}
	return ""
}
