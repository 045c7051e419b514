package model

// Instance is one virtual machine from the management inventory. The
// inventory is read once at run start and instances are immutable for the
// duration of a run.
type Instance struct {
	Name       string `json:"name"`
	Ref        string `json:"ref"` // managed object id
	PowerState string `json:"power_state"`
	MemoryMB   int32  `json:"memory_mb"`
	NumCPU     int32  `json:"num_cpu"`
}

// DiskDescriptor maps one attached virtual disk to its backing datastore.
// BusAddress is controller-relative, e.g. "scsi0:1".
type DiskDescriptor struct {
	VM         string `json:"vm"`
	BusAddress string `json:"bus_address"`
	Datastore  string `json:"datastore"`
}
