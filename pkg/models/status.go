package models

// DeviceStatus is the canonical state of the printer.
type DeviceStatus string

const (
	StatusIdle           DeviceStatus = "idle"
	StatusPrinting       DeviceStatus = "printing"
	StatusPausing        DeviceStatus = "pausing"
	StatusPaused         DeviceStatus = "paused"
	StatusResuming       DeviceStatus = "resuming"
	StatusPrePrint       DeviceStatus = "pre_print"
	StatusPostPrint      DeviceStatus = "post_print"
	StatusWaitCleanup    DeviceStatus = "wait_cleanup"
	StatusWaitUserAction DeviceStatus = "wait_user_action"
	StatusError          DeviceStatus = "error"
	StatusMaintenance    DeviceStatus = "maintenance"
	StatusBooting        DeviceStatus = "booting"
	StatusUnknown        DeviceStatus = "unknown"
)

var knownStatuses = map[DeviceStatus]bool{
	StatusIdle:           true,
	StatusPrinting:       true,
	StatusPausing:        true,
	StatusPaused:         true,
	StatusResuming:       true,
	StatusPrePrint:       true,
	StatusPostPrint:      true,
	StatusWaitCleanup:    true,
	StatusWaitUserAction: true,
	StatusError:          true,
	StatusMaintenance:    true,
	StatusBooting:        true,
	StatusUnknown:        true,
}

// ParseDeviceStatus maps a raw status string to a DeviceStatus.
// Unrecognized values map to StatusUnknown.
func ParseDeviceStatus(s string) DeviceStatus {
	st := DeviceStatus(s)
	if knownStatuses[st] {
		return st
	}
	return StatusUnknown
}

func (s DeviceStatus) String() string { return string(s) }

// Milestone names a progress threshold eligible for one notification per job.
type Milestone string

const (
	MilestoneNone     Milestone = ""
	MilestonePreamble Milestone = "preamble"
	MilestoneStart    Milestone = "start"
	MilestoneDone10   Milestone = "done10"
	MilestoneDone50   Milestone = "done50"
	MilestoneDone90   Milestone = "done90"
	MilestoneEnd      Milestone = "end"
)

// Milestones lists every milestone in ledger order.
var Milestones = []Milestone{
	MilestonePreamble,
	MilestoneStart,
	MilestoneDone10,
	MilestoneDone50,
	MilestoneDone90,
	MilestoneEnd,
}

func (m Milestone) String() string { return string(m) }
