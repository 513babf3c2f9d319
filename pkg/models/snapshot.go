package models

import "time"

// Unknown is the placeholder for fields the printer did not report.
const Unknown = "UNKNOWN"

// PrinterInfo identifies the printer.
type PrinterInfo struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Firmware string `json:"firmware"`
	GUID     string `json:"guid"`
}

// PrintSetup describes the installed hotends, materials and build plate.
type PrintSetup struct {
	Extruder0 string `json:"extruder0"`
	Material0 string `json:"material0"`
	Extruder1 string `json:"extruder1"`
	Material1 string `json:"material1"`
	BedType   string `json:"bed_type"`
}

// JobParameters describes the active print job. Only present while the
// printer reports "printing".
type JobParameters struct {
	UUID           string  `json:"uuid"`
	Name           string  `json:"name"`
	Source         string  `json:"source"`
	User           string  `json:"user"`
	TimeStart      string  `json:"time_start"`
	ElapsedHours   float64 `json:"elapsed_hours"`
	EstimatedHours float64 `json:"estimated_hours"`
	Progress       float64 `json:"progress"`
	JobState       string  `json:"job_state"`

	BedTemp         float64 `json:"bed_temp"`
	BedTarget       float64 `json:"bed_target"`
	Extruder0Temp   float64 `json:"extruder0_temp"`
	Extruder0Target float64 `json:"extruder0_target"`
	Extruder1Temp   float64 `json:"extruder1_temp"`
	Extruder1Target float64 `json:"extruder1_target"`
}

// StatusSnapshot is a point-in-time view of the printer and its job.
type StatusSnapshot struct {
	Reachable bool           `json:"reachable"`
	Printer   PrinterInfo    `json:"printer"`
	Status    DeviceStatus   `json:"status"`
	Setup     PrintSetup     `json:"setup"`
	Job       *JobParameters `json:"job,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// TemperatureSample is one row of the printer's temperature flow diagnostics.
// Time is seconds since device boot, not wall-clock.
type TemperatureSample struct {
	Time            float64 `json:"time"`
	Extruder0Temp   float64 `json:"extruder0_temp"`
	Extruder0Target float64 `json:"extruder0_target"`
	Extruder1Temp   float64 `json:"extruder1_temp"`
	Extruder1Target float64 `json:"extruder1_target"`
	BedTemp         float64 `json:"bed_temp"`
	BedTarget       float64 `json:"bed_target"`
	FlowState       int     `json:"flow_state"`
}

// WallClock converts the sample's boot-relative timestamp to wall-clock time.
func (s TemperatureSample) WallClock(bootTime time.Time) time.Time {
	return bootTime.Add(time.Duration(s.Time * float64(time.Second))).UTC()
}

// LatestStatus is the most recent poll result, published for the status API.
type LatestStatus struct {
	Snapshot  StatusSnapshot `json:"snapshot"`
	Canonical DeviceStatus   `json:"canonical"`
	UpdatedAt time.Time      `json:"updated_at"`
}
