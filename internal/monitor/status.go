package monitor

import "github.com/kiranshivaraju/printwatch/pkg/models"

// NoFlowState marks a poll where no diagnostics sample was available.
const NoFlowState = -1

// flowStates maps the active_hotend_or_state code from the temperature flow
// diagnostics to a canonical status. Codes 0 and 1 name the active hotend
// while printing.
var flowStates = map[int]models.DeviceStatus{
	0:  models.StatusPrinting,
	1:  models.StatusPrinting,
	10: models.StatusIdle,
	11: models.StatusPausing,
	12: models.StatusPaused,
	13: models.StatusResuming,
	14: models.StatusPrePrint,
	15: models.StatusPostPrint,
	16: models.StatusWaitCleanup,
	17: models.StatusWaitUserAction,
}

// Normalize derives the canonical status. error, maintenance and booting
// come only from the coarse printer/status field; everything else comes from
// the finer flow-state code. Unrecognized codes yield StatusUnknown.
func Normalize(flowState int, coarse models.DeviceStatus) models.DeviceStatus {
	switch coarse {
	case models.StatusError, models.StatusMaintenance, models.StatusBooting:
		return coarse
	}
	if st, ok := flowStates[flowState]; ok {
		return st
	}
	return models.StatusUnknown
}

// tracksTemperatures reports whether the job is far enough along for the
// heaters to be regulated. pre_print is too early.
func tracksTemperatures(status models.DeviceStatus) bool {
	switch status {
	case models.StatusPrinting, models.StatusPausing, models.StatusPaused,
		models.StatusResuming, models.StatusPostPrint, models.StatusWaitCleanup:
		return true
	}
	return false
}

func finishing(status models.DeviceStatus) bool {
	return status == models.StatusPostPrint || status == models.StatusWaitCleanup
}
