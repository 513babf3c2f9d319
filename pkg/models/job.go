package models

import (
	"time"

	"github.com/google/uuid"
)

// JobRecord is the stored view of a print job observed by the monitor.
type JobRecord struct {
	ID           uuid.UUID    `db:"id"            json:"id"`
	PrinterGUID  string       `db:"printer_guid"  json:"printer_guid"`
	JobUUID      string       `db:"job_uuid"      json:"job_uuid"`
	Name         string       `db:"name"          json:"name"`
	Username     string       `db:"username"      json:"username"`
	Source       string       `db:"source"        json:"source"`
	ReportedAt   *time.Time   `db:"reported_at"   json:"reported_at,omitempty"`
	FoundAt      time.Time    `db:"found_at"      json:"found_at"`
	LastProgress float64      `db:"last_progress" json:"last_progress"`
	LastStatus   DeviceStatus `db:"last_status"   json:"last_status"`
	CreatedAt    time.Time    `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"    json:"updated_at"`
}

// ChannelMetric holds one channel's temperature statistics for a poll.
type ChannelMetric struct {
	Median          float64 `json:"median"`
	StdDev          float64 `json:"stddev"`
	DeviationMin    float64 `json:"deviation_min"`
	DeviationMax    float64 `json:"deviation_max"`
	DeviationAvg    float64 `json:"deviation_avg"`
	DeviationStdDev float64 `json:"deviation_stddev"`
}

// PollMetric is the per-poll temperature record persisted while printing.
type PollMetric struct {
	ID          uuid.UUID     `db:"id"           json:"id"`
	JobUUID     string        `db:"job_uuid"     json:"job_uuid"`
	PolledAt    time.Time     `db:"polled_at"    json:"polled_at"`
	Status      DeviceStatus  `db:"status"       json:"status"`
	Progress    float64       `db:"progress"     json:"progress"`
	SampleCount int           `db:"sample_count" json:"sample_count"`
	SpanSeconds float64       `db:"span_seconds" json:"span_seconds"`
	Extruder0   ChannelMetric `json:"extruder0"`
	Extruder1   ChannelMetric `json:"extruder1"`
	Bed         ChannelMetric `json:"bed"`
}

// NotificationRecord logs a milestone notification attempt.
type NotificationRecord struct {
	ID        uuid.UUID `db:"id"        json:"id"`
	JobUUID   string    `db:"job_uuid"  json:"job_uuid"`
	Milestone Milestone `db:"milestone" json:"milestone"`
	SentAt    time.Time `db:"sent_at"   json:"sent_at"`
	Delivered bool      `db:"delivered" json:"delivered"`
	Error     *string   `db:"error"     json:"error,omitempty"`
}
