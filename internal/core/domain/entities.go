package domain

import (
	"time"
)

// MotionState is the discrete motion classification of a location fix,
// derived from the instantaneous speed between consecutive fixes.
type MotionState string

const (
	MotionStationary MotionState = "stationary"
	MotionWalking    MotionState = "walking"
	MotionDriving    MotionState = "driving"
	MotionTrain      MotionState = "train"
	MotionFlying     MotionState = "flying"
)

// SessionLifecycle is the lifecycle state of a tracking session.
type SessionLifecycle string

const (
	SessionStopped SessionLifecycle = "stopped"
	SessionActive  SessionLifecycle = "active"
	SessionPaused  SessionLifecycle = "paused"
)

// Trip is a journal trip that fixes, photos, and clusters hang off.
type Trip struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// RawSample is a position sample as pushed by a device, before the
// ingest pipeline has validated and classified it.
type RawSample struct {
	Point        GeoPoint  `json:"point"`
	Time         time.Time `json:"time"`
	AccuracyM    *float64  `json:"accuracy_m,omitempty"`
	AltitudeM    *float64  `json:"altitude_m,omitempty"`
	SpeedMps     *float64  `json:"speed_mps,omitempty"`
	HeadingDeg   *float64  `json:"heading_deg,omitempty"`
	BatteryLevel *float64  `json:"battery_level,omitempty"` // 0..1
}

// LocationFix is one validated, classified position sample. Immutable once
// created by the ingest pipeline; ownership transfers to the sink when
// flushed.
type LocationFix struct {
	TripID       string      `json:"trip_id"`
	Point        GeoPoint    `json:"point"`
	Time         time.Time   `json:"time"`
	AccuracyM    *float64    `json:"accuracy_m,omitempty"`
	AltitudeM    *float64    `json:"altitude_m,omitempty"`
	SpeedMps     float64     `json:"speed_mps"`
	HeadingDeg   *float64    `json:"heading_deg,omitempty"`
	Activity     MotionState `json:"activity"`
	BatteryLevel *float64    `json:"battery_level,omitempty"`
}

// TrackingSession is the live state of one tracking engagement. One
// instance per engagement; mutated only by the tracker's own tick handler.
type TrackingSession struct {
	TripID          string           `json:"trip_id"`
	Lifecycle       SessionLifecycle `json:"lifecycle"`
	CurrentActivity MotionState      `json:"current_activity"`
	LastFix         *LocationFix     `json:"last_fix,omitempty"`
	DwellStartedAt  *time.Time       `json:"dwell_started_at,omitempty"`
	StartedAt       time.Time        `json:"started_at"`
}

// DwellEvent is a confirmed sustained stay at one location ("visit").
type DwellEvent struct {
	TripID    string        `json:"trip_id"`
	Center    GeoPoint      `json:"center"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// PhotoRecord is externally scored photo metadata. Read-only input to
// clustering; quality and junk scores come from the device's scoring
// capability, never computed here.
type PhotoRecord struct {
	ID           string    `json:"id"`
	TripID       string    `json:"trip_id"`
	Time         time.Time `json:"time"`
	Location     *GeoPoint `json:"location,omitempty"`
	QualityScore float64   `json:"quality_score"` // 0..1
	IsJunk       bool      `json:"is_junk"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
}

// PhotoCluster is a contiguous run of photos grouped by chained
// time/space proximity. Immutable after clustering except for step
// reassignment.
type PhotoCluster struct {
	ID             string        `json:"id"`
	TripID         string        `json:"trip_id"`
	Photos         []PhotoRecord `json:"photos"` // insertion order = temporal order
	CenterLocation GeoPoint      `json:"center_location"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	AssignedStepID *string       `json:"assigned_step_id,omitempty"`
}
