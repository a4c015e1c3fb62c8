package usecases

import (
	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// Speed band upper bounds in m/s. Bands are non-overlapping and
// inclusive on the lower edge.
const (
	walkingSpeedMps = 1.0
	drivingSpeedMps = 2.0
	trainSpeedMps   = 20.0
	flyingSpeedMps  = 55.0
)

// ClassifySpeed maps an instantaneous speed to a motion state. Every fix
// is reclassified independently with no hysteresis; noisy GPS can flap
// between states near band edges, and the dwell detector tolerates that.
func ClassifySpeed(speedMps float64) domain.MotionState {
	switch {
	case speedMps < walkingSpeedMps:
		return domain.MotionStationary
	case speedMps < drivingSpeedMps:
		return domain.MotionWalking
	case speedMps < trainSpeedMps:
		return domain.MotionDriving
	case speedMps < flyingSpeedMps:
		return domain.MotionTrain
	default:
		return domain.MotionFlying
	}
}
