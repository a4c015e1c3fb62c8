package usecases_test

import (
	"testing"

	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/core/usecases"
)

func TestClassifySpeed_Bands(t *testing.T) {
	cases := []struct {
		speed float64
		want  domain.MotionState
	}{
		{0, domain.MotionStationary},
		{0.99, domain.MotionStationary},
		{1.0, domain.MotionWalking},
		{1.99, domain.MotionWalking},
		{2.0, domain.MotionDriving},
		{19.99, domain.MotionDriving},
		{20.0, domain.MotionTrain},
		{54.99, domain.MotionTrain},
		{55.0, domain.MotionFlying},
		{250.0, domain.MotionFlying},
	}

	for _, tc := range cases {
		if got := usecases.ClassifySpeed(tc.speed); got != tc.want {
			t.Errorf("ClassifySpeed(%.2f) = %s, want %s", tc.speed, got, tc.want)
		}
	}
}
