package physics

import (
	"snakeball-backend/constants"
	"snakeball-backend/models"
)

// ChangeDirection applies a direction input to a. Repeating the current
// direction triggers a headbutt when its cooldown is clear; a 180° reversal
// is rejected. It reports whether a headbutt started and whether the input
// had any effect.
func ChangeDirection(a *models.Avatar, d constants.Direction) (headbutt bool, applied bool) {
	if d == a.Direction {
		if a.HeadbuttCooldown > 0 {
			return false, false
		}
		a.HeadbuttActive = constants.HEADBUTT_DURATION_FRAMES
		a.HeadbuttCooldown = constants.HEADBUTT_COOLDOWN_FRAMES
		return true, true
	}

	if d == a.Direction.Opposite() {
		return false, false
	}

	a.Direction = d
	return false, true
}
