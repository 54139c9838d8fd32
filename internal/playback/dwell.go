package playback

import (
	"time"

	"codeberg.org/snonux/korengpro/internal/audio"
)

// DwellPolicy estimates how long an utterance takes to speak.
type DwellPolicy struct {
	PerHangul time.Duration
	PerOther  time.Duration
	Base      time.Duration
	Speed     float64
}

// DefaultDwellPolicy returns the estimate used when no playback completion
// signal is available.
func DefaultDwellPolicy(speed float64) DwellPolicy {
	return DwellPolicy{
		PerHangul: 220 * time.Millisecond,
		PerOther:  70 * time.Millisecond,
		Base:      600 * time.Millisecond,
		Speed:     speed,
	}
}

// Estimate returns the dwell for text; blank text takes no time.
func (d DwellPolicy) Estimate(text string) time.Duration {
	hangul, other := audio.CountRunes(text)
	if hangul+other == 0 {
		return 0
	}

	total := time.Duration(hangul)*d.PerHangul + time.Duration(other)*d.PerOther + d.Base
	if d.Speed > 0 {
		total = time.Duration(float64(total) / d.Speed)
	}
	return total
}
