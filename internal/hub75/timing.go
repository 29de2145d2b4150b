package hub75

import "time"

// Schedule is the binary-code-modulation plan for one refresh pass.
//
// Plane weighting is done by repetition: planes above the transition bit
// are clocked out 2^(bit-transition-1) times, planes at or below it once.
// Showing the low planes once instead of stretching them is what keeps
// the refresh rate up; the cost is reduced contrast in the darkest steps.
// The transition bit is raised from zero until the configured refresh
// floor is met.
type Schedule struct {
	TransitionBit       int           // planes at or below show once per pass
	TransmissionsPerRow int           // planned bursts per row pair
	BurstTime           time.Duration // one row burst at the pixel clock
	RowTime             time.Duration // all planes of one row pair
	FrameTime           time.Duration // all row pairs
	RefreshHz           float64       // planned, 1/FrameTime
}

// PlaneRepeats returns how many times plane bit is clocked out per pass.
func (s Schedule) PlaneRepeats(bit int) int {
	if bit <= s.TransitionBit {
		return 1
	}
	return 1 << (bit - s.TransitionBit - 1)
}

// computeSchedule finds the lowest transition bit whose planned refresh
// rate reaches minRefresh. If even the highest transition bit falls
// short, the returned schedule reports the best attainable rate and the
// caller rejects the config.
//
// The transmission estimate books every plane once plus the repeats of
// the planes above the transition bit, which slightly overestimates the
// emitted burst count. The pacing budget inherits that slack.
func computeSchedule(rowWords, rowPairs, depth, clockHz, minRefresh int) Schedule {
	burstUs := float64(rowWords) * 1e6 / float64(clockHz)

	t := 0
	for {
		transmissions := depth
		for i := t + 1; i < depth; i++ {
			transmissions += 1 << (i - t - 1)
		}
		rowUs := float64(transmissions) * burstUs
		frameUs := rowUs * float64(rowPairs)
		hz := 1e6 / frameUs

		if hz >= float64(minRefresh) || t >= depth-1 {
			return Schedule{
				TransitionBit:       t,
				TransmissionsPerRow: transmissions,
				BurstTime:           time.Duration(burstUs * float64(time.Microsecond)),
				RowTime:             time.Duration(rowUs * float64(time.Microsecond)),
				FrameTime:           time.Duration(frameUs * float64(time.Microsecond)),
				RefreshHz:           hz,
			}
		}
		t++
	}
}
