package render

import (
	"math"

	"github.com/rook-computer/kinetype/internal/settings"
)

// LineGradient returns the weights at the two edges of line lineIndex.
// Lines interpolate linearly from (max,min) on the first line to (min,max)
// on the last; a single line is (max,max).
func LineGradient(lineIndex, numLines int, minWeight, maxWeight float64) (start, end float64) {
	if numLines <= 1 {
		return maxWeight, maxWeight
	}
	step := (maxWeight - minWeight) / float64(numLines-1) * float64(lineIndex)
	return maxWeight - step, minWeight + step
}

// Wave is the oscillator state of one frame of the lines theme.
type Wave struct {
	Time     float64
	Speed    float64
	Mode     settings.Mode
	Animated bool
}

// WaveFor extracts the oscillator state from s.
func WaveFor(s settings.Settings) Wave {
	return Wave{Time: s.Time, Speed: s.AnimationSpeed, Mode: s.Mode, Animated: s.Capabilities.Animated}
}

// CharWeight returns the weight of one character of the lines theme.
//
// The base weight runs linearly from start to end across the line, in the
// opposite direction on odd lines. Over time each character swings between
// its base weight and the mirrored weight (start+end-base); in wave mode the
// swing phase lags by half a radian per character of distance from midIndex.
func (w Wave) CharWeight(charIndex, lineIndex int, start, end, midIndex float64, textLength int) float64 {
	p := 0.0
	if textLength > 1 {
		p = float64(charIndex) / float64(textLength-1)
	}
	if lineIndex%2 == 1 {
		p = 1 - p
	}
	base := start + (end-start)*p
	mirror := start + end - base

	swing := 0.0
	if w.Animated {
		t := w.Time * w.Speed
		switch w.Mode {
		case settings.ModeWave:
			swing = (math.Sin(t-math.Abs(float64(charIndex)-midIndex)*0.5) + 1) / 2
		case settings.ModePulse:
			swing = (math.Sin(t) + 1) / 2
		}
	}
	return base + (mirror-base)*swing
}

// ToggleWeight is the per-character sine used by the toggle banners.
func ToggleWeight(charIndex int, time, speed, minWeight, maxWeight float64) float64 {
	cycle := (math.Sin(time*speed+float64(charIndex)*0.3) + 1) / 2
	return minWeight + (maxWeight-minWeight)*cycle
}

// SineWeight maps sin(phase) onto [minWeight, maxWeight].
func SineWeight(phase, minWeight, maxWeight float64) float64 {
	return minWeight + ((math.Sin(phase)+1)/2)*(maxWeight-minWeight)
}
