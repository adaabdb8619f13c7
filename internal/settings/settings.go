package settings

import (
	"math"
	"strings"
)

// Mode selects the per-character oscillator used by the lines theme.
type Mode string

const (
	ModeWave   Mode = "wave"
	ModePulse  Mode = "pulse"
	ModeStatic Mode = "static"
)

// TimeStep is the constant per-frame advance of Settings.Time (~1/30s).
const TimeStep = 0.0333

// Capabilities gate which oscillators a theme runs.
type Capabilities struct {
	Animated       bool `json:"animated" yaml:"animated" toml:"animated"`
	VariableWeight bool `json:"variableWeight" yaml:"variableWeight" toml:"variableWeight"`
}

// Settings is the full animation/display configuration read by every render.
// It is a plain value; the Store hands out copies.
type Settings struct {
	Text              string       `json:"text" yaml:"text" toml:"text"`
	NumLines          int          `json:"numLines" yaml:"numLines" toml:"numLines"`
	MinWeight         float64      `json:"minWeight" yaml:"minWeight" toml:"minWeight"`
	MaxWeight         float64      `json:"maxWeight" yaml:"maxWeight" toml:"maxWeight"`
	WidthValue        float64      `json:"widthValue" yaml:"widthValue" toml:"widthValue"`
	CanvasSize        float64      `json:"canvasSize" yaml:"canvasSize" toml:"canvasSize"`
	Margin            float64      `json:"margin" yaml:"margin" toml:"margin"`
	LineSpacingFactor float64      `json:"lineSpacingFactor" yaml:"lineSpacingFactor" toml:"lineSpacingFactor"`
	VerticalOffset    float64      `json:"verticalOffset" yaml:"verticalOffset" toml:"verticalOffset"`
	AnimationSpeed    float64      `json:"animationSpeed" yaml:"animationSpeed" toml:"animationSpeed"`
	Mode              Mode         `json:"mode" yaml:"mode" toml:"mode"`
	ColorMode         string       `json:"colorMode" yaml:"colorMode" toml:"colorMode"`
	Theme             string       `json:"theme" yaml:"theme" toml:"theme"`
	Time              float64      `json:"time" yaml:"-" toml:"-"`
	Capabilities      Capabilities `json:"capabilities" yaml:"-" toml:"-"`
}

// Default returns the start-up configuration.
func Default() Settings {
	s := Settings{
		Text:              DefaultText,
		NumLines:          11,
		MinWeight:         10,
		MaxWeight:         100,
		WidthValue:        76,
		CanvasSize:        1000,
		Margin:            50,
		LineSpacingFactor: 0.92,
		VerticalOffset:    3,
		AnimationSpeed:    1.5,
		Mode:              ModeWave,
		ColorMode:         "violet-inv",
		Theme:             ThemeLines,
	}
	if p, ok := LookupPreset(s.Theme); ok {
		s.Capabilities = p.Capabilities
	}
	return s
}

// ReferenceWeight is the constant weight used for layout measurement.
func (s Settings) ReferenceWeight() float64 {
	return (s.MinWeight + s.MaxWeight) / 2
}

// UsableSize is the canvas edge minus both margins.
func (s Settings) UsableSize() float64 {
	return s.CanvasSize - 2*s.Margin
}

// Scaled returns a copy sized for a render target resolution times larger.
func (s Settings) Scaled(resolution float64) Settings {
	out := s
	out.CanvasSize = s.CanvasSize * resolution
	out.Margin = s.Margin * resolution
	return out
}

// Normalize clamps numeric ranges and uppercases the text.
func (s Settings) Normalize() Settings {
	out := s
	out.Text = strings.ToUpper(out.Text)
	if out.NumLines < 1 {
		out.NumLines = 1
	}
	if out.NumLines > 40 {
		out.NumLines = 40
	}
	out.MinWeight = clamp(out.MinWeight, 1, 1000)
	out.MaxWeight = clamp(out.MaxWeight, 1, 1000)
	if out.MinWeight > out.MaxWeight {
		out.MinWeight, out.MaxWeight = out.MaxWeight, out.MinWeight
	}
	out.CanvasSize = clamp(out.CanvasSize, 64, 8192)
	out.Margin = clamp(out.Margin, 0, out.CanvasSize/2-1)
	out.LineSpacingFactor = clamp(out.LineSpacingFactor, 0.1, 3)
	out.AnimationSpeed = clamp(out.AnimationSpeed, 0, 10)
	out.WidthValue = clamp(out.WidthValue, 0, 200)
	switch out.Mode {
	case ModeWave, ModePulse, ModeStatic:
	default:
		out.Mode = ModeWave
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
