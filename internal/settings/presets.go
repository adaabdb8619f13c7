package settings

import "sort"

const (
	ThemeLines              = "lines"
	ThemeToggle             = "toggle"
	ThemeToggle39C3Animated = "toggle39c3Animated"
	ThemeToggle39C3Static   = "toggle39c3Static"
	ThemeCCC                = "ccc"
)

// LogoRune is the private-use code point of the 39C3 logo glyph.
const LogoRune = '\uE002'

const (
	DefaultText = "39C3 POWER CYCLES"
	LogoText    = string(LogoRune)
)

// Controls tells a UI which inputs make sense for a theme.
type Controls struct {
	ShowLines bool `json:"showLines"`
	ShowWidth bool `json:"showWidth"`
	ShowMode  bool `json:"showMode"`
}

// Preset holds the static defaults of a theme.
type Preset struct {
	ID           string       `json:"id"`
	ColorMode    string       `json:"colorMode"`
	NumLines     int          `json:"numLines,omitempty"`
	Text         string       `json:"text"`
	StaticWeight float64      `json:"staticWeight,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
	Controls     Controls     `json:"controls"`
}

var presets = map[string]Preset{
	ThemeLines: {
		ColorMode:    "violet-inv",
		NumLines:     11,
		Text:         DefaultText,
		Capabilities: Capabilities{Animated: true, VariableWeight: true},
		Controls:     Controls{ShowLines: true, ShowMode: true},
	},
	ThemeToggle: {
		ColorMode:    "mono",
		Text:         DefaultText,
		Capabilities: Capabilities{Animated: true, VariableWeight: true},
		Controls:     Controls{ShowWidth: true},
	},
	ThemeToggle39C3Animated: {
		ColorMode:    "mono-inv",
		Text:         "POWER CYCLES",
		Capabilities: Capabilities{Animated: true},
	},
	ThemeToggle39C3Static: {
		ColorMode:    "mono-inv",
		Text:         "POWER CYCLES",
		StaticWeight: 80,
		Capabilities: Capabilities{},
	},
	ThemeCCC: {
		ColorMode:    "mono",
		NumLines:     22,
		Text:         LogoText,
		Capabilities: Capabilities{Animated: true},
		Controls:     Controls{ShowLines: true},
	},
}

// LookupPreset returns a copy of the preset for id.
func LookupPreset(id string) (Preset, bool) {
	p, ok := presets[id]
	if !ok {
		return Preset{}, false
	}
	p.ID = id
	return p, true
}

// Presets lists every preset sorted by id.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for id := range presets {
		p, _ := LookupPreset(id)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StaticWeightOr returns the fixed weight a non-animated preset paints with.
// It falls back to maxWeight when the preset does not declare one.
func (p Preset) StaticWeightOr(maxWeight float64) float64 {
	if p.StaticWeight > 0 {
		return p.StaticWeight
	}
	return maxWeight
}
