package sources

import (
	"github.com/jonathan/competition-radar/internal/fetch"
	"github.com/jonathan/competition-radar/internal/types"
)

// Selectors locate candidates on a listing page. Container scopes each card; the other
// selectors are evaluated inside it. Link and Image are required per card.
type Selectors struct {
	Container string
	Title     string
	Link      string
	Image     string
	// ImageAttrs are tried in order; lazy-loading sites put the real URL in data-src.
	ImageAttrs []string
	Platform   fetch.Platform
}

// Preset names
const (
	PresetInfoLomba = "infolomba"
	PresetLombaKu   = "lombaku"
)

var presets = map[string]Selectors{
	PresetInfoLomba: {
		Container:  ".event-list .event-item",
		Title:      ".event-title",
		Link:       "a.event-link",
		Image:      ".event-image img",
		ImageAttrs: []string{"data-src", "src"},
		Platform:   fetch.PlatformInfoLomba,
	},
	PresetLombaKu: {
		Container:  ".competition-card",
		Title:      ".competition-card__title",
		Link:       "a.competition-card__link",
		Image:      ".competition-card__poster img",
		ImageAttrs: []string{"src", "data-lazy-src"},
		Platform:   fetch.PlatformLombaKu,
	},
}

var presetOrigins = map[string]types.Origin{
	PresetInfoLomba: types.OriginInfoLomba,
	PresetLombaKu:   types.OriginLombaKu,
}

// LookupPreset returns the selectors for a named preset.
func LookupPreset(name string) (Selectors, bool) {
	s, ok := presets[name]
	return s, ok
}
