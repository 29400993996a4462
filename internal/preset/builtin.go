package preset

import "github.com/nortelabs/demofyapp/internal/config"

// Built-in presets carry a sensible default screen rect so composing works
// even before detection has run against the frame artwork. The rects were
// measured against the stock artwork shipped alongside the binary.
func init() {
	Register(Preset{
		ID:           "phone-portrait",
		DisplayLabel: "Phone (portrait)",
		ScreenRect:   config.ScreenRect{X: 5.5, Y: 2.5, W: 89, H: 95},
	})
	Register(Preset{
		ID:           "phone-landscape",
		DisplayLabel: "Phone (landscape)",
		ScreenRect:   config.ScreenRect{X: 2.5, Y: 5.5, W: 95, H: 89},
	})
	Register(Preset{
		ID:           "tablet",
		DisplayLabel: "Tablet",
		ScreenRect:   config.ScreenRect{X: 6, Y: 6, W: 88, H: 88},
	})
	Register(Preset{
		ID:           "browser",
		DisplayLabel: "Browser window",
		ScreenRect:   config.ScreenRect{X: 0.5, Y: 7, W: 99, H: 92.5},
	})
	Register(Preset{
		ID:           "none",
		DisplayLabel: "No frame",
		ScreenRect:   config.FullCanvas,
	})
}
