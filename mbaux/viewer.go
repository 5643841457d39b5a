package mbaux

import (
	"context"

	"github.com/soypat/metaball"
)

// UIConfig configures the live viewer.
type UIConfig struct {
	Width, Height int
	Title         string
	Params        metaball.Params
	// Env is baked once into an EnvWidth×EnvHeight equirectangular map for the GPU.
	// Nil uses a procedural sky.
	Env                 metaball.EnvMap
	EnvWidth, EnvHeight int
	// Context cancels the viewer when done.
	Context context.Context
}

// UI opens a window and animates the metaball field on the GPU until the
// window is closed or the context is cancelled. Ball positions are computed
// on the CPU once per frame and uploaded; shading runs in a fragment program.
// Space pauses the animation and Escape closes the window.
// UI must be called from the main goroutine with the OS thread locked.
func UI(cfg UIConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 800, 600
	}
	if cfg.EnvWidth <= 0 || cfg.EnvHeight <= 0 {
		cfg.EnvWidth, cfg.EnvHeight = 256, 128
	}
	if cfg.Title == "" {
		cfg.Title = "metaball"
	}
	if cfg.Env == nil {
		cfg.Env = metaball.NewSkyEnvMap(1)
	}
	return ui(cfg)
}
