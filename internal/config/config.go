// Package config resolves the engine's CLI surface into a typed
// Config, replacing vulkan-go-asche's hand-rolled property-bag Usage type
// (vulkan-go-asche/usage.go) with cobra/pflag-bound fields.
package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Config is the resolved set of engine knobs. Default returns the
// engine's interactive default (windowed, no headless capture); the zero
// value has no window size and fails Validate.
type Config struct {
	Headless   bool
	Frames     int
	OutputDir  string
	Width      int
	Height     int
	Validation bool
	ModulePath string
}

// Default returns the engine's interactive default configuration.
func Default() Config {
	return Config{
		Width:      1280,
		Height:     720,
		Validation: true,
		ModulePath: modulePathForOS(),
		OutputDir:  "out",
	}
}

// BindFlags registers the config's flags onto fs, following cobra's
// convention of binding into a pre-existing struct rather than returning
// pointers per flag.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.Headless, "headless", "H", c.Headless, "run the headless capture branch instead of the windowed main loop")
	fs.IntVarP(&c.Frames, "frames", "f", c.Frames, "number of frames to capture in headless mode")
	fs.StringVarP(&c.OutputDir, "output-dir", "o", c.OutputDir, "directory to write frame_XXXX.bmp files into")
	fs.IntVar(&c.Width, "width", c.Width, "window / swapchain width")
	fs.IntVar(&c.Height, "height", c.Height, "window / swapchain height")
	fs.BoolVar(&c.Validation, "validation", c.Validation, "request Vulkan validation layers when available")
	fs.StringVar(&c.ModulePath, "module", c.ModulePath, "path to the reloadable game module")
}

// Validate checks invariants the flag parser can't express directly.
func (c *Config) Validate() error {
	if c.Headless && c.Frames <= 0 {
		return fmt.Errorf("--frames must be > 0 in headless mode")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width/height must be positive")
	}
	return nil
}

// NewRootCommand builds the cobra root command, parsing into cfg on Run.
func NewRootCommand(cfg *Config, run func(Config) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vkengine",
		Short: "a Vulkan 1.3 game engine host with a hot-reloadable module ABI",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(*cfg)
		},
	}
	cfg.BindFlags(cmd.Flags())
	return cmd
}
