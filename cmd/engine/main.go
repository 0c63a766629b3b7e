// Command engine is the Vulkan game engine host: it loads a reloadable
// game module, drives either the windowed main loop or the headless
// frame-capture branch, and exits 0 on a clean shutdown.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/johnpgr/vkengine/internal/config"
	"github.com/johnpgr/vkengine/internal/engine"
	"github.com/johnpgr/vkengine/internal/logging"
	"github.com/johnpgr/vkengine/internal/verr"
)

func main() {
	cfg := config.Default()
	cmd := config.NewRootCommand(&cfg, run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func run(cfg config.Config) error {
	log, err := logging.New(cfg.Validation, "")
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	eng, err := engine.New(cfg, log)
	if err != nil {
		log.Error("engine init failed", zap.Error(err))
		return err
	}
	defer eng.Destroy()

	if err := eng.Run(); err != nil {
		log.Error("engine run failed", zap.Error(err))
		return err
	}
	return nil
}

// exitCode maps a fatal verr.Kind to a distinct non-zero status; any
// other error (flag validation, a plain Go error) falls back to 1.
func exitCode(err error) int {
	switch {
	case verr.Is(err, verr.InitFailure):
		return 2
	case verr.Is(err, verr.DeviceLost):
		return 3
	case verr.Is(err, verr.RecordFailure):
		return 4
	default:
		return 1
	}
}
