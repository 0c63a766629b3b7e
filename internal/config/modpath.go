package config

import "runtime"

// modulePathForOS returns the well-known source path for the reloadable
// game module (platform-dependent library name).
func modulePathForOS() string {
	switch runtime.GOOS {
	case "windows":
		return "game.dll"
	case "darwin":
		return "libgame.dylib"
	default:
		return "libgame.so"
	}
}
