package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LocalBinEnvPath is the fallback env file: $HOME/.local/bin/.env.
func LocalBinEnvPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("home directory unresolved: %w", err)
	}
	return filepath.Join(home, ".local", "bin", ".env"), nil
}

// LoadEnvWithLocalBinFallback returns the named variable, first loading
// $HOME/.local/bin/.env (never overriding variables already set) so a token
// kept there is picked up. A .env in the working directory is not read.
func LoadEnvWithLocalBinFallback(name string) (string, error) {
	envPath, pathErr := LocalBinEnvPath()
	if pathErr == nil {
		if info, statErr := os.Stat(envPath); statErr == nil && !info.IsDir() {
			_ = godotenv.Load(envPath)
		}
	}

	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	if pathErr != nil {
		return "", fmt.Errorf("environment variable %q not set and %w", name, pathErr)
	}
	return "", fmt.Errorf("environment variable %q not set; attempted to load fallback file %s", name, envPath)
}
