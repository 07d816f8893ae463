package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/websift/websift/internal/model"
)

// DefaultProfileFile is the default profile file name.
const DefaultProfileFile = ".websift.yaml"

// ErrProfileNotFound is returned when the profile file does not exist.
var ErrProfileNotFound = errors.New("profile file not found")

// LoadProfile loads run settings from a YAML profile.
// If the file does not exist, it returns ErrProfileNotFound.
// Callers should handle this error appropriately based on whether the
// profile path was explicitly specified by the user.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided profile path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Rules == nil {
		p.Rules = make(map[string][]model.SelectorRule)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

// FindProfile searches for the profile file in the following order:
// 1. If profilePath is specified, use it directly
// 2. Look for .websift.yaml in the current directory
// 3. Look for .websift.yaml in the user's home directory
// 4. Look for websift.yaml in the XDG config directory
//
// Returns the path to the profile file if found, or empty string if not
// found.
func FindProfile(profilePath string) string {
	// If explicit path is provided, use it
	if profilePath != "" {
		if _, err := os.Stat(profilePath); err == nil {
			return profilePath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdProfile := filepath.Join(cwd, DefaultProfileFile)
		if _, err := os.Stat(cwdProfile); err == nil {
			return cwdProfile
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeProfile := filepath.Join(home, DefaultProfileFile)
		if _, err := os.Stat(homeProfile); err == nil {
			return homeProfile
		}
	}

	// Check XDG config directory
	xdgProfile := filepath.Join(XDGConfigDir(), "websift.yaml")
	if _, err := os.Stat(xdgProfile); err == nil {
		return xdgProfile
	}

	return ""
}
