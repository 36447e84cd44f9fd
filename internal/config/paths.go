package config

import (
	"os"
	"path/filepath"

	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/errors"
)

// HomeDir returns ~/.evo.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.EvoHome), nil
}

// GlobalConfigPath returns ~/.evo/config.yaml.
func GlobalConfigPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.ConfigFileName), nil
}

// ProjectConfigPath returns .evo/config.yaml relative to the working directory.
func ProjectConfigPath() string {
	return filepath.Join(constants.EvoHome, constants.ConfigFileName)
}

// TasksDir returns the snapshot directory, honoring store.dir.
func (c *Config) TasksDir() (string, error) {
	if c.Store.Dir != "" {
		return c.Store.Dir, nil
	}
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.TasksDir), nil
}

// LogsDir returns ~/.evo/logs.
func LogsDir() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.LogsDir), nil
}
