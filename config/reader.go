package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// Read reads a config from the given file. Environment variables referenced in the file are
// substituted before decoding.
func Read(filePath string, logger golog.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger golog.Logger) (*Config, error) {
	cfg := Config{
		ConfigFilePath: originalPath,
	}
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	if err := cfg.Ensure(); err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	if len(cfg.Footsteps.X) == 0 {
		logger.Warnw("no example footsteps configured, skipping the performability check", "path", originalPath)
	}
	logger.Debugw("loaded config",
		"path", originalPath,
		"protective_execution", cfg.Protective(),
		"feedback_frequency", cfg.FeedbackFrequency,
		"execution_shift", cfg.Shift(),
	)
	return &cfg, nil
}
