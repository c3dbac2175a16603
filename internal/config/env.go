package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvPositionAlpha = "HANDWHEEL_POSITION_ALPHA"
	EnvRotationAlpha = "HANDWHEEL_ROTATION_ALPHA"
	EnvScaleAlpha    = "HANDWHEEL_SCALE_ALPHA"
	EnvMirror        = "HANDWHEEL_MIRROR"
	EnvAddr          = "HANDWHEEL_ADDR"
	EnvCamera        = "HANDWHEEL_CAMERA"
)

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are named, into the process environment without overriding variables that
// are already set. Files that do not exist are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		present = append(present, f)
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// ApplyEnv overrides fields from HANDWHEEL_* environment variables and
// validates the result.
func (c *Config) ApplyEnv() error {
	for _, f := range []struct {
		key string
		dst **float64
	}{
		{EnvPositionAlpha, &c.PositionAlpha},
		{EnvRotationAlpha, &c.RotationAlpha},
		{EnvScaleAlpha, &c.ScaleAlpha},
	} {
		v, ok := os.LookupEnv(f.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.key, v, err)
		}
		*f.dst = ptrFloat64(n)
	}

	if v := os.Getenv(EnvMirror); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMirror, v, err)
		}
		c.Mirror = ptrBool(b)
	}

	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = ptrString(v)
	}

	if v := os.Getenv(EnvCamera); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCamera, v, err)
		}
		c.CameraID = ptrInt(id)
	}

	return c.Validate()
}
