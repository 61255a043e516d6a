package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PUPILSIM_"

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; existing variables are not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides cfg from PUPILSIM_* variables. Unparseable values are
// ignored and the current value kept.
func ApplyEnv(cfg *Config) {
	cfg.OutputDir = getEnvOrDefault(EnvPrefix+"OUTPUT_DIR", cfg.OutputDir)
	cfg.Wavelength = parseFloat64Env(EnvPrefix+"WAVELENGTH", cfg.Wavelength)
	cfg.Filtering = parseBoolEnv(EnvPrefix+"FILTERING", cfg.Filtering)
	cfg.FFT = getEnvOrDefault(EnvPrefix+"FFT", cfg.FFT)
	cfg.ImageSize = parseIntEnv(EnvPrefix+"IMAGE_SIZE", cfg.ImageSize)
	cfg.PSFFloor = parseFloat64Env(EnvPrefix+"PSF_FLOOR", cfg.PSFFloor)
	cfg.Bands = parseIntEnv(EnvPrefix+"BANDS", cfg.Bands)
	if v := os.Getenv(EnvPrefix + "SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Seed = &seed
		}
	}

	cfg.Log.Development = parseBoolEnv(EnvPrefix+"LOG_DEV", cfg.Log.Development)
	cfg.Log.File = getEnvOrDefault(EnvPrefix+"LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnvOrDefault(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func parseFloat64Env(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// parseBoolEnv accepts true/1/yes/on and false/0/no/off.
func parseBoolEnv(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return def
}
