package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a run file. ".yaml" and ".yml" are decoded as YAML, anything
// else as JSON. Unknown JSON fields are rejected.
func Load(path string) (Run, error) {
	var r Run
	b, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&r); err != nil {
			return r, fmt.Errorf("decode yaml %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&r); err != nil {
			return r, fmt.Errorf("decode json %s: %w", path, err)
		}
	}
	return r, nil
}

// ApplyEnv overrides batch and sample sizes from ETL_BATCH_SIZE and
// ETL_SAMPLE_SIZE when they hold positive integers.
func (r *Run) ApplyEnv() {
	r.Runtime.BatchSize = pickInt(getenvInt("ETL_BATCH_SIZE"), r.Runtime.BatchSize)
	r.SampleSize = pickInt(getenvInt("ETL_SAMPLE_SIZE"), r.SampleSize)
}

// getenvInt parses an environment variable as int; 0 when unset or invalid.
func getenvInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// pickInt returns override if it is positive, else def.
func pickInt(override, def int) int {
	if override > 0 {
		return override
	}
	return def
}
