// Package config loads tomd settings from YAML. Values not present in the
// file keep their defaults, and ${VAR} or $VAR references are expanded from
// the environment before parsing.
//
//	workers: 4
//	log_level: debug
//	extract:
//	  table:
//	    min_synth_rows: 4
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pymupdf4llm-c/pagestruct/internal/extractor"
	"github.com/pymupdf4llm-c/pagestruct/internal/logger"
)

type Config struct {
	// Workers is the number of page ranges processed in parallel. Zero
	// means one per CPU.
	Workers int `yaml:"workers"`
	// LogLevel overrides the level chosen from TOMD_DEBUG when set.
	LogLevel string `yaml:"log_level"`
	// KeepRaw writes each decoded page next to its artifact.
	KeepRaw bool             `yaml:"keep_raw"`
	Extract extractor.Params `yaml:"extract"`
}

func Default() Config {
	return Config{Extract: extractor.DefaultParams()}
}

func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.New("workers must be non-negative")
	}
	if c.LogLevel != "" {
		if _, err := logger.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	e := c.Extract
	if e.TableOverlapRatio <= 0 || e.TableOverlapRatio > 1 {
		return errors.New("extract.table_overlap_ratio must be in (0, 1]")
	}
	if e.MarginRatio < 0 || e.MarginRatio >= 0.5 {
		return errors.New("extract.margin_ratio must be in [0, 0.5)")
	}
	if e.Column.Bins < 2 {
		return errors.New("extract.column.bins must be at least 2")
	}
	return nil
}
