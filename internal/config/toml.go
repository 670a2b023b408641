// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Evaluate EvaluateConfig `toml:"evaluate"`
	Noise    NoiseConfig    `toml:"noise"`
	Oracle   OracleConfig   `toml:"oracle"`
	Storage  StorageConfig  `toml:"storage"`
	Logging  LoggingConfig  `toml:"logging"`
}

// EvaluateConfig maps evaluation settings.
type EvaluateConfig struct {
	Corrector          *string  `toml:"corrector"`
	Seed               *uint64  `toml:"seed"`
	Procs              *int     `toml:"procs" validate:"omitempty,gte=0"`
	Beta               *float64 `toml:"beta" validate:"omitempty,gt=0"`
	Dataset            *string  `toml:"dataset"`
	Sentences          *int     `toml:"sentences" validate:"omitempty,gte=0"`
	Layout             *string  `toml:"layout"`
	Tasks              []string `toml:"tasks" validate:"omitempty,dive,oneof=auto_correction auto_completion next_word_prediction swipe_resolution acr acp nwp swp"`
	TrackMistakes      *bool    `toml:"track-mistakes"`
	MostCommonMistakes *int     `toml:"most-common-mistakes" validate:"omitempty,gte=0"`
	MemoryProfiling    *bool    `toml:"memory-profiling"`
}

// NoiseConfig maps noise model settings.
type NoiseConfig struct {
	TypoCounts    []float64          `toml:"typo-counts" validate:"omitempty,dive,gte=0"`
	Weights       map[string]float64 `toml:"weights" validate:"omitempty,dive,gte=0"`
	FrontDeletion *float64           `toml:"front-deletion" validate:"omitempty,gte=0,lte=1"`
	Jitter        *bool              `toml:"jitter"`
	XRatio        *float64           `toml:"x-ratio" validate:"omitempty,gt=0"`
	YRatio        *float64           `toml:"y-ratio" validate:"omitempty,gt=0"`
	CommonTypos   *bool              `toml:"common-typos"`
	TypoCorpusURL *string            `toml:"typo-corpus-url" validate:"omitempty,url"`
	TypoFile      *string            `toml:"typo-file"`
}

// OracleConfig maps oracle settings.
type OracleConfig struct {
	SwipeRate         *float64  `toml:"swipe-rate" validate:"omitempty,gte=0,lte=1"`
	CompletionWeights []float64 `toml:"completion-weights" validate:"omitempty,len=4,dive,gte=0"`
	MaxContextChars   *int      `toml:"max-context-chars" validate:"omitempty,gt=0"`
}

// StorageConfig maps persistence settings.
type StorageConfig struct {
	DB       *string `toml:"db"`
	CacheDir *string `toml:"cache-dir"`
	Save     *bool   `toml:"save"`
}

// LoggingConfig maps logger settings.
type LoggingConfig struct {
	Level  *string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format *string `toml:"format" validate:"omitempty,oneof=text json"`
}

var validate = validator.New()

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if err := validate.Struct(cfg); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
