package noise

import (
	"errors"
	"fmt"
	"maps"

	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/typobench/internal/model"
)

// ErrInvalidConfig is returned by New for unusable configurations.
var ErrInvalidConfig = errors.New("noise: invalid config")

// FrontDeletionMultiplier scales deletions of the first character.
const FrontDeletionMultiplier = 0.36

// DefaultSigmaRatio keeps about 99% of taps inside the intended key.
const DefaultSigmaRatio = 3

// Config is the immutable parameter set of a noise model.
type Config struct {
	// TypoCounts is the distribution of the number of typos per word. Index i
	// holds the weight of i typos; the last index stands for "that many or
	// more" and is sampled as exactly that many.
	TypoCounts []float64 `validate:"min=1,dive,gte=0"`
	// Weights of each typo kind. Missing kinds are never sampled.
	Weights map[model.TypoKind]float64 `validate:"dive,gte=0"`
	// FrontDeletion scales the weight of deleting the first character.
	FrontDeletion float64 `validate:"gte=0,lte=1"`
	// CommonTypos maps a correct word to realistic misspellings of it.
	CommonTypos map[string][]string

	// Jitter enables gaussian tap imprecision around key centers.
	Jitter  bool
	XOffset float64
	YOffset float64
	XRatio  float64 `validate:"gt=0"`
	YRatio  float64 `validate:"gt=0"`

	// Swipe gestures get between SwipeMinRate and SwipeMaxRate points per
	// unit of distance between consecutive keys.
	SwipeMinRate float64 `validate:"gt=0"`
	SwipeMaxRate float64 `validate:"gtefield=SwipeMinRate"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		TypoCounts: []float64{0.7, 0.2, 0.07, 0.03},
		Weights: map[model.TypoKind]float64{
			model.SubstituteChar:       0.30,
			model.TransposeChar:        0.08,
			model.DeleteChar:           0.08,
			model.AddChar:              0.08,
			model.DeleteSpellingSymbol: 0.10,
			model.AddSpellingSymbol:    0.01,
			model.DeleteSpace:          0.02,
			model.AddSpace:             0.02,
			model.DeletePunctuation:    0.01,
			model.AddPunctuation:       0.01,
			model.SimplifyAccent:       0.08,
			model.SimplifyCase:         0.08,
			model.CommonTypo:           0.05,
		},
		FrontDeletion: FrontDeletionMultiplier,
		Jitter:        true,
		XRatio:        DefaultSigmaRatio,
		YRatio:        DefaultSigmaRatio,
		SwipeMinRate:  40,
		SwipeMaxRate:  80,
	}
}

// Clone returns a deep copy, so a caller can tweak a configuration without
// touching one in use.
func (c Config) Clone() Config {
	out := c
	out.TypoCounts = append([]float64(nil), c.TypoCounts...)
	out.Weights = maps.Clone(c.Weights)
	if c.CommonTypos != nil {
		out.CommonTypos = make(map[string][]string, len(c.CommonTypos))
		for k, v := range c.CommonTypos {
			out.CommonTypos[k] = append([]string(nil), v...)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for kind := range c.Weights {
		if kind.String() == "UNKNOWN" {
			return fmt.Errorf("%w: unknown typo kind %d", ErrInvalidConfig, int(kind))
		}
	}
	return nil
}
