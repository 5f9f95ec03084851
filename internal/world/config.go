package world

import (
	"sulphate/internal/space"
	"sulphate/internal/units"
)

const (
	DefaultPlayerRadius   = 10.0
	DefaultUpdateBuffer   = 64
	DefaultEpsilonMoments = 1
	DefaultBounceMoments  = 1
)

// Config holds the tunables a world is constructed with. Zero and negative
// values are replaced by defaults during normalisation.
type Config struct {
	Margin         float64 `json:"margin"`
	EpsilonMoments int     `json:"epsilonMoments"`
	BounceMoments  int     `json:"bounceMoments"`
	PlayerRadius   float64 `json:"playerRadius"`
	UpdateBuffer   int     `json:"updateBuffer"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	if !(normalized.Margin > 0) {
		normalized.Margin = float64(space.DefaultMargin)
	}
	if normalized.EpsilonMoments <= 0 {
		normalized.EpsilonMoments = DefaultEpsilonMoments
	}
	if normalized.BounceMoments <= 0 {
		normalized.BounceMoments = DefaultBounceMoments
	}
	if normalized.PlayerRadius <= 0 {
		normalized.PlayerRadius = DefaultPlayerRadius
	}
	if normalized.UpdateBuffer <= 0 {
		normalized.UpdateBuffer = DefaultUpdateBuffer
	}
	return normalized
}

func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

// Tuning converts the configuration into solver constants.
func (cfg Config) Tuning() space.Tuning {
	normalized := cfg.normalized()
	return space.Tuning{
		Margin:       units.Distance(normalized.Margin),
		Epsilon:      units.Moments(normalized.EpsilonMoments),
		BounceWindow: units.Moments(normalized.BounceMoments),
	}.Normalized()
}

func DefaultConfig() Config {
	return Config{
		Margin:         float64(space.DefaultMargin),
		EpsilonMoments: DefaultEpsilonMoments,
		BounceMoments:  DefaultBounceMoments,
		PlayerRadius:   DefaultPlayerRadius,
		UpdateBuffer:   DefaultUpdateBuffer,
	}
}
