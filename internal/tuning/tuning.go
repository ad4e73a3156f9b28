// Package tuning loads and validates the world tuning file. Every knob
// has a default so an empty file yields a playable world; the validator
// rejects values the simulation cannot run with.
package tuning

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"longwater/internal/sim/decor"
)

type Tuning struct {
	ProtocolVersion string  `yaml:"protocol_version" validate:"required"`
	TickRateHz      int     `yaml:"tick_rate_hz" validate:"min=1,max=240"`
	ChunkSize       float64 `yaml:"chunk_size" validate:"gt=0"`
	ObserverSpeed   float64 `yaml:"observer_speed" validate:"gte=0"`

	Window    Window    `yaml:"window"`
	Biome     Biome     `yaml:"biome"`
	Terrain   Terrain   `yaml:"terrain"`
	River     River     `yaml:"river"`
	Collision Collision `yaml:"collision"`
	Decor     Decor     `yaml:"decor"`
	Assets    Assets    `yaml:"assets"`
}

type Window struct {
	Back          int     `yaml:"back" validate:"min=0"`
	Forward       int     `yaml:"forward" validate:"min=1"`
	MaxLoading    int     `yaml:"max_loading" validate:"min=1"`
	BudgetMs      float64 `yaml:"budget_ms" validate:"gt=0"`
	CleanupMargin float64 `yaml:"cleanup_margin" validate:"gte=0"`
}

// Budget converts the configured per-frame millisecond budget.
func (w Window) Budget() time.Duration {
	return time.Duration(w.BudgetMs * float64(time.Millisecond))
}

type Biome struct {
	HalfWidth float64 `yaml:"half_width" validate:"gt=0"`
	MinSpan   float64 `yaml:"min_span" validate:"gt=0"`
	MaxSpan   float64 `yaml:"max_span" validate:"gtefield=MinSpan"`
}

type Terrain struct {
	Amplitude    float64 `yaml:"amplitude" validate:"gte=0"`
	NoiseScale   float64 `yaml:"noise_scale" validate:"gt=0"`
	Octaves      int     `yaml:"octaves" validate:"min=1,max=8"`
	ValleyRise   float64 `yaml:"valley_rise" validate:"gte=0"`
	ValleyMax    float64 `yaml:"valley_max" validate:"gte=0"`
	ChannelDepth float64 `yaml:"channel_depth" validate:"gte=0"`
	// HalfWidth is the playfield x extent per side.
	HalfWidth float64 `yaml:"half_width" validate:"gt=0"`
}

type River struct {
	BaseWidth    float64 `yaml:"base_width" validate:"gte=4"`
	WidthVar     float64 `yaml:"width_var" validate:"gte=0"`
	MeanderAmp   float64 `yaml:"meander_amp" validate:"gte=0"`
	MeanderScale float64 `yaml:"meander_scale" validate:"gte=0"`
	WidthScale   float64 `yaml:"width_scale" validate:"gte=0"`
}

type Collision struct {
	Radius     float64 `yaml:"radius" validate:"gt=0"`
	Step       float64 `yaml:"step" validate:"gt=0"`
	UpdateStep float64 `yaml:"update_step" validate:"gt=0"`
}

type Decor struct {
	SeedAttempts int     `yaml:"seed_attempts" validate:"min=1"`
	MaxK         int     `yaml:"max_k" validate:"min=1"`
	GridCell     float64 `yaml:"grid_cell" validate:"gt=0"`
}

// Config maps the decor knobs onto the placement engine's config.
func (d Decor) Config() decor.Config {
	return decor.Config{SeedAttempts: d.SeedAttempts, MaxK: d.MaxK}
}

type Assets struct {
	LatencyTicks int `yaml:"latency_ticks" validate:"min=0"`
}

// Defaults is the tuning a bare server runs with.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      30,
		ChunkSize:       64,
		ObserverSpeed:   12,
		Window: Window{
			Back:          2,
			Forward:       4,
			MaxLoading:    3,
			BudgetMs:      4,
			CleanupMargin: 128,
		},
		Biome: Biome{
			HalfWidth: 25,
			MinSpan:   220,
			MaxSpan:   480,
		},
		Terrain: Terrain{
			Amplitude:    9,
			NoiseScale:   0.013,
			Octaves:      4,
			ValleyRise:   0.35,
			ValleyMax:    42,
			ChannelDepth: 6,
			HalfWidth:    160,
		},
		River: River{
			BaseWidth:    26,
			WidthVar:     9,
			MeanderAmp:   55,
			MeanderScale: 0.0015,
			WidthScale:   0.004,
		},
		Collision: Collision{
			Radius:     300,
			Step:       5,
			UpdateStep: 40,
		},
		Decor: Decor{
			SeedAttempts: 100,
			MaxK:         30,
			GridCell:     8,
		},
		Assets: Assets{
			LatencyTicks: 2,
		},
	}
}

// Load reads path over Defaults, so a partial file overrides only what
// it names, then validates the merged result.
func Load(path string) (Tuning, error) {
	t := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if err := validator.New().Struct(t); err != nil {
		return fmt.Errorf("validate tuning: %w", err)
	}
	return nil
}
