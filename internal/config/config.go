// Package config loads the run configuration document via viper and
// validates it into the strongly typed Document the simulation
// consumes.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// FundamentalConfig parametrizes the latent mean-reverting fundamental
// process. Optional: a zero value disables fundamental-aware
// algorithms from doing anything useful, but is not itself an error.
type FundamentalConfig struct {
	Kappa float64 `mapstructure:"kappa"`
	Mean  float64 `mapstructure:"mean"`
	Shock float64 `mapstructure:"shock"`
	Prob  float64 `mapstructure:"prob"`
}

// Keyframe is one (time, price) anchor for a fixedmarketmaker curve.
type Keyframe struct {
	Time  int64   `mapstructure:"time"`
	Price float64 `mapstructure:"price"`
}

// TypeArgs holds every strategy-specific field any Agent type might
// need; the factory reads only the fields its tag calls for.
type TypeArgs struct {
	OrderLifespan int64   `mapstructure:"order_lifespan"`
	OrderChance   float64 `mapstructure:"order_chance"`
	OrderCooldown int64   `mapstructure:"order_cooldown"`
	TimeInterval  int64   `mapstructure:"time_interval"`
	Interval      int64   `mapstructure:"interval"`
	Rate          float64 `mapstructure:"rate"`
	Depth         int     `mapstructure:"depth"`
	AllowShort    bool    `mapstructure:"allow_short"`
}

// AlgorithmArgs holds every strategy-specific field any Algorithm tag
// might need.
type AlgorithmArgs struct {
	Side  string  `mapstructure:"side"`
	Qty   int64   `mapstructure:"qty"`
	Price float64 `mapstructure:"price"`

	Mean      float64 `mapstructure:"mean"`
	Dev       float64 `mapstructure:"dev"`
	Min       float64 `mapstructure:"min"`
	Max       float64 `mapstructure:"max"`
	Qmin      int64   `mapstructure:"qmin"`
	Qmax      int64   `mapstructure:"qmax"`
	BuyChance float64 `mapstructure:"buy_chance"`

	BuyThreshold  float64 `mapstructure:"buy_threshold"`
	SellThreshold float64 `mapstructure:"sell_threshold"`

	Band float64 `mapstructure:"band"`

	Distance float64 `mapstructure:"distance"`

	Keyframes []Keyframe `mapstructure:"keyframes"`
	Spread    float64    `mapstructure:"spread"`
	TickSpread float64   `mapstructure:"tick_spread"`
	TickCount  int       `mapstructure:"tick_count"`

	MaxPos    int64   `mapstructure:"max_pos"`
	Variance  float64 `mapstructure:"variance"`
	OffsetMin float64 `mapstructure:"offset_min"`
	OffsetMax float64 `mapstructure:"offset_max"`

	Threshold float64 `mapstructure:"threshold"`
}

// LatencyArgs holds the parameters for either latency tag.
type LatencyArgs struct {
	Min       float64 `mapstructure:"min"`
	Max       float64 `mapstructure:"max"`
	Mean      float64 `mapstructure:"mean"`
	Deviation float64 `mapstructure:"deviation"`
}

// AgentSpec describes one (possibly replicated) agent population.
type AgentSpec struct {
	Name    string            `mapstructure:"name"`
	Count   int               `mapstructure:"count"`
	Symbol  string            `mapstructure:"symbol"`
	Balance float64           `mapstructure:"balance"`
	Shares  map[string]int64  `mapstructure:"shares"`

	Type     string   `mapstructure:"type"`
	TypeArgs TypeArgs `mapstructure:"typeargs"`

	Algorithm     string        `mapstructure:"algorithm"`
	AlgorithmArgs AlgorithmArgs `mapstructure:"algorithmargs"`

	Latency     string      `mapstructure:"latency"`
	LatencyArgs LatencyArgs `mapstructure:"latencyargs"`
}

// Document is the fully parsed run configuration.
type Document struct {
	Runtime     int64                  `mapstructure:"runtime"`
	Fundamental *FundamentalConfig     `mapstructure:"fundamental"`
	Symbols     map[string]float64     `mapstructure:"symbols"`
	Agents      []AgentSpec            `mapstructure:"agents"`
	Seed        int64                  `mapstructure:"seed"`
}

var validTypes = map[string]bool{
	"basic": true, "canceling": true, "recording": true,
	"basicmarketmaker": true, "regulartrading": true, "poisson": true,
	"stalequotearbitrage": true,
}

var validAlgorithms = map[string]bool{
	"fixedprice": true, "randomnormal": true, "randomlognormal": true,
	"randomlinear": true, "buylowsellhigh": true, "meanreversion": true,
	"simplemarketmaker": true, "fixedmarketmaker": true,
	"fundamentalmarketmaker": true, "zi": true, "stalequotearbitrage": true,
}

var validLatencies = map[string]bool{"linear": true, "normal": true}

// Load reads and validates the configuration document at path.
func Load(path string) (*Document, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var doc Document
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &doc, nil
}

// Validate rejects unknown strategy/algorithm/latency tags and
// missing required fields — a configuration error is always fatal at
// startup, never a silent default.
func (d *Document) Validate() error {
	if d.Runtime <= 0 {
		return fmt.Errorf("runtime must be positive, got %d", d.Runtime)
	}
	if len(d.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	for _, a := range d.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent spec missing name")
		}
		if !validTypes[a.Type] {
			return fmt.Errorf("agent %s: unknown type %q", a.Name, a.Type)
		}
		if !validAlgorithms[a.Algorithm] {
			return fmt.Errorf("agent %s: unknown algorithm %q", a.Name, a.Algorithm)
		}
		if !validLatencies[a.Latency] {
			return fmt.Errorf("agent %s: unknown latency %q", a.Name, a.Latency)
		}
		if a.Symbol == "" {
			return fmt.Errorf("agent %s: missing symbol", a.Name)
		}
		if _, ok := d.Symbols[a.Symbol]; !ok {
			return fmt.Errorf("agent %s: symbol %q not declared under symbols", a.Name, a.Symbol)
		}
	}
	return nil
}
