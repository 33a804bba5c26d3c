package topiary

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Error represents an error related with solver configuration
type Error string

// ErrUnknownAlgorithm is returned when no preset is named or numbered as requested
const ErrUnknownAlgorithm = Error("unknown algorithm")

func (e Error) Error() string {
	return string(e)
}

/*
Strategy determines the sequence of size limits a Solver probes when
searching for a minimum-size tree.
*/
type Strategy int

const (
	// Decision probes the configured MaxSize only
	Decision Strategy = iota
	// Increasing probes sizes from a lower bound upwards
	Increasing
	// Decreasing probes sizes from an upper bound downwards
	Decreasing
	// Bisection probes the midpoint between a known infeasible and a known
	// feasible size
	Bisection
)

var strategyNames = []string{"decision", "increasing", "decreasing", "bisection"}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return "strategy(" + strconv.Itoa(int(s)) + ")"
	}
	return strategyNames[s]
}

// ParseStrategy takes the name or number of a strategy and returns it
func ParseStrategy(s string) (Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range strategyNames {
		if s == name {
			return Strategy(i), nil
		}
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || i >= len(strategyNames) {
		return 0, fmt.Errorf("parsing strategy %q: not one of %s", s, strings.Join(strategyNames, ", "))
	}
	return Strategy(i), nil
}

// UnmarshalYAML accepts a strategy by name or number
func (s *Strategy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseStrategy(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML writes a strategy by name
func (s Strategy) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

/*
OracleFailure tells a Solver what to do when its lower bound oracle returns
an error.
*/
type OracleFailure string

const (
	// OracleFallback replaces the oracle bound by the combinatorial bound of
	// a fresh witness tree
	OracleFallback OracleFailure = "fallback"
	// OracleAbort makes Solve return the oracle error
	OracleAbort OracleFailure = "abort"
)

// DefaultCacheMaxSetSize is the largest leaf solved on its own to fill the
// subset cache unless configured otherwise
const DefaultCacheMaxSetSize = 30

/*
Config holds the settings of a Solver: the strategy of size limits it probes
and the pruning rules enabled while searching every size.
*/
type Config struct {
	Strategy Strategy `yaml:"strategy"`
	// DirtyPriority picks the misclassified example farthest from being
	// separable by the current cuts first, instead of the lowest id
	DirtyPriority bool `yaml:"dirtyPriority"`
	// Preprocess reduces the dataset before normalizing it
	Preprocess bool `yaml:"preprocess"`
	// LowerBounds enables the combinatorial and the oracle lower bounds
	LowerBounds bool `yaml:"lowerBounds"`
	// SubsetConstraints prunes refinements whose effect is subsumed by an
	// alternative already searched
	SubsetConstraints bool `yaml:"subsetConstraints"`
	// SubsetCaching records example subsets proven to need more than some
	// number of refinements and prunes supersets of them
	SubsetCaching bool `yaml:"subsetCaching"`

	// MaxSize is the size probed by the Decision strategy
	MaxSize int `yaml:"maxSize"`
	// UpperBound is a size known or guessed to be feasible, where the
	// Decreasing and Bisection strategies start. 0 uses the number of
	// examples minus one.
	UpperBound int `yaml:"upperBound"`
	// Timeout bounds the whole Solve call, 0 means no timeout
	Timeout time.Duration `yaml:"timeout"`
	// CacheMaxSetSize is the largest number of examples of a leaf solved on
	// its own to fill the subset cache
	CacheMaxSetSize int           `yaml:"cacheMaxSetSize"`
	OracleFailure   OracleFailure `yaml:"oracleFailure"`
}

type preset struct {
	name   string
	config Config
}

func allOn(s Strategy) Config {
	return Config{
		Strategy:          s,
		DirtyPriority:     true,
		Preprocess:        true,
		LowerBounds:       true,
		SubsetConstraints: true,
		SubsetCaching:     true,
	}
}

// presets are listed in order of id
var presets = []preset{
	{"basic", Config{Strategy: Increasing}},
	{"imp1", Config{Strategy: Increasing, DirtyPriority: true}},
	{"imp2", Config{Strategy: Increasing, DirtyPriority: true, Preprocess: true}},
	{"imp3", Config{Strategy: Increasing, DirtyPriority: true, Preprocess: true, LowerBounds: true}},
	{"imp4", Config{Strategy: Increasing, DirtyPriority: true, Preprocess: true, LowerBounds: true, SubsetConstraints: true}},
	{"strategy1", allOn(Increasing)},
	{"strategy2", allOn(Decreasing)},
	{"strategy3", allOn(Bisection)},
	{"decision", allOn(Decision)},
}

func (p preset) build() *Config {
	c := p.config
	c.CacheMaxSetSize = DefaultCacheMaxSetSize
	c.OracleFailure = OracleFallback
	return &c
}

/*
Preset takes the name of an algorithm and returns a new Config with its
settings, or ErrUnknownAlgorithm. Names are case-insensitive.
*/
func Preset(name string) (*Config, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range presets {
		if p.name == name {
			return p.build(), nil
		}
	}
	return nil, fmt.Errorf("looking up preset %q: %w", name, ErrUnknownAlgorithm)
}

// PresetByID returns a new Config with the settings of the algorithm
// numbered id, or ErrUnknownAlgorithm
func PresetByID(id int) (*Config, error) {
	if id < 0 || id >= len(presets) {
		return nil, fmt.Errorf("looking up preset %d: %w", id, ErrUnknownAlgorithm)
	}
	return presets[id].build(), nil
}

// PresetID returns the number of the algorithm named name, or -1
func PresetID(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, p := range presets {
		if p.name == name {
			return i
		}
	}
	return -1
}

// PresetNames returns the algorithm names in order of id
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.name
	}
	return names
}

// Validate returns an error if the configuration cannot be used to solve
func (c *Config) Validate() error {
	if c.Strategy < Decision || c.Strategy > Bisection {
		return fmt.Errorf("invalid strategy %d", int(c.Strategy))
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("max size must not be negative, got %d", c.MaxSize)
	}
	if c.UpperBound < 0 {
		return fmt.Errorf("upper bound must not be negative, got %d", c.UpperBound)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	if c.SubsetCaching && c.CacheMaxSetSize < 1 {
		return fmt.Errorf("subset caching needs a positive cache max set size, got %d", c.CacheMaxSetSize)
	}
	switch c.OracleFailure {
	case "", OracleFallback, OracleAbort:
	default:
		return fmt.Errorf("invalid oracle failure policy %q, must be %q or %q", c.OracleFailure, OracleFallback, OracleAbort)
	}
	return nil
}
