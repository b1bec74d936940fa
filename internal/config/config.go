// Package config loads dataflow run configurations from TOML.
//
// A configuration declares executor settings, a graph (inputs, layer nodes
// and fetches) and the values fed into it:
//
//	[executor]
//	cache_max_entries = 100
//	log_level = "info"
//
//	[graph]
//	fetch = ["h"]
//
//	[[graph.inputs]]
//	name = "x"
//
//	[[graph.nodes]]
//	name = "h"
//	type = "relu"
//	inputs = ["x"]
//
//	[[feed]]
//	name = "x"
//	shape = [3]
//	values = [-1.0, 0.0, 2.0]
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/born-ml/dataflow/internal/executor"
)

// Defaults.
const (
	DefaultCacheMaxEntries = executor.DefaultCacheMaxEntries
	DefaultLogLevel        = "info"
)

// Config is a complete run configuration.
type Config struct {
	Executor ExecutorConfig `toml:"executor"`
	Graph    GraphConfig    `toml:"graph"`
	Feed     []FeedConfig   `toml:"feed"`
}

// ExecutorConfig holds executor settings.
type ExecutorConfig struct {
	CacheMaxEntries int    `toml:"cache_max_entries"`
	LogLevel        string `toml:"log_level"`
	Training        bool   `toml:"training"`
}

// GraphConfig declares a graph.
type GraphConfig struct {
	Inputs []InputConfig `toml:"inputs"`
	Nodes  []NodeConfig  `toml:"nodes"`
	Fetch  []string      `toml:"fetch"`
}

// InputConfig declares a graph input.
type InputConfig struct {
	Name  string `toml:"name"`
	Shape []int  `toml:"shape"`
}

// NodeConfig declares one layer call.
type NodeConfig struct {
	Name      string      `toml:"name"`
	Type      string      `toml:"type"`
	Inputs    []string    `toml:"inputs"`
	Weights   [][]float32 `toml:"weights"`
	Bias      []float32   `toml:"bias"`
	Factor    float32     `toml:"factor"`
	MaskValue float32     `toml:"mask_value"`
	Parts     int         `toml:"parts"`
}

// FeedConfig binds a concrete value to a graph tensor.
type FeedConfig struct {
	Name   string    `toml:"name"`
	Shape  []int     `toml:"shape"`
	Values []float32 `toml:"values"`
	Mask   []bool    `toml:"mask"`
}

// Default returns a configuration with default executor settings and an
// empty graph.
func Default() *Config {
	return &Config{
		Executor: ExecutorConfig{
			CacheMaxEntries: DefaultCacheMaxEntries,
			LogLevel:        DefaultLogLevel,
		},
	}
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return finish(cfg, md)
}

// Parse decodes and validates a TOML configuration.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(cfg, md)
}

func finish(cfg *Config, md toml.MetaData) (*Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings and graph references.
func (c *Config) Validate() error {
	var errs []error

	if c.Executor.CacheMaxEntries < 1 {
		errs = append(errs, fmt.Errorf("executor.cache_max_entries must be positive, got %d", c.Executor.CacheMaxEntries))
	}
	switch c.Executor.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("executor.log_level %q is not one of debug, info, warn, error", c.Executor.LogLevel))
	}

	declared := make(map[string]bool)
	declare := func(kind, name string) {
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("%s without a name", kind))
		case declared[name]:
			errs = append(errs, fmt.Errorf("%s %q declared twice", kind, name))
		}
		declared[name] = true
	}
	for _, in := range c.Graph.Inputs {
		declare("input", in.Name)
	}
	for _, n := range c.Graph.Nodes {
		if n.Type == "" {
			errs = append(errs, fmt.Errorf("node %q has no type", n.Name))
		}
		if len(n.Inputs) == 0 {
			errs = append(errs, fmt.Errorf("node %q has no inputs", n.Name))
		}
		for _, ref := range n.Inputs {
			if !declared[baseName(ref)] {
				errs = append(errs, fmt.Errorf("node %q: input %q is not declared before use", n.Name, ref))
			}
		}
		declare("node", n.Name)
	}

	if len(c.Graph.Fetch) == 0 && (len(c.Graph.Inputs) > 0 || len(c.Graph.Nodes) > 0) {
		errs = append(errs, errors.New("graph.fetch is empty"))
	}
	for _, f := range c.Graph.Fetch {
		if !declared[baseName(f)] {
			errs = append(errs, fmt.Errorf("fetch %q is not declared", f))
		}
	}
	for _, f := range c.Feed {
		if !declared[baseName(f.Name)] {
			errs = append(errs, fmt.Errorf("feed %q is not declared", f.Name))
		}
	}

	return errors.Join(errs...)
}

// FeedNames returns the names of fed tensors, sorted.
func (c *Config) FeedNames() []string {
	names := make([]string, len(c.Feed))
	for i, f := range c.Feed {
		names[i] = f.Name
	}
	sort.Strings(names)
	return names
}

// baseName strips a ":<index>" output suffix.
func baseName(ref string) string {
	if i := strings.LastIndexByte(ref, ':'); i >= 0 {
		return ref[:i]
	}
	return ref
}
