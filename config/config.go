// Package config loads the self-play runner's settings from YAML.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/brensch/tank2/executor/eval"
	"github.com/brensch/tank2/executor/mcts"
	"github.com/brensch/tank2/executor/selfplay"
	"github.com/brensch/tank2/logging"
	"github.com/brensch/tank2/spectate"
)

type Config struct {
	// Search drives side 0. Opponent drives side 1 and falls back to
	// Search when absent.
	Search   mcts.Config  `yaml:"search"`
	Opponent *mcts.Config `yaml:"opponent"`

	Weights  eval.Weights           `yaml:"weights"`
	Terrain  selfplay.TerrainConfig `yaml:"terrain"`
	Spectate spectate.HubConfig     `yaml:"spectate"`
	Log      logging.Options        `yaml:"log"`
	SelfPlay SelfPlay               `yaml:"selfplay"`
}

// SelfPlay controls the match runner and its output.
type SelfPlay struct {
	OutDir string `yaml:"out_dir"`
	// LogPath lists match ids already archived.
	LogPath string `yaml:"log_path"`
	// Matches stops the runner after this many matches; 0 runs until interrupted.
	Matches       int    `yaml:"matches"`
	GamesPerFlush int    `yaml:"games_per_flush"`
	Seed          uint64 `yaml:"seed"`
	// SpectateAddr serves the spectate hub when set, e.g. ":8080".
	SpectateAddr string `yaml:"spectate_addr"`
}

func Default() Config {
	return Config{
		Search:   mcts.DefaultConfig(),
		Weights:  eval.DefaultWeights(),
		Terrain:  selfplay.DefaultTerrainConfig(),
		Spectate: spectate.DefaultHubConfig(),
		Log:      logging.Options{Level: "info", Pretty: true},
		SelfPlay: SelfPlay{
			OutDir:        "data/selfplay",
			LogPath:       "data/selfplay/written_matches.log",
			GamesPerFlush: 50,
		},
	}
}

// Load reads path over the defaults. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	// Opponent keys override a copy of the search block.
	var raw struct {
		Opponent *yaml.Node `yaml:"opponent"`
	}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Opponent = nil
	if raw.Opponent != nil && raw.Opponent.Kind == yaml.MappingNode {
		opp := cfg.Search
		if err := raw.Opponent.Decode(&opp); err != nil {
			return cfg, fmt.Errorf("parse config %s opponent: %w", path, err)
		}
		cfg.Opponent = &opp
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Sides returns the search settings of both players.
func (c Config) Sides() [2]mcts.Config {
	out := [2]mcts.Config{c.Search, c.Search}
	if c.Opponent != nil {
		out[1] = *c.Opponent
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	for side, s := range c.Sides() {
		if _, err := mcts.ParseRanking(string(s.PriorRanking)); err != nil {
			errs = append(errs, fmt.Errorf("side %d: %w", side, err))
		}
		if s.Deadline <= 0 && s.MaxIterations <= 0 {
			errs = append(errs, fmt.Errorf("side %d: search needs a deadline or an iteration cap", side))
		}
		if s.MaxDepth <= 0 {
			errs = append(errs, fmt.Errorf("side %d: max_depth must be positive", side))
		}
	}
	if err := c.Terrain.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.SelfPlay.GamesPerFlush <= 0 {
		errs = append(errs, errors.New("games_per_flush must be positive"))
	}
	return errors.Join(errs...)
}
