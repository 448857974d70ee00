// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package config loads the node configuration from an optional YAML file.
// Command line flags take precedence over the file.
package config

import (
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stakedash/stakedash/clock"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/staker/schedule"
	"github.com/stakedash/stakedash/types"
)

type Config struct {
	DataDir string        `yaml:"data_dir"`
	API     APIConfig     `yaml:"api"`
	Metrics MetricsConfig `yaml:"metrics"`
	Clock   ClockConfig   `yaml:"clock"`
	Staking StakingConfig `yaml:"staking"`
	Grants  GrantsConfig  `yaml:"grants"`
	Groups  GroupsConfig  `yaml:"groups"`
	Cache   CacheConfig   `yaml:"cache"`
}

type APIConfig struct {
	Addr        string        `yaml:"addr"`
	CORS        string        `yaml:"cors"`
	EventsLimit uint64        `yaml:"events_limit"`
	RequestLogs bool          `yaml:"request_logs"`
	SlowQueries time.Duration `yaml:"slow_queries"` // log requests slower than this, 0 disables
	Pprof       bool          `yaml:"pprof"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type ClockConfig struct {
	NTPServer string        `yaml:"ntp_server"`
	SkipCheck bool          `yaml:"skip_check"`
	MaxDrift  time.Duration `yaml:"max_drift"`
}

// StakingConfig holds the lifecycle windows and the minimum stake schedule.
// Periods and schedule times are in seconds, values in whole tokens.
type StakingConfig struct {
	InitializationPeriod uint64         `yaml:"initialization_period"`
	UndelegationPeriod   uint64         `yaml:"undelegation_period"`
	Schedule             ScheduleConfig `yaml:"schedule"`
}

type ScheduleConfig struct {
	Start      uint64 `yaml:"start"`
	Duration   uint64 `yaml:"duration"`
	Steps      uint64 `yaml:"steps"`
	StartValue uint64 `yaml:"start_value"`
	EndValue   uint64 `yaml:"end_value"`
}

// GrantsConfig enables the grant manager when Owner is set.
type GrantsConfig struct {
	Address          string   `yaml:"address"`
	Owner            string   `yaml:"owner"`
	StakingContracts []string `yaml:"staking_contracts"`
}

// GroupsConfig enables the group registry when OperatorContract is set.
type GroupsConfig struct {
	OperatorContract string `yaml:"operator_contract"`
}

type CacheConfig struct {
	DatabaseMB int `yaml:"database_mb"`
	Records    int `yaml:"records"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Addr:        "localhost:8679",
			EventsLimit: 1000,
		},
		Metrics: MetricsConfig{
			Addr: "localhost:2113",
		},
		Clock: ClockConfig{
			NTPServer: clock.DefaultNTPServer,
			MaxDrift:  10 * time.Second,
		},
		Staking: StakingConfig{
			InitializationPeriod: staker.DefaultInitializationPeriod,
			UndelegationPeriod:   staker.DefaultUndelegationPeriod,
			Schedule: ScheduleConfig{
				Duration:   schedule.DefaultDuration,
				Steps:      schedule.DefaultSteps,
				StartValue: 100000,
				EndValue:   10000,
			},
		},
		Cache: CacheConfig{
			DatabaseMB: 256,
			Records:    4096,
		},
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid configuration")
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o600), "write config file")
}

func (c *Config) Validate() error {
	if c.API.Addr == "" {
		return errors.New("api.addr: required")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr: required when metrics are enabled")
	}
	if _, err := c.Staking.Schedule.Build(); err != nil {
		return errors.WithMessage(err, "staking.schedule")
	}
	if _, err := c.Grants.OwnerAddress(); err != nil {
		return errors.WithMessage(err, "grants.owner")
	}
	if _, err := c.Grants.ManagerAddress(); err != nil {
		return errors.WithMessage(err, "grants.address")
	}
	if _, err := c.Grants.Contracts(); err != nil {
		return errors.WithMessage(err, "grants.staking_contracts")
	}
	if _, err := c.Groups.Contract(); err != nil {
		return errors.WithMessage(err, "groups.operator_contract")
	}
	return nil
}

// Params returns the lifecycle windows.
func (s *StakingConfig) Params() staker.Params {
	return staker.Params{
		InitializationPeriod: s.InitializationPeriod,
		UndelegationPeriod:   s.UndelegationPeriod,
	}
}

// Build creates the minimum stake schedule.
func (s *ScheduleConfig) Build() (*schedule.Schedule, error) {
	return schedule.New(
		s.Start,
		s.Duration,
		s.Steps,
		types.Tokens(int64(s.StartValue)),
		types.Tokens(int64(s.EndValue)),
	)
}

func optionalAddress(s string) (*types.Address, error) {
	if s == "" {
		return nil, nil
	}
	return types.ParseAddress(s)
}

// OwnerAddress returns the grant manager owner, nil when grants are disabled.
func (g *GrantsConfig) OwnerAddress() (*types.Address, error) {
	return optionalAddress(g.Owner)
}

// ManagerAddress returns the address the grant manager stakes from. It
// defaults to the zero address.
func (g *GrantsConfig) ManagerAddress() (types.Address, error) {
	addr, err := optionalAddress(g.Address)
	if err != nil || addr == nil {
		return types.Address{}, err
	}
	return *addr, nil
}

func (g *GrantsConfig) Contracts() ([]types.Address, error) {
	contracts := make([]types.Address, 0, len(g.StakingContracts))
	for _, s := range g.StakingContracts {
		addr, err := types.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *addr)
	}
	return contracts, nil
}

// Contract returns the operator contract, nil when groups are disabled.
func (g *GroupsConfig) Contract() (*types.Address, error) {
	return optionalAddress(g.OperatorContract)
}

// MinimumAt is a shortcut for the schedule threshold at now.
func (s *ScheduleConfig) MinimumAt(now uint64) (*big.Int, error) {
	sched, err := s.Build()
	if err != nil {
		return nil, err
	}
	return sched.MinimumStake(now), nil
}
