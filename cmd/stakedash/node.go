// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/api"
	"github.com/stakedash/stakedash/clock"
	"github.com/stakedash/stakedash/config"
	"github.com/stakedash/stakedash/dkg"
	"github.com/stakedash/stakedash/eventdb"
	"github.com/stakedash/stakedash/grant"
	"github.com/stakedash/stakedash/lvldb"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/staker/record"
)

const (
	mainDBName  = "stakes.db"
	eventDBName = "events.db"
	memoryDir   = "Memory"
)

// components are the services a node wires together.
type components struct {
	instanceDir string
	mainDB      *lvldb.LevelDB
	eventDB     *eventdb.EventDB
	repo        *record.Repository
	staker      *staker.Staker
	grants      *grant.Manager
	groups      *dkg.Registry
	clock       clock.Clock
}

// openMainDB opens the stake database under the data dir. A read only db
// must already exist.
func openMainDB(cfg *config.Config, readOnly bool) (*lvldb.LevelDB, error) {
	cacheMB := normalizeCacheSize(cfg.Cache.DatabaseMB)
	logger.Debug("cache size(MB)", "size", cacheMB)

	// Ensure Go's GC ignores the database cache for trigger percentage
	gogc := math.Max(20, math.Min(100, 100/(float64(cacheMB)/1024)))
	logger.Debug("sanitize Go's GC trigger", "percent", int(gogc))
	debug.SetGCPercent(int(gogc))

	fdCache, err := suggestFDCache()
	if err != nil {
		return nil, err
	}
	logger.Debug("fd cache", "n", fdCache)

	dir := filepath.Join(cfg.DataDir, mainDBName)
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: fdCache,
		ReadOnly:               readOnly,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open stake database [%v]", dir)
	}
	return db, nil
}

func openEventDB(dataDir string) (*eventdb.EventDB, error) {
	dir := filepath.Join(dataDir, eventDBName)
	db, err := eventdb.New(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open event database [%v]", dir)
	}
	return db, nil
}

// openComponents opens the databases under the data dir, or in memory when
// persist is false, and wires the staker, grant manager and group registry.
func openComponents(cfg *config.Config, persist bool, clk clock.Clock) (c *components, err error) {
	c = &components{clock: clk}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if persist {
		if cfg.DataDir == "" {
			return nil, errors.New("data dir required")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, errors.Wrapf(err, "create data dir [%v]", cfg.DataDir)
		}
		c.instanceDir = cfg.DataDir
		if c.mainDB, err = openMainDB(cfg, false); err != nil {
			return nil, err
		}
		if c.eventDB, err = openEventDB(cfg.DataDir); err != nil {
			return nil, err
		}
	} else {
		c.instanceDir = memoryDir
		if c.mainDB, err = lvldb.NewMem(); err != nil {
			return nil, errors.Wrap(err, "open stake database")
		}
		if c.eventDB, err = eventdb.NewMem(); err != nil {
			return nil, errors.Wrap(err, "open event database")
		}
	}

	if c.repo, err = record.NewRepository(c.mainDB, cfg.Cache.Records); err != nil {
		return nil, err
	}
	sched, err := cfg.Staking.Schedule.Build()
	if err != nil {
		return nil, err
	}
	if c.staker, err = staker.New(c.repo, sched, cfg.Staking.Params(), staker.WithListener(c.eventDB.Listener())); err != nil {
		return nil, err
	}

	owner, err := cfg.Grants.OwnerAddress()
	if err != nil {
		return nil, err
	}
	if owner != nil {
		address, err := cfg.Grants.ManagerAddress()
		if err != nil {
			return nil, err
		}
		contracts, err := cfg.Grants.Contracts()
		if err != nil {
			return nil, err
		}
		c.grants = grant.New(c.mainDB, address, *owner)
		for _, contract := range contracts {
			if err := c.grants.AuthorizeStakingContract(*owner, contract, c.staker); err != nil {
				return nil, err
			}
		}
		c.staker.SetGrantees(c.grants)
	}

	operatorContract, err := cfg.Groups.Contract()
	if err != nil {
		return nil, err
	}
	if operatorContract != nil {
		c.groups = dkg.NewRegistry(c.mainDB, c.staker, *operatorContract)
	}
	return c, nil
}

func (c *components) Close() {
	if c.eventDB != nil {
		logger.Info("closing event database...")
		if err := c.eventDB.Close(); err != nil {
			logger.Warn("failed to close event database", "err", err)
		}
	}
	if c.mainDB != nil {
		logger.Info("closing stake database...")
		if err := c.mainDB.Close(); err != nil {
			logger.Warn("failed to close stake database", "err", err)
		}
	}
}

func (c *components) backend() api.Backend {
	return api.Backend{
		Staker: c.staker,
		Grants: c.grants,
		Events: c.eventDB,
		Groups: c.groups,
		Clock:  c.clock,
	}
}
