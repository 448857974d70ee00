// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakedash/stakedash/api"
	"github.com/stakedash/stakedash/api/doc"
	"github.com/stakedash/stakedash/clock"
	"github.com/stakedash/stakedash/cmd/stakedash/httpserver"
	"github.com/stakedash/stakedash/config"
	"github.com/stakedash/stakedash/log"
	"github.com/stakedash/stakedash/metrics"
)

const clockCheckInterval = time.Hour

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "stakedash")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	if version == "" {
		version = doc.Version()
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Stakedash",
		Usage:     "Stake lifecycle manager",
		Copyright: "2025 The VeChainThor developers",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			persistFlag,
			cacheFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiEventsLimitFlag,
			enableAPILogsFlag,
			apiSlowQueriesFlag,
			pprofFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			ntpServerFlag,
			skipClockCheckFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:   "inspect",
				Usage:  "Dump the stake record and history of an operator",
				Flags:  []cli.Flag{configFlag, dataDirFlag, verbosityFlag, operatorFlag, atFlag},
				Action: inspectAction,
			},
			{
				Name:   "minimum-stake",
				Usage:  "Print the minimum stake at a point in time",
				Flags:  []cli.Flag{configFlag, atFlag},
				Action: minimumStakeAction,
			},
			{
				Name:   "rebuild-events",
				Usage:  "Recreate the event database from the stake records",
				Flags:  []cli.Flag{configFlag, dataDirFlag, verbosityFlag},
				Action: rebuildEventsAction,
			},
			{
				Name:      "dump-config",
				Usage:     "Write the effective configuration to a file",
				ArgsUsage: "<path>",
				Flags:     []cli.Flag{configFlag, dataDirFlag},
				Action:    dumpConfigAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	if _, err := initLogger(ctx); err != nil {
		return err
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if !cfg.Clock.SkipCheck {
		checkCtx, cancel := context.WithTimeout(exitSignal, 10*time.Second)
		_, err := clock.CheckDrift(checkCtx, cfg.Clock.NTPServer, cfg.Clock.MaxDrift)
		cancel()
		switch {
		case errors.Is(err, clock.ErrClockDrift):
			return err
		case err != nil:
			logger.Warn("failed to check clock drift", "err", err)
		}
	}

	if cfg.Metrics.Enabled {
		metrics.InitializePrometheusMetrics()
	}

	comps, err := openComponents(cfg, ctx.BoolT(persistFlag.Name), clock.System{})
	if err != nil {
		return err
	}
	defer comps.Close()

	apiURL, stopAPI, err := httpserver.StartAPIServer(cfg.API.Addr, comps.backend(), api.Options{
		AllowedOrigins:       cfg.API.CORS,
		PprofOn:              cfg.API.Pprof,
		EnableReqLogger:      cfg.API.RequestLogs,
		SlowQueriesThreshold: cfg.API.SlowQueries,
		EnableMetrics:        cfg.Metrics.Enabled,
		EventsLimit:          cfg.API.EventsLimit,
	})
	if err != nil {
		return err
	}
	defer func() { logger.Info("stopping API server..."); stopAPI() }()

	metricsURL := ""
	if cfg.Metrics.Enabled {
		url, stopMetrics, err := httpserver.StartMetricsServer(cfg.Metrics.Addr)
		if err != nil {
			return err
		}
		defer func() { logger.Info("stopping metrics server..."); stopMetrics() }()
		metricsURL = url
	}

	printStartupMessage(cfg, comps, apiURL, metricsURL)

	g, gctx := errgroup.WithContext(exitSignal)
	if !cfg.Clock.SkipCheck {
		g.Go(func() error {
			watchClock(gctx, cfg.Clock)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

// watchClock rechecks the clock drift until ctx is done. Transition windows
// are measured with the host clock, so drift is reported loudly.
func watchClock(ctx context.Context, cfg config.ClockConfig) {
	ticker := time.NewTicker(clockCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			_, err := clock.CheckDrift(checkCtx, cfg.NTPServer, cfg.MaxDrift)
			cancel()
			if err != nil && ctx.Err() == nil {
				logger.Error("clock check failed", "err", err)
			}
		}
	}
}

func dumpConfigAction(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return errors.New("path required")
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return cfg.Save(path)
}

func printStartupMessage(cfg *config.Config, comps *components, apiURL, metricsURL string) {
	sched := comps.staker.Schedule()
	fmt.Printf(`Starting %v
    Instance dir   [ %v ]
    Minimum stake  [ %v ]
    Schedule       [ %v steps, %v => %v ]
    Grants         [ %v ]
    Groups         [ %v ]
    API portal     [ %v ]
    Metrics        [ %v ]
`,
		fullVersion(),
		comps.instanceDir,
		comps.staker.MinimumStake(comps.clock.Now()),
		sched.Steps(), sched.StartValue(), sched.EndValue(),
		enabled(comps.grants != nil, cfg.Grants.Address),
		enabled(comps.groups != nil, cfg.Groups.OperatorContract),
		apiURL,
		enabled(metricsURL != "", metricsURL),
	)
}

func enabled(on bool, detail string) string {
	if !on {
		return "Disabled"
	}
	return detail
}
