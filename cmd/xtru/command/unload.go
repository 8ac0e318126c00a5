/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package command

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/actiontech/xtru/config"
	"github.com/actiontech/xtru/driver/common"
	"github.com/actiontech/xtru/driver/metastore"
	oracle "github.com/actiontech/xtru/driver/oracle/config"
	"github.com/actiontech/xtru/driver/oracle/extractor"
	"github.com/actiontech/xtru/g"
	"github.com/actiontech/xtru/logger"
	"github.com/actiontech/xtru/metric"
	"github.com/pkg/errors"
)

// UnloadCommand runs one unload job. The first interrupt stops the job at the
// next batch boundary, the second one exits at once.
type UnloadCommand struct {
	Meta
}

// unloadFlags are the command line values overriding the job file.
type unloadFlags struct {
	configPath string
	table      string
	query      string
	logLevel   string
	metastore  string
	parallel   int
	bulk       int
	scn        int64
}

func (c *UnloadCommand) Help() string {
	helpText := `
Usage: xtru unload [options]

  Unloads the tables of a job into data files and SQL*Loader control files.

Options:

  -config=<path>
    The job file. See "xtru init".

  -table=<OWNER.NAME>
    Unload this table instead of the tables of the job file.

  -query=<sql>
    With -table, the statements to run instead of a full table scan.

  -parallel=<n>
    Number of tables unloaded at the same time.

  -bulk=<n>
    Rows fetched per round trip.

  -scn=<n>
    Read every table as of this SCN.

  -metastore=<path>
    Where runs are recorded. "-" disables the record.

  -log-level=<level>
    TRACE, DEBUG, INFO, WARN or ERROR.
`
	return strings.TrimSpace(helpText)
}

func (c *UnloadCommand) Synopsis() string {
	return "Unload Oracle tables into loader ready files"
}

func (c *UnloadCommand) Run(args []string) int {
	var f unloadFlags
	flags := c.Meta.FlagSet("unload")
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	flags.StringVar(&f.configPath, "config", "", "")
	flags.StringVar(&f.table, "table", "", "")
	flags.StringVar(&f.query, "query", "", "")
	flags.StringVar(&f.logLevel, "log-level", "", "")
	flags.StringVar(&f.metastore, "metastore", "", "")
	flags.IntVar(&f.parallel, "parallel", 0, "")
	flags.IntVar(&f.bulk, "bulk", 0, "")
	flags.Int64Var(&f.scn, "scn", 0, "")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if len(flags.Args()) != 0 {
		c.Ui.Error(c.Help())
		return 1
	}

	cfg, err := loadConfig(&f)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error loading job: %s", err))
		return 1
	}

	log, logCloser, err := logger.NewLogger(cfg.LogLevel, cfg.LogFile, os.Stderr)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error setting up logging: %s", err))
		return 1
	}
	defer logCloser.Close()

	name := jobName(cfg)
	sum, err := c.unload(name, cfg, log)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error running %s: %s", name, err))
		return 1
	}
	c.Ui.Output(fmt.Sprintf("Run %s: %d rows, %d bytes in %s", sum.RunID, sum.Rows, sum.Bytes,
		g.PrettifyDurationOutput(sum.Elapsed)))
	return 0
}

func (c *UnloadCommand) unload(name string, cfg *config.Config, log g.LoggerType) (*extractor.Summary, error) {
	log.Info("starting", "job", name, "version", g.Version, "config", cfg.String())

	metrics, err := metric.Setup(cfg.Metric, log.Named("metric"))
	if err != nil {
		return nil, errors.Wrap(err, "metrics")
	}
	defer metrics.Flush(name)

	rtn := common.NewRtn()
	doneCh := make(chan struct{})
	defer close(doneCh)
	go c.handleSignals(rtn, log, doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := oracle.NewDB(ctx, cfg.Oracle, cfg.Parallel, log.Named("oracle"))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	job := extractor.NewJob(name, &cfg.UnloadTaskConfig, db, log).
		WithSCN(cfg.Oracle.Scn).
		WithRtn(rtn)

	dumper := &g.Dumper{Dir: cfg.Output.Dir, Report: job.Stat.Report, Logger: log.Named("dump")}
	go dumper.DumpLoop(doneCh)

	if cfg.MetastoreEnabled() && !g.EnvIsTrue(g.ENV_SKIP_METASTORE) {
		store, err := metastore.Open(cfg.Metastore)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		job.WithStore(store)
	}

	if cfg.Target != nil {
		target, err := sql.Open(cfg.Target.Driver, cfg.Target.DSN)
		if err != nil {
			return nil, errors.Wrapf(err, "open target %v", cfg.Target.Driver)
		}
		defer target.Close()
		target.SetMaxOpenConns(cfg.Parallel)
		if err = target.PingContext(ctx); err != nil {
			return nil, errors.Wrapf(err, "connect target %v", cfg.Target.Driver)
		}
		job.WithTarget(target)
	}

	return job.Run(ctx)
}

// handleSignals stops the run on the first interrupt and exits on the second.
func (c *UnloadCommand) handleSignals(rtn *common.Rtn, log g.LoggerType, doneCh <-chan struct{}) {
	signalCh := make(chan os.Signal, 4)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	for {
		var sig os.Signal
		select {
		case <-doneCh:
			return
		case s := <-signalCh:
			sig = s
		}
		if rtn.Continue() {
			log.Warn("stopping at the next batch boundary, interrupt again to exit", "signal", sig)
			rtn.Stop()
			continue
		}
		log.Error("exiting", "signal", sig)
		os.Exit(1)
	}
}

// loadConfig reads the job file and applies the environment and the flags, in that order.
func loadConfig(f *unloadFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = config.ParseConfigFile(f.configPath); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(g.ENV_PARALLEL); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, common.NewInvalidParamValue(g.ENV_PARALLEL, v, "not a number")
		}
		cfg.Parallel = n
	}
	if v := os.Getenv(g.ENV_BULK_SIZE); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, common.NewInvalidParamValue(g.ENV_BULK_SIZE, v, "not a number")
		}
		cfg.BulkSize = n
	}
	cfg.FloatFormat = g.EnvOr(g.ENV_FLOAT_FORMAT, cfg.FloatFormat)

	if f.table != "" {
		cfg.Tables = nil
		if err := cfg.AddTable(f.table, f.query); err != nil {
			return nil, err
		}
	} else if f.query != "" {
		return nil, common.NewInvalidParamValue("query", f.query, "needs -table")
	}
	if f.parallel > 0 {
		cfg.Parallel = f.parallel
	}
	if f.bulk > 0 {
		cfg.BulkSize = f.bulk
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.metastore != "" {
		cfg.Metastore = f.metastore
	}
	if f.scn > 0 && cfg.Oracle != nil {
		cfg.Oracle.Scn = f.scn
		cfg.Consistent = true
	}

	cfg.SetDefaultForEmpty()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// jobName is the job file name without extension.
func jobName(cfg *config.Config) string {
	if cfg.File == "" {
		return g.ProgramName
	}
	base := filepath.Base(cfg.File)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
