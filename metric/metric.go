package metric

import (
	"time"

	"github.com/actiontech/xtru/g"
	metrics "github.com/armon/go-metrics"
	"github.com/pkg/errors"
)

type Config struct {
	StatsiteAddr       string `mapstructure:"statsite_address"`
	StatsdAddr         string `mapstructure:"statsd_address"`
	PrometheusPushAddr string `mapstructure:"prometheus_push_address"`
	DisableHostname    bool   `mapstructure:"disable_hostname"`
}

// Handle owns the sinks of a run.
type Handle struct {
	Inmem      *metrics.InmemSink
	Prometheus *PrometheusSink
	config     *Config
	logger     g.LoggerType
}

// Setup installs the global go-metrics instance. An in-memory sink always exists and
// is dumped on SIGUSR1; statsite, statsd and prometheus sinks are added when configured.
func Setup(config *Config, logger g.LoggerType) (*Handle, error) {
	if config == nil {
		config = &Config{}
	}
	inm := metrics.NewInmemSink(10*time.Second, time.Minute)
	metrics.DefaultInmemSignal(inm)

	metricsConf := metrics.DefaultConfig(g.ProgramName)
	metricsConf.EnableHostname = !config.DisableHostname

	h := &Handle{
		Inmem:  inm,
		config: config,
		logger: logger,
	}

	var fanout metrics.FanoutSink
	if config.StatsiteAddr != "" {
		sink, err := metrics.NewStatsiteSink(config.StatsiteAddr)
		if err != nil {
			return nil, errors.Wrap(err, "statsite")
		}
		fanout = append(fanout, sink)
	}
	if config.StatsdAddr != "" {
		sink, err := metrics.NewStatsdSink(config.StatsdAddr)
		if err != nil {
			return nil, errors.Wrap(err, "statsd")
		}
		fanout = append(fanout, sink)
	}
	if config.PrometheusPushAddr != "" {
		h.Prometheus = NewPrometheusSink()
		fanout = append(fanout, h.Prometheus)
	}

	if len(fanout) > 0 {
		fanout = append(fanout, inm)
		_, err := metrics.NewGlobal(metricsConf, fanout)
		if err != nil {
			return nil, err
		}
	} else {
		metricsConf.EnableHostname = false
		_, err := metrics.NewGlobal(metricsConf, inm)
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Flush pushes the prometheus registry, if any, under the given job name.
func (h *Handle) Flush(job string) {
	if h == nil || h.Prometheus == nil {
		return
	}
	err := h.Prometheus.Push(h.config.PrometheusPushAddr, job)
	if err != nil {
		h.logger.Warn("could not push metrics", "err", err)
	}
}
