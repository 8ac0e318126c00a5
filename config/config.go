package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/actiontech/xtru/driver/common"
	oracle "github.com/actiontech/xtru/driver/oracle/config"
	"github.com/actiontech/xtru/metric"
	"github.com/hashicorp/go-multierror"
)

const DefaultMetastore = "xtru_meta/xtru.db"

// Config is an unload job as read from a job file.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	// Metastore is the sqlite file recording the runs. "-" disables it.
	Metastore string `mapstructure:"metastore"`

	common.UnloadTaskConfig `mapstructure:",squash"`

	Oracle *oracle.OracleConfig `mapstructure:"-"`
	Metric *metric.Config       `mapstructure:"-"`

	// file the config was loaded from
	File string `mapstructure:"-"`
}

// DefaultConfig is the baseline of every job.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "INFO",
		Metastore: DefaultMetastore,
	}
}

func (c *Config) SetDefaultForEmpty() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Metastore == "" {
		c.Metastore = DefaultMetastore
	}
	if c.Oracle != nil {
		c.Oracle.SetDefaultForEmpty()
	}
	c.UnloadTaskConfig.SetDefaultForEmpty()
}

// MetastoreEnabled is false when the metastore is switched off with "-".
func (c *Config) MetastoreEnabled() bool {
	return c.Metastore != "-"
}

// AddTable appends a table given on the command line as OWNER.NAME.
func (c *Config) AddTable(name string, query string) error {
	owner, n, err := common.ParseTableName(name)
	if err != nil {
		return err
	}
	c.Tables = append(c.Tables, &common.Table{Owner: owner, Name: n, Query: query})
	return nil
}

// Validate checks the job after SetDefaultForEmpty. Every problem found is reported.
func (c *Config) Validate() error {
	var result error
	add := func(param string, value string, reason string) {
		result = multierror.Append(result, common.NewInvalidParamValue(param, value, reason))
	}

	if c.Oracle == nil {
		add("oracle", "", "an oracle block is required")
	} else if c.Oracle.User == "" {
		add("oracle.user", "", "must not be empty")
	} else if c.Oracle.Host == "" && c.Oracle.Connect == "" {
		add("oracle.host", "", "host or connect is required")
	}
	if len(c.Tables) == 0 {
		add("table", "", "at least one table is required")
	}

	if c.Parallel > 256 {
		add("parallel", strconv.Itoa(c.Parallel), "must not exceed 256")
	}
	if c.LobPieceSize > c.LobWidth {
		add("lob_piece_size", strconv.Itoa(c.LobPieceSize), "must not exceed lob_width")
	}
	if _, err := c.BuildDelimiter(); err != nil {
		result = multierror.Append(result, err)
	}

	macros := &common.Macros{OutputDir: c.Output.Dir, Table: "T", Extension: c.Output.Extension, JobStart: time.Now()}
	for _, spec := range []string{c.Output.Data, c.Output.Control, c.Output.DDL} {
		if err := checkOutputSpec(spec, macros); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if t := c.Target; t != nil {
		if t.Driver == "" {
			add("target.driver", "", "must not be empty")
		}
		if t.DSN == "" {
			add("target.dsn", "", "must not be empty")
		}
	}

	seen := map[string]bool{}
	for _, t := range c.Tables {
		name := t.FullName()
		if seen[name] {
			add("table", name, "defined more than once")
		}
		seen[name] = true

		switch t.Split {
		case common.SplitNone, common.SplitPartition, common.SplitRowid:
		default:
			add("table "+name+" split", t.Split, "expect partition or rowid")
		}
		if t.Query != "" && (t.Split != common.SplitNone || len(t.Columns) > 0 || t.Where != "") {
			add("table "+name+" query", shortQuery(t.Query), "excludes split, columns and where")
		}
		for col, width := range t.Define {
			if width < 1 {
				add("table "+name+" define "+col, strconv.Itoa(width), "width must be positive")
			}
		}
		if t.Name == "*" && t.Query != "" {
			add("table "+name, "*", "a wildcard table cannot have a query")
		}
		for _, spec := range []string{t.Data, t.Control} {
			if err := checkOutputSpec(spec, macros); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result
}

// shortQuery shortens a query for error messages.
func shortQuery(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}

func checkOutputSpec(spec string, macros *common.Macros) error {
	if spec == "" {
		return nil
	}
	expanded, err := macros.Expand(spec)
	if err != nil {
		return err
	}
	scheme, target := common.SplitScheme(expanded)
	switch scheme {
	case common.SchemeFile, common.SchemeIpcPipe, common.SchemeNamedPipe:
	default:
		return common.NewInvalidParamValue("output", spec, "unknown scheme "+scheme)
	}
	if target == "" {
		return common.NewInvalidParamValue("output", spec, "empty target")
	}
	return nil
}

// String is the one-line summary logged at start. The password is hidden.
func (c *Config) String() string {
	var tables []string
	for _, t := range c.Tables {
		tables = append(tables, t.FullName())
	}
	return fmt.Sprintf("oracle=%v tables=%v parallel=%d bulk=%d", c.Oracle, tables, c.Parallel, c.BulkSize)
}
