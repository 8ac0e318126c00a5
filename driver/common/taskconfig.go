/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package common

const (
	DefaultParallel     = 1
	DefaultBulkSize     = 500
	DefaultLobPieceSize = 64 * 1024
	DefaultLobWidth     = 1024 * 1024
	DefaultChunks       = 4

	DefaultDateFormat        = "YYYY-MM-DD HH24:MI:SS"
	DefaultTimestampFormat   = "YYYY-MM-DD HH24:MI:SS.FF9"
	DefaultTimestampTZFormat = "YYYY-MM-DD HH24:MI:SS.FF9 TZH:TZM"

	DefaultDataSpec    = "file://{O}/{C}.{X}"
	DefaultControlSpec = "file://{O}/{C}.ctl"
	DefaultExtension   = "dat"
	DefaultOutputDir   = "."
)

type DelimiterConfig struct {
	Separator    string `mapstructure:"separator"`
	Enclosure    string `mapstructure:"enclosure"`
	Terminator   string `mapstructure:"terminator"`
	LengthPrefix int    `mapstructure:"length_prefix"`
	// NoEnclosure disables the enclosure, as an empty string means "default".
	NoEnclosure bool `mapstructure:"no_enclosure"`
}

type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	Data      string `mapstructure:"data"`
	Control   string `mapstructure:"control"`
	Extension string `mapstructure:"extension"`
	// DDL, when set, receives the CREATE TABLE statement of every generated unload.
	DDL string `mapstructure:"ddl"`
}

// TargetConfig makes the run copy rows into another database instead of files.
type TargetConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// Table is the target table; "{T}" is replaced by the source table name.
	Table string `mapstructure:"table"`
	// MultiRow inserts a whole batch with one statement.
	MultiRow bool `mapstructure:"multi_row"`
}

// UnloadTaskConfig holds everything that shapes the fetch and the produced files.
type UnloadTaskConfig struct {
	Parallel          int    `mapstructure:"parallel"`
	BulkSize          int    `mapstructure:"bulk_size"`
	Feedback          int64  `mapstructure:"feedback"`
	LobPieceSize      int    `mapstructure:"lob_piece_size"`
	LobWidth          int    `mapstructure:"lob_width"`
	DateFormat        string `mapstructure:"date_format"`
	TimestampFormat   string `mapstructure:"timestamp_format"`
	TimestampTZFormat string `mapstructure:"timestamp_tz_format"`
	FloatFormat       string `mapstructure:"float_format"`
	Consistent        bool   `mapstructure:"consistent"`
	LoaderScript      bool   `mapstructure:"loader_script"`

	Delimiter DelimiterConfig `mapstructure:"-"`
	Output    OutputConfig    `mapstructure:"-"`
	Target    *TargetConfig   `mapstructure:"-"`
	Tables    []*Table        `mapstructure:"-"`
}

func (d *UnloadTaskConfig) SetDefaultForEmpty() {
	if d.Parallel <= 0 {
		d.Parallel = DefaultParallel
	}
	if d.BulkSize <= 0 {
		d.BulkSize = DefaultBulkSize
	}
	if d.LobPieceSize <= 0 {
		d.LobPieceSize = DefaultLobPieceSize
	}
	if d.LobWidth <= 0 {
		d.LobWidth = DefaultLobWidth
	}
	if d.DateFormat == "" {
		d.DateFormat = DefaultDateFormat
	}
	if d.TimestampFormat == "" {
		d.TimestampFormat = DefaultTimestampFormat
	}
	if d.TimestampTZFormat == "" {
		d.TimestampTZFormat = DefaultTimestampTZFormat
	}

	if d.Delimiter.Separator == "" {
		d.Delimiter.Separator = DefaultSeparator
	}
	if d.Delimiter.Enclosure == "" && !d.Delimiter.NoEnclosure {
		d.Delimiter.Enclosure = DefaultEnclosure
	}
	if d.Delimiter.Terminator == "" && d.Delimiter.LengthPrefix == 0 {
		d.Delimiter.Terminator = `\n`
	}

	if d.Output.Dir == "" {
		d.Output.Dir = DefaultOutputDir
	}
	if d.Output.Data == "" {
		d.Output.Data = DefaultDataSpec
	}
	if d.Output.Control == "" {
		d.Output.Control = DefaultControlSpec
	}
	if d.Output.Extension == "" {
		d.Output.Extension = DefaultExtension
	}

	if d.Target != nil && d.Target.Table == "" {
		d.Target.Table = "{T}"
	}

	for _, t := range d.Tables {
		if t.Split == SplitRowid && t.Chunks <= 0 {
			t.Chunks = DefaultChunks
		}
	}
}

// BuildDelimiter decodes the configured markers.
func (d *UnloadTaskConfig) BuildDelimiter() (*Delimiter, error) {
	return NewDelimiter(d.Delimiter.Separator, d.Delimiter.Enclosure, d.Delimiter.Terminator,
		d.Delimiter.LengthPrefix)
}
