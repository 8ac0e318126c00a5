package extractor

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"io/ioutil"
	"sync"
	"time"

	"github.com/actiontech/xtru/driver/common"
	"github.com/actiontech/xtru/driver/oracle/attr"
	"github.com/actiontech/xtru/driver/oracle/stmt"
	"github.com/actiontech/xtru/g"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// SessionSource hands out one database session per task.
type SessionSource interface {
	Checkout(ctx context.Context) (*sql.Conn, func(), error)
}

// Env is what the tasks of a run share.
type Env struct {
	Ctx     context.Context
	Cfg     *common.UnloadTaskConfig
	Delim   *common.Delimiter
	Opts    *attr.Options
	Source  SessionSource
	Locator *common.Locator
	Stat    *common.Stat
	Rtn     *common.Rtn
	Logger  g.LoggerType
	// DriverOptions returns the driver query options of a fetch of bulk rows. May be nil.
	DriverOptions func(bulk int) []interface{}
}

func (e *Env) newStmt(sess stmt.Session, s Statement, logger g.LoggerType) (*stmt.Stmt, error) {
	st := stmt.New(sess, s.Text, e.Cfg.BulkSize, e.Opts, logger).
		WithFeedback(e.Cfg.Feedback).
		WithRtn(e.Rtn)
	if e.DriverOptions != nil {
		st.WithDriverOptions(e.DriverOptions(e.Cfg.BulkSize)...)
	}
	if len(s.Holders) > 0 {
		if err := st.ConvPlaceHolder(s.Holders...); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Statement is one SELECT of a task. Holders fill the %s placeholders of Text.
type Statement struct {
	Text    string
	Holders []string
}

type ColumnResult struct {
	Name     string
	TypeName string
	Codec    string
	Width    int
	Field    string
}

// Result is what a task reports once it ran.
type Result struct {
	Table     string
	Partition string
	Data      string
	Control   string
	Rows      int64
	Bytes     int64
	Elapsed   time.Duration
	Columns   []ColumnResult
	Err       error
}

func columnResults(attrs []attr.Attr, d *common.Delimiter) []ColumnResult {
	r := make([]ColumnResult, len(attrs))
	for i, a := range attrs {
		m := a.Meta()
		r[i] = ColumnResult{
			Name:     m.Name,
			TypeName: m.TypeName,
			Codec:    a.Kind(),
			Width:    a.Width(),
			Field:    a.Field(d),
		}
	}
	return r
}

// controlOnce lets the tasks sharing a control file write it once.
type controlOnce struct {
	once sync.Once
	err  error
}

// Unloader unloads one or more statements into a data file and describes the
// data file with a SQL*Loader control file.
type Unloader struct {
	env         *Env
	logger      g.LoggerType
	macros      common.Macros
	intoTable   string
	dataSpec    string
	controlSpec string
	statements  []Statement
	defines     map[string]int
	ctl         *controlOnce

	release func()
	ctlOut  *common.Stream
	streams []*common.Stream
	stmts   []*stmt.Stmt
	slot    common.ErrSlot
	closed  bool
	result  Result
}

func NewUnloader(env *Env, table *common.Table, macros common.Macros, statements []Statement) *Unloader {
	dataSpec := g.StringElse(table.Data, env.Cfg.Output.Data)
	controlSpec := g.StringElse(table.Control, env.Cfg.Output.Control)
	return &Unloader{
		env:         env,
		logger:      env.Logger.Named("unloader").With("table", table.FullName(), "part", macros.Partition),
		macros:      macros,
		intoTable:   table.QuotedName(),
		dataSpec:    dataSpec,
		controlSpec: controlSpec,
		statements:  statements,
		defines:     table.Define,
		ctl:         &controlOnce{},
		result: Result{
			Table:     table.FullName(),
			Partition: macros.Partition,
		},
	}
}

// shareControl makes u write the control file only if no other task sharing ctl did.
func (u *Unloader) shareControl(ctl *controlOnce) *Unloader {
	u.ctl = ctl
	return u
}

func (u *Unloader) Result() *Result {
	return &u.result
}

func (u *Unloader) Run() error {
	return u.ExecuteAndFetch()
}

// ExecuteAndFetch opens the outputs, queries every statement in turn and then
// drains them one after another. The first failing fetch stops the remaining ones.
func (u *Unloader) ExecuteAndFetch() (err error) {
	start := time.Now()
	defer func() {
		if cerr := u.Close(); cerr != nil && err == nil {
			err = cerr
		}
		u.result.Elapsed = time.Since(start)
		u.result.Err = err
	}()

	ctx := u.env.Ctx
	u.ctlOut, err = u.env.Locator.Open(u.controlSpec, &u.macros)
	if err != nil {
		return err
	}
	u.streams = append(u.streams, u.ctlOut)
	u.result.Control = u.ctlOut.Target

	conn, release, err := u.env.Source.Checkout(ctx)
	if err != nil {
		return err
	}
	u.release = release

	var deferred []func() (int64, error)
	for i, s := range u.statements {
		data, err := u.env.Locator.Open(u.dataSpec, &u.macros)
		if err != nil {
			return err
		}
		u.streams = append(u.streams, data)
		u.result.Data = data.Target

		st, err := u.env.newStmt(conn, s, u.logger)
		if err != nil {
			return err
		}
		if err = st.Query(ctx); err != nil {
			return err
		}
		u.stmts = append(u.stmts, st)
		if err = st.DefineWidths(u.defines); err != nil {
			return err
		}

		if i == 0 {
			u.result.Columns = columnResults(st.Attrs(), u.env.Delim)
			if err = u.putGrammarToCtrlFile(st.Attrs(), data); err != nil {
				return err
			}
		} else if err = sameLayout(u.stmts[0].Attrs(), st.Attrs()); err != nil {
			return errors.Wrapf(err, "statement %d", i+1)
		}

		sink := newRowSink(st.Attrs, u.env.Delim, data, u.env.Stat, u.result.Table, u.logger)
		deferred = append(deferred, func() (int64, error) {
			n, err := st.Fetch(ctx, sink, &u.slot)
			u.result.Rows += sink.rows
			u.result.Bytes += sink.bytes
			return n, err
		})
	}

	for _, fetch := range deferred {
		if u.slot.Err() != nil {
			break
		}
		fetch()
	}
	if err = u.slot.Err(); err != nil {
		return err
	}

	u.logger.Info("unloaded", "rows", u.result.Rows, "bytes", u.result.Bytes,
		"data", u.result.Data, "elapsed", g.PrettifyDurationOutput(time.Since(start)))
	return nil
}

// sameLayout checks that the statements of one unloader can share a control file.
func sameLayout(first []attr.Attr, other []attr.Attr) error {
	if len(first) != len(other) {
		return errors.Errorf("%d columns, the first statement has %d", len(other), len(first))
	}
	for i := range first {
		if first[i].Kind() != other[i].Kind() {
			return errors.Errorf("column %d is %v, the first statement has %v", i+1, other[i].Kind(), first[i].Kind())
		}
	}
	return nil
}

func (u *Unloader) putGrammarToCtrlFile(attrs []attr.Attr, data *common.Stream) error {
	u.ctl.once.Do(func() {
		text := ControlFile(u.env.Delim, infileOf(data), u.intoTable, attrs)
		if _, err := u.ctlOut.Write([]byte(text)); err != nil {
			u.ctl.err = errors.Wrapf(err, "write control file %v", u.ctlOut.Target)
			return
		}
		if u.env.Cfg.LoaderScript && u.ctlOut.Scheme == common.SchemeFile {
			path := loaderScriptPath(u.ctlOut.Target)
			script := LoaderScript(u.ctlOut.Target, infileOf(data))
			if err := ioutil.WriteFile(path, []byte(script), 0755); err != nil {
				u.ctl.err = errors.Wrapf(err, "write loader script %v", path)
				return
			}
			u.logger.Debug("loader script written", "file", path)
		}
	})
	return u.ctl.err
}

// Close releases the statements, the streams and the session. It may be called more than once.
func (u *Unloader) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true

	var result error
	for _, st := range u.stmts {
		if err := st.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, s := range u.streams {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if u.release != nil {
		u.release()
	}
	return result
}

// rowSink renders each fetched batch into delimited records and writes the
// batch to the data stream in one piece.
type rowSink struct {
	stmt.BaseFetchable
	attrs  func() []attr.Attr
	delim  *common.Delimiter
	out    io.Writer
	stat   *common.Stat
	table  string
	logger g.LoggerType

	rowBufs []*bytes.Buffer
	batch   bytes.Buffer
	rows    int64
	bytes   int64
}

func newRowSink(attrs func() []attr.Attr, d *common.Delimiter, out io.Writer, stat *common.Stat, table string, logger g.LoggerType) *rowSink {
	return &rowSink{
		attrs:  attrs,
		delim:  d,
		out:    out,
		stat:   stat,
		table:  table,
		logger: logger,
	}
}

func (s *rowSink) PreBulkAction(bulk int) error {
	for len(s.rowBufs) < bulk {
		s.rowBufs = append(s.rowBufs, &bytes.Buffer{})
	}
	for _, b := range s.rowBufs {
		b.Reset()
	}
	s.batch.Reset()
	return nil
}

func (s *rowSink) PostBulkAction(n int) error {
	if n <= 0 {
		return nil
	}
	attrs := s.attrs()
	for c, a := range attrs {
		a.Render(n, s.rowBufs, s.delim, c < len(attrs)-1)
	}
	written := 0
	for i := 0; i < n; i++ {
		w, err := s.delim.FinishRecord(&s.batch, s.rowBufs[i])
		if err != nil {
			return err
		}
		written += w
	}
	if _, err := s.out.Write(s.batch.Bytes()); err != nil {
		return errors.Wrap(err, "write data")
	}
	s.rows += int64(n)
	s.bytes += int64(written)
	if s.stat != nil {
		s.stat.AddBatch(s.table, n, written)
	}
	return nil
}

func (s *rowSink) FeedbackAction(total int64) error {
	s.logger.Info("fetch progress", "rows", total)
	return nil
}

func (s *rowSink) NotFoundAction() error {
	s.logger.Info("no rows selected")
	return nil
}
