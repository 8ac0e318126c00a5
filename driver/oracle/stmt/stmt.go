package stmt

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/actiontech/xtru/driver/common"
	"github.com/actiontech/xtru/driver/oracle/attr"
	"github.com/actiontech/xtru/g"
	"github.com/armon/go-metrics"
	"github.com/pkg/errors"
)

var ErrState = errors.New("statement is not in the required state")

// Session is what a statement runs on: *sql.DB, *sql.Conn or *sql.Tx.
type Session interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type State int

const (
	StateConstructed State = iota
	StateExecuted
	StateFetching
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateExecuted:
		return "executed"
	case StateFetching:
		return "fetching"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Stmt is one SQL statement with its column buffers. It is used by a single goroutine.
type Stmt struct {
	sess       Session
	text       string
	bulk       int
	opts       *attr.Options
	driverOpts []interface{}
	feedback   int64
	rtn        *common.Rtn
	logger     g.LoggerType

	state   State
	rows    *sql.Rows
	attrs   []attr.Attr
	total   int64
	batches int
}

func New(sess Session, text string, bulk int, opts *attr.Options, logger g.LoggerType) *Stmt {
	if bulk < 1 {
		bulk = common.DefaultBulkSize
	}
	if logger == nil {
		logger = g.NewNullLogger()
	}
	return &Stmt{
		sess:   sess,
		text:   text,
		bulk:   bulk,
		opts:   opts,
		logger: logger,
	}
}

// WithDriverOptions appends driver specific query options (e.g. godror fetch sizes)
// to the arguments of the query.
func (s *Stmt) WithDriverOptions(opts ...interface{}) *Stmt {
	s.driverOpts = append(s.driverOpts, opts...)
	return s
}

// WithFeedback makes the fetch loop call FeedbackAction every n rows. 0 disables it.
func (s *Stmt) WithFeedback(n int64) *Stmt {
	s.feedback = n
	return s
}

// WithRtn makes the fetch loop stop at the next batch boundary once rtn is stopped.
func (s *Stmt) WithRtn(rtn *common.Rtn) *Stmt {
	s.rtn = rtn
	return s
}

func (s *Stmt) Text() string       { return s.text }
func (s *Stmt) BulkSize() int      { return s.bulk }
func (s *Stmt) State() State       { return s.state }
func (s *Stmt) Attrs() []attr.Attr { return s.attrs }
func (s *Stmt) Total() int64       { return s.total }
func (s *Stmt) Batches() int       { return s.batches }

func (s *Stmt) stateError(op string) error {
	return errors.Wrapf(ErrState, "%v: statement is %v", op, s.state)
}

// ConvPlaceHolder substitutes the %s placeholders of the text, in order.
func (s *Stmt) ConvPlaceHolder(args ...string) error {
	if s.state != StateConstructed {
		return s.stateError("ConvPlaceHolder")
	}
	if n := strings.Count(s.text, "%s"); n != len(args) {
		return errors.Errorf("ConvPlaceHolder: %d placeholders, %d arguments", n, len(args))
	}
	text := s.text
	for _, a := range args {
		text = strings.Replace(text, "%s", a, 1)
	}
	s.text = text
	return nil
}

// Execute runs a statement that returns no rows and reports the affected row count.
func (s *Stmt) Execute(ctx context.Context, args ...interface{}) (int64, error) {
	if s.state != StateConstructed {
		return 0, s.stateError("Execute")
	}
	res, err := s.sess.ExecContext(ctx, s.text, args...)
	if err != nil {
		s.state = StateFailed
		return 0, errors.Wrapf(err, "execute %v", g.StrLim(s.text, g.LONG_LOG_LIMIT))
	}
	s.state = StateDone
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Query runs the statement, describes the result columns and allocates one codec per column.
func (s *Stmt) Query(ctx context.Context, args ...interface{}) error {
	if s.state != StateConstructed {
		return s.stateError("Query")
	}
	all := make([]interface{}, 0, len(args)+len(s.driverOpts))
	all = append(all, args...)
	all = append(all, s.driverOpts...)

	s.logger.Debug("query", "sql", g.StrLim(s.text, g.LONG_LOG_LIMIT), "bulk", s.bulk)
	rows, err := s.sess.QueryContext(ctx, s.text, all...)
	if err != nil {
		s.state = StateFailed
		return errors.Wrapf(err, "query %v", g.StrLim(s.text, g.LONG_LOG_LIMIT))
	}
	s.rows = rows

	cts, err := rows.ColumnTypes()
	if err != nil {
		s.fail()
		return errors.Wrap(err, "describe")
	}
	s.attrs = make([]attr.Attr, len(cts))
	for i, ct := range cts {
		meta := DescribeColumn(ct)
		a, err := attr.MakeInstance(meta, s.bulk, s.opts)
		if err != nil {
			s.fail()
			return err
		}
		s.attrs[i] = a
	}
	s.state = StateExecuted
	return nil
}

func (s *Stmt) fail() {
	if s.rows != nil {
		_ = s.rows.Close()
	}
	s.state = StateFailed
}

// DescribeColumn turns what database/sql knows about a column into codec metadata.
func DescribeColumn(ct *sql.ColumnType) attr.ColumnMeta {
	name := strings.ToUpper(ct.DatabaseTypeName())
	meta := attr.ColumnMeta{
		Name:     ct.Name(),
		TypeName: name,
		Type:     attr.TypeCodeOf(name),
		Nullable: true,
	}
	// godror names native float columns FLOAT and DOUBLE.
	if name == "FLOAT" {
		meta.Type = attr.TypeBinaryFloat
	}
	if l, ok := ct.Length(); ok && l > 0 && l <= math.MaxInt32 {
		meta.Width = int(l)
	}
	if p, sc, ok := ct.DecimalSize(); ok {
		meta.Precision, meta.Scale = int(p), int(sc)
	}
	if n, ok := ct.Nullable(); ok {
		meta.Nullable = n
	}
	return meta
}

// Define replaces the codec of the column at pos (0 based). It must be called
// after Query and before the first Fetch. Attrs reflects the new codec at once.
func (s *Stmt) Define(pos int, a attr.Attr) error {
	if s.state != StateExecuted {
		return s.stateError("Define")
	}
	if pos < 0 || pos >= len(s.attrs) {
		return errors.Errorf("Define: column %d out of range (%d columns)", pos, len(s.attrs))
	}
	s.attrs[pos] = a
	return nil
}

// DefineWidths turns the named columns into character columns of the given width.
// Names are matched case insensitively. A name matching no column is an error.
func (s *Stmt) DefineWidths(widths map[string]int) error {
	for name, width := range widths {
		pos := -1
		for i, a := range s.attrs {
			if strings.EqualFold(a.Meta().Name, name) {
				pos = i
				break
			}
		}
		if pos < 0 {
			return common.NewInvalidParamValue("define", name, "no such column in the result")
		}
		if width < 1 {
			return common.NewInvalidParamValue("define "+name, strconv.Itoa(width), "width must be positive")
		}
		if err := s.Define(pos, attr.NewStringAttr(s.attrs[pos].Meta().Name, width, s.bulk)); err != nil {
			return err
		}
	}
	return nil
}

// Fetch drains the result set batch by batch into f and returns the number of rows fetched.
// An error is also stored into slot, if not nil.
func (s *Stmt) Fetch(ctx context.Context, f Fetchable, slot *common.ErrSlot) (total int64, err error) {
	if s.state != StateExecuted {
		err = s.stateError("Fetch")
		slot.Set(err)
		return 0, err
	}
	s.state = StateFetching

	defer func() {
		if ferr := f.FinalizeAction(); ferr != nil && err == nil {
			err = ferr
		}
		if cerr := s.rows.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close rows")
		}
		if err != nil {
			s.state = StateFailed
			slot.Set(err)
			return
		}
		s.state = StateDone
	}()

	dest := make([]interface{}, len(s.attrs))
	ptrs := make([]interface{}, len(s.attrs))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	nextFeedback := s.feedback
	more := true
	for more {
		if !s.rtn.Continue() {
			return s.total, common.ErrCancelled
		}
		if err = ctx.Err(); err != nil {
			return s.total, err
		}
		if err = f.PreBulkAction(s.bulk); err != nil {
			return s.total, err
		}
		for _, a := range s.attrs {
			a.Reset()
		}

		start := time.Now()
		n := 0
		for n < s.bulk {
			if !s.rows.Next() {
				more = false
				break
			}
			if err = s.rows.Scan(ptrs...); err != nil {
				return s.total, errors.Wrap(err, "scan")
			}
			for c, a := range s.attrs {
				if err = a.Set(n, dest[c]); err != nil {
					return s.total, err
				}
				dest[c] = nil
			}
			n++
		}
		if !more {
			if err = s.rows.Err(); err != nil {
				return s.total, errors.Wrap(err, "fetch")
			}
		}
		metrics.MeasureSince([]string{"fetch", "batch"}, start)
		if n == 0 {
			break
		}

		s.total += int64(n)
		s.batches++
		s.logger.Trace("batch fetched", "rows", n, "total", s.total)
		if err = f.PostBulkAction(n); err != nil {
			return s.total, err
		}
		if s.feedback > 0 && s.total >= nextFeedback {
			for nextFeedback <= s.total {
				nextFeedback += s.feedback
			}
			if err = f.FeedbackAction(s.total); err != nil {
				return s.total, err
			}
		}
	}

	if s.total == 0 {
		err = f.NotFoundAction()
	} else {
		err = f.PostRepeatAction()
	}
	return s.total, err
}

// Close releases the result set of a statement that will not be fetched.
func (s *Stmt) Close() error {
	if s.rows == nil || s.state == StateDone || s.state == StateFailed {
		return nil
	}
	s.state = StateDone
	return s.rows.Close()
}
