package extractor

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/actiontech/xtru/driver/common"
	"github.com/actiontech/xtru/driver/oracle/attr"
	"github.com/actiontech/xtru/driver/oracle/stmt"
	"github.com/actiontech/xtru/g"
	"github.com/pkg/errors"
)

const driverGodror = "godror"

// TxBeginner is a target database.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Transporter copies every fetched batch into a table of a target database,
// one transaction per batch.
type Transporter struct {
	stmt.BaseFetchable
	ctx      context.Context
	db       TxBeginner
	driver   string
	table    string
	multiRow bool
	attrs    func() []attr.Attr
	stat     *common.Stat
	statName string
	logger   g.LoggerType

	rowInsert string
	multi     map[int]string
	args      []interface{}
	rows      int64
}

func NewTransporter(ctx context.Context, db TxBeginner, target *common.TargetConfig, table string,
	attrs func() []attr.Attr, stat *common.Stat, statName string, logger g.LoggerType) *Transporter {
	return &Transporter{
		ctx:      ctx,
		db:       db,
		driver:   target.Driver,
		table:    table,
		multiRow: target.MultiRow,
		attrs:    attrs,
		stat:     stat,
		statName: statName,
		logger:   logger,
		multi:    map[int]string{},
	}
}

func (t *Transporter) Rows() int64 { return t.rows }

func (t *Transporter) placeholder(i int) string {
	if t.driver == driverGodror {
		return fmt.Sprintf(":%d", i)
	}
	return "?"
}

func (t *Transporter) columnList(attrs []attr.Attr) string {
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = fmt.Sprintf(`"%s"`, a.Meta().Name)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func (t *Transporter) valuesList(attrs []attr.Attr, first int) string {
	ps := make([]string, len(attrs))
	for i := range attrs {
		ps[i] = t.placeholder(first + i)
	}
	return "(" + strings.Join(ps, ", ") + ")"
}

// InsertStatement is the statement inserting n rows at once; n is 1 for row mode.
func (t *Transporter) InsertStatement(attrs []attr.Attr, n int) string {
	cols := t.columnList(attrs)
	var sb bytes.Buffer
	if n > 1 && t.driver == driverGodror {
		sb.WriteString("INSERT ALL")
		for r := 0; r < n; r++ {
			fmt.Fprintf(&sb, " INTO %s %s VALUES %s", t.table, cols, t.valuesList(attrs, r*len(attrs)+1))
		}
		sb.WriteString(" SELECT 1 FROM DUAL")
		return sb.String()
	}
	fmt.Fprintf(&sb, "INSERT INTO %s %s VALUES ", t.table, cols)
	for r := 0; r < n; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.valuesList(attrs, r*len(attrs)+1))
	}
	return sb.String()
}

func (t *Transporter) PostBulkAction(n int) (err error) {
	if n <= 0 {
		return nil
	}
	attrs := t.attrs()
	start := time.Now()

	tx, err := t.db.BeginTx(t.ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin target transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = errors.Wrap(err, "commit target transaction")
		}
	}()

	if t.multiRow {
		err = t.insertMultiRow(tx, attrs, n)
	} else {
		err = t.insertRows(tx, attrs, n)
	}
	if err != nil {
		return err
	}
	t.rows += int64(n)
	if t.stat != nil {
		t.stat.AddBatch(t.statName, n, 0)
	}
	t.logger.Trace("batch copied", "rows", n, "took", time.Since(start))
	return nil
}

func (t *Transporter) insertRows(tx *sql.Tx, attrs []attr.Attr, n int) error {
	if t.rowInsert == "" {
		t.rowInsert = t.InsertStatement(attrs, 1)
	}
	ps, err := tx.PrepareContext(t.ctx, t.rowInsert)
	if err != nil {
		return errors.Wrapf(err, "prepare %v", t.rowInsert)
	}
	defer ps.Close()

	args := make([]interface{}, len(attrs))
	for i := 0; i < n; i++ {
		for c, a := range attrs {
			args[c] = a.Value(i)
		}
		if _, err = ps.ExecContext(t.ctx, args...); err != nil {
			return errors.Wrapf(err, "insert into %v", t.table)
		}
	}
	return nil
}

func (t *Transporter) insertMultiRow(tx *sql.Tx, attrs []attr.Attr, n int) error {
	text, ok := t.multi[n]
	if !ok {
		text = t.InsertStatement(attrs, n)
		t.multi[n] = text
	}
	t.args = t.args[:0]
	for i := 0; i < n; i++ {
		for _, a := range attrs {
			t.args = append(t.args, a.Value(i))
		}
	}
	if _, err := tx.ExecContext(t.ctx, text, t.args...); err != nil {
		return errors.Wrapf(err, "insert %d rows into %v", n, t.table)
	}
	return nil
}

// TransportTask copies one statement into the target database.
type TransportTask struct {
	env       *Env
	target    *common.TargetConfig
	db        TxBeginner
	logger    g.LoggerType
	statement Statement
	defines   map[string]int
	toTable   string

	release func()
	st      *stmt.Stmt
	closed  bool
	result  Result
}

func NewTransportTask(env *Env, db TxBeginner, table *common.Table, macros common.Macros, s Statement) *TransportTask {
	target := env.Cfg.Target
	toTable := strings.Replace(target.Table, "{T}", table.Name, -1)
	return &TransportTask{
		env:       env,
		target:    target,
		db:        db,
		logger:    env.Logger.Named("transporter").With("table", table.FullName(), "part", macros.Partition),
		statement: s,
		defines:   table.Define,
		toTable:   toTable,
		result: Result{
			Table:     table.FullName(),
			Partition: macros.Partition,
			Data:      target.Driver + ":" + toTable,
		},
	}
}

func (t *TransportTask) Result() *Result {
	return &t.result
}

func (t *TransportTask) Run() (err error) {
	start := time.Now()
	defer func() {
		if cerr := t.Close(); cerr != nil && err == nil {
			err = cerr
		}
		t.result.Elapsed = time.Since(start)
		t.result.Err = err
	}()

	ctx := t.env.Ctx
	conn, release, err := t.env.Source.Checkout(ctx)
	if err != nil {
		return err
	}
	t.release = release

	if t.st, err = t.env.newStmt(conn, t.statement, t.logger); err != nil {
		return err
	}
	if err = t.st.Query(ctx); err != nil {
		return err
	}
	if err = t.st.DefineWidths(t.defines); err != nil {
		return err
	}
	t.result.Columns = columnResults(t.st.Attrs(), t.env.Delim)

	tr := NewTransporter(ctx, t.db, t.target, t.toTable, t.st.Attrs, t.env.Stat, t.result.Table, t.logger)
	_, err = t.st.Fetch(ctx, tr, nil)
	t.result.Rows = tr.Rows()
	if err != nil {
		return err
	}
	t.logger.Info("copied", "rows", t.result.Rows, "to", t.toTable,
		"elapsed", g.PrettifyDurationOutput(time.Since(start)))
	return nil
}

func (t *TransportTask) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	var err error
	if t.st != nil {
		err = t.st.Close()
	}
	if t.release != nil {
		t.release()
	}
	return err
}
