package extractor

import (
	"context"
	"io"
	"time"

	"github.com/actiontech/xtru/driver/common"
	"github.com/actiontech/xtru/driver/metastore"
	"github.com/actiontech/xtru/driver/oracle/attr"
	"github.com/actiontech/xtru/driver/oracle/config"
	"github.com/actiontech/xtru/g"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// Task is one unit handed to the dispatcher.
type Task interface {
	io.Closer
	Run() error
	Result() *Result
}

// Summary is the outcome of a run.
type Summary struct {
	RunID   string
	SCN     int64
	Rows    int64
	Bytes   int64
	Elapsed time.Duration
	Results []*Result
}

// Job turns the configured tables into tasks, runs them with bounded
// parallelism and records the outcome.
type Job struct {
	Name   string
	cfg    *common.UnloadTaskConfig
	db     *config.OracleDB
	scn    int64
	target TxBeginner
	store  *metastore.Store
	rtn    *common.Rtn
	logger g.LoggerType

	// DriverOptions is passed to every fetch. Defaults to the godror fetch options.
	DriverOptions func(bulk int) []interface{}

	Locator *common.Locator
	Stat    *common.Stat
}

// NewJob prepares a run. cfg must have its defaults set.
func NewJob(name string, cfg *common.UnloadTaskConfig, db *config.OracleDB, logger g.LoggerType) *Job {
	if logger == nil {
		logger = g.NewNullLogger()
	}
	return &Job{
		Name:          name,
		cfg:           cfg,
		db:            db,
		logger:        logger.Named("job"),
		DriverOptions: config.FetchOptions,
		Locator:       common.NewLocator(logger.Named("locator")),
		Stat:          common.NewStat(),
	}
}

// WithSCN pins the snapshot of a consistent run. 0 reads the current SCN.
func (j *Job) WithSCN(scn int64) *Job {
	j.scn = scn
	return j
}

// WithTarget copies rows into db instead of writing files.
func (j *Job) WithTarget(db TxBeginner) *Job {
	j.target = db
	return j
}

func (j *Job) WithStore(store *metastore.Store) *Job {
	j.store = store
	return j
}

func (j *Job) WithRtn(rtn *common.Rtn) *Job {
	j.rtn = rtn
	return j
}

func (j *Job) Run(ctx context.Context) (sum *Summary, err error) {
	start := time.Now()
	sum = &Summary{RunID: uuid.NewV4().String()}
	logger := j.logger.With("run", sum.RunID)

	if j.cfg.Consistent {
		if err = j.db.InitSCN(j.scn); err != nil {
			return sum, err
		}
		sum.SCN = j.db.SCN
	}

	run := &metastore.Run{ID: sum.RunID, Job: j.Name, SCN: sum.SCN, Start: start}
	if j.store != nil {
		if err = j.store.BeginRun(run); err != nil {
			return sum, err
		}
		defer func() {
			run.End = time.Now()
			run.Rows, run.Bytes = sum.Rows, sum.Bytes
			run.Status = metastore.StatusSucceeded
			if err != nil {
				run.Status = metastore.StatusFailed
				if errors.Cause(err) == common.ErrCancelled {
					run.Status = metastore.StatusCancelled
				}
				run.Error = err.Error()
			}
			if serr := j.store.FinishRun(run); serr != nil {
				logger.Error("record run", "err", serr)
			}
		}()
	}

	delim, err := j.cfg.BuildDelimiter()
	if err != nil {
		return sum, err
	}
	env := &Env{
		Ctx:           ctx,
		Cfg:           j.cfg,
		Delim:         delim,
		Opts:          attr.OptionsFromTaskConfig(j.cfg),
		Source:        j.db,
		Locator:       j.Locator,
		Stat:          j.Stat,
		Rtn:           j.rtn,
		Logger:        logger,
		DriverOptions: j.DriverOptions,
	}

	tasks, err := j.buildTasks(ctx, env, sum.SCN, start)
	if err != nil {
		j.Locator.CloseAll()
		return sum, err
	}
	logger.Info("unload started", "tasks", len(tasks), "parallel", j.cfg.Parallel,
		"bulk", j.cfg.BulkSize, "scn", sum.SCN)

	// the queue is consumed by Run; results are read from this copy afterwards
	all := append([]Task(nil), tasks...)
	err = common.NewDispatcher[Task](j.cfg.Parallel, j.rtn, logger.Named("dispatcher")).
		Run(tasks, func(t Task) error { return t.Run() })
	if cerr := j.Locator.CloseAll(); cerr != nil && err == nil {
		err = cerr
	}

	for _, t := range all {
		r := t.Result()
		sum.Results = append(sum.Results, r)
		sum.Rows += r.Rows
		sum.Bytes += r.Bytes
		if j.store != nil && (r.Elapsed > 0 || r.Err != nil) {
			if serr := j.store.RecordTable(sum.RunID, tableRecord(r)); serr != nil {
				logger.Error("record table", "table", r.Table, "err", serr)
			}
		}
	}
	sum.Elapsed = time.Since(start)
	j.Stat.Emit()

	if err != nil {
		logger.Error("unload failed", "err", err, "rows", sum.Rows)
		return sum, err
	}
	logger.Info("unload done", "tables", len(all), "rows", sum.Rows, "bytes", sum.Bytes,
		"elapsed", g.PrettifyDurationOutput(sum.Elapsed))
	return sum, nil
}

func tableRecord(r *Result) *metastore.TableRecord {
	t := &metastore.TableRecord{
		Table:     r.Table,
		Partition: r.Partition,
		Data:      r.Data,
		Control:   r.Control,
		Rows:      r.Rows,
		Bytes:     r.Bytes,
		Elapsed:   r.Elapsed,
	}
	if r.Err != nil {
		t.Error = r.Err.Error()
	}
	for i, c := range r.Columns {
		t.Columns = append(t.Columns, metastore.Column{
			Position: i + 1,
			Name:     c.Name,
			TypeName: c.TypeName,
			Codec:    c.Codec,
			Width:    c.Width,
			Field:    c.Field,
		})
	}
	return t
}

// buildTasks runs on the orchestrating goroutine, using the metadata session.
func (j *Job) buildTasks(ctx context.Context, env *Env, scn int64, start time.Time) ([]Task, error) {
	tables, err := j.expandTables()
	if err != nil {
		return nil, err
	}

	ctlShared := map[string]*controlOnce{}
	var tasks []Task
	for _, t := range tables {
		macros := common.Macros{
			OutputDir: j.cfg.Output.Dir,
			Table:     t.Name,
			Extension: j.cfg.Output.Extension,
			JobStart:  start,
		}
		if err = j.checkColumns(t); err != nil {
			return nil, err
		}

		if stmts := t.Statements(); len(stmts) > 0 {
			var ss []Statement
			for _, s := range stmts {
				ss = append(ss, Statement{Text: s})
			}
			tasks = append(tasks, j.newTasks(env, t, macros, ss, ctlShared)...)
			continue
		}

		if err = j.writeDDL(t, macros); err != nil {
			return nil, err
		}
		switch t.Split {
		case common.SplitPartition:
			parts, err := Partitions(ctx, j.db.MetaDataConn, t, j.logger)
			if err != nil {
				return nil, err
			}
			if len(parts) == 0 {
				j.logger.Warn("table is not partitioned", "table", t.FullName())
				tasks = append(tasks, j.newTasks(env, t, macros, []Statement{SelectStatement(t, "", scn, nil)}, ctlShared)...)
				continue
			}
			for _, p := range parts {
				m := macros
				m.Partition = p
				tasks = append(tasks, j.newTasks(env, t, m, []Statement{SelectStatement(t, p, scn, nil)}, ctlShared)...)
			}
		case common.SplitRowid:
			ranges, err := RowidRanges(ctx, j.db.MetaDataConn, t, t.Chunks, j.logger)
			if err != nil {
				return nil, err
			}
			if len(ranges) == 0 {
				tasks = append(tasks, j.newTasks(env, t, macros, []Statement{SelectStatement(t, "", scn, nil)}, ctlShared)...)
				continue
			}
			for i := range ranges {
				tasks = append(tasks, j.newTasks(env, t, macros, []Statement{SelectStatement(t, "", scn, &ranges[i])}, ctlShared)...)
			}
		default:
			tasks = append(tasks, j.newTasks(env, t, macros, []Statement{SelectStatement(t, "", scn, nil)}, ctlShared)...)
		}
	}
	return tasks, nil
}

// newTasks makes the task of one unit. Unloaders whose control spec expands to
// the same target share one control file.
func (j *Job) newTasks(env *Env, t *common.Table, macros common.Macros, ss []Statement, ctlShared map[string]*controlOnce) []Task {
	if j.target != nil {
		var tasks []Task
		for _, s := range ss {
			tasks = append(tasks, NewTransportTask(env, j.target, t, macros, s))
		}
		return tasks
	}
	u := NewUnloader(env, t, macros, ss)
	if key, err := macros.Expand(u.controlSpec); err == nil {
		ctl, ok := ctlShared[key]
		if !ok {
			ctl = &controlOnce{}
			ctlShared[key] = ctl
		}
		u.shareControl(ctl)
	}
	return []Task{u}
}

// expandTables replaces "OWNER.*" by every table of OWNER.
func (j *Job) expandTables() ([]*common.Table, error) {
	var r []*common.Table
	for _, t := range j.cfg.Tables {
		if t.Name != "*" {
			r = append(r, t)
			continue
		}
		names, err := j.db.GetTables(t.Owner)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, common.NewInvalidParamValue("table", t.Owner+".*", "no table found")
		}
		for _, n := range names {
			c := *t
			c.Name = n
			r = append(r, &c)
		}
	}
	return r, nil
}

// checkColumns rejects configured columns the table does not have.
func (j *Job) checkColumns(t *common.Table) error {
	if len(t.Columns) == 0 || t.Query != "" {
		return nil
	}
	cols, err := j.db.GetColumns(t.Owner, t.Name)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	for _, c := range t.Columns {
		n := c
		g.UpperString(&n)
		if len(c) >= 2 && c[0] == '"' && c[len(c)-1] == '"' {
			n = c[1 : len(c)-1]
		}
		if !known[n] {
			return common.NewInvalidParamValue("columns", c, "no such column in "+t.FullName())
		}
	}
	return nil
}

func (j *Job) writeDDL(t *common.Table, macros common.Macros) error {
	if j.cfg.Output.DDL == "" {
		return nil
	}
	ddl, err := j.db.GetTableDDL(t.Owner, t.Name)
	if err != nil {
		return err
	}
	s, err := j.Locator.Open(j.cfg.Output.DDL, &macros)
	if err != nil {
		return err
	}
	// left open: tables may share a DDL file. CloseAll closes it at the end of the run.
	if _, err = s.Write([]byte(ddl + "\n")); err != nil {
		return errors.Wrapf(err, "write ddl of %v", t.FullName())
	}
	return nil
}
