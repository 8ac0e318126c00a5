package stmt

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/actiontech/xtru/driver/common"
	"github.com/actiontech/xtru/driver/oracle/attr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	BaseFetchable
	s        *Stmt
	calls    []string
	batches  []int
	names    []string
	kinds    []string
	feedback []int64
	failOn   int
	onBatch  func(n int)
}

func (r *recorder) PreBulkAction(bulk int) error {
	r.calls = append(r.calls, "pre")
	return nil
}

func (r *recorder) PostBulkAction(n int) error {
	r.calls = append(r.calls, "post")
	r.batches = append(r.batches, n)
	if len(r.kinds) == 0 {
		for _, a := range r.s.Attrs() {
			r.kinds = append(r.kinds, a.Kind())
		}
	}
	for i := 0; i < n; i++ {
		a := r.s.Attrs()[0]
		if a.IsNull(i) {
			r.names = append(r.names, "<null>")
			continue
		}
		r.names = append(r.names, string(a.AppendText(nil, i)))
	}
	if r.onBatch != nil {
		r.onBatch(n)
	}
	if r.failOn > 0 && len(r.batches) == r.failOn {
		return errors.New("sink full")
	}
	return nil
}

func (r *recorder) FeedbackAction(total int64) error {
	r.feedback = append(r.feedback, total)
	return nil
}

func (r *recorder) NotFoundAction() error {
	r.calls = append(r.calls, "notfound")
	return nil
}

func (r *recorder) PostRepeatAction() error {
	r.calls = append(r.calls, "repeat")
	return nil
}

func (r *recorder) FinalizeAction() error {
	r.calls = append(r.calls, "finalize")
	return nil
}

const empQuery = `SELECT "NAME", "SAL", "HIRED" FROM "SCOTT"."EMP"`

func empRows(mock sqlmock.Sqlmock, n int) *sqlmock.Rows {
	rows := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("NAME").OfType("VARCHAR2", "").WithLength(10),
		mock.NewColumn("SAL").OfType("NUMBER", "").WithPrecisionAndScale(5, 2),
		mock.NewColumn("HIRED").OfType("DATE", time.Time{}),
	)
	names := []string{"KING", "BLAKE", "CLARK", "JONES", "SCOTT", "FORD", "SMITH"}
	for i := 0; i < n; i++ {
		rows.AddRow(names[i%len(names)], "100.5", time.Date(1981, 11, 17, 0, 0, 0, 0, time.UTC))
	}
	return rows
}

func newMock(t *testing.T) (sqlmock.Sqlmock, *Stmt, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	return mock, New(db, empQuery, 2, nil, nil), func() { db.Close() }
}

func TestFetch_Batches(t *testing.T) {
	mock, s, done := newMock(t)
	defer done()
	mock.ExpectQuery(empQuery).WillReturnRows(empRows(mock, 5))

	require.NoError(t, s.Query(context.Background()))
	require.Equal(t, StateExecuted, s.State())

	r := &recorder{s: s}
	total, err := s.Fetch(context.Background(), r, nil)
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Equal(t, []int{2, 2, 1}, r.batches)
	require.Equal(t, []string{"pre", "post", "pre", "post", "pre", "post", "repeat", "finalize"}, r.calls)
	require.Equal(t, []string{"KING", "BLAKE", "CLARK", "JONES", "SCOTT"}, r.names)
	require.Equal(t, []string{"string", "fixed_number", "date"}, r.kinds)
	require.Equal(t, StateDone, s.State())
	require.Equal(t, 3, s.Batches())
	require.EqualValues(t, 5, s.Total())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetch_ExactMultipleOfBulk(t *testing.T) {
	mock, s, done := newMock(t)
	defer done()
	mock.ExpectQuery(empQuery).WillReturnRows(empRows(mock, 4))

	require.NoError(t, s.Query(context.Background()))
	r := &recorder{s: s}
	total, err := s.Fetch(context.Background(), r, nil)
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.Equal(t, []int{2, 2}, r.batches)
	// the trailing empty batch is announced but never posted
	require.Equal(t, []string{"pre", "post", "pre", "post", "pre", "repeat", "finalize"}, r.calls)
}

func TestFetch_NotFound(t *testing.T) {
	mock, s, done := newMock(t)
	defer done()
	mock.ExpectQuery(empQuery).WillReturnRows(empRows(mock, 0))

	require.NoError(t, s.Query(context.Background()))
	r := &recorder{s: s}
	total, err := s.Fetch(context.Background(), r, nil)
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
	require.Empty(t, r.batches)
	require.Equal(t, []string{"pre", "notfound", "finalize"}, r.calls)
}

func TestFetch_CallbackErrorStopsAndFinalizes(t *testing.T) {
	mock, s, done := newMock(t)
	defer done()
	mock.ExpectQuery(empQuery).WillReturnRows(empRows(mock, 5))

	require.NoError(t, s.Query(context.Background()))
	r := &recorder{s: s, failOn: 1}
	slot := &common.ErrSlot{}
	total, err := s.Fetch(context.Background(), r, slot)
	require.Error(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, []string{"pre", "post", "finalize"}, r.calls)
	require.Equal(t, err, slot.Err())
	require.Equal(t, StateFailed, s.State())
}

func TestFetch_StoppedAtBatchBoundary(t *testing.T) {
	mock, s, done := newMock(t)
	defer done()
	mock.ExpectQuery(empQuery).WillReturnRows(empRows(mock, 5))

	rtn := common.NewRtn()
	s.WithRtn(rtn)
	require.NoError(t, s.Query(context.Background()))
	r := &recorder{s: s, onBatch: func(int) { rtn.Stop() }}
	total, err := s.Fetch(context.Background(), r, nil)
	require.Equal(t, common.ErrCancelled, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, []int{2}, r.batches)
}

func TestFetch_Feedback(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(empQuery).WillReturnRows(empRows(mock, 7))

	s := New(db, empQuery, 3, nil, nil).WithFeedback(2)
	require.NoError(t, s.Query(context.Background()))
	r := &recorder{s: s}
	_, err = s.Fetch(context.Background(), r, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 6}, r.feedback)
}

func TestFetch_Define(t *testing.T) {
	mock, s, done := newMock(t)
	defer done()
	mock.ExpectQuery(empQuery).WillReturnRows(empRows(mock, 1))

	require.NoError(t, s.Query(context.Background()))
	require.NoError(t, s.Define(1, attr.NewStringAttr("SAL", 40, s.BulkSize())))
	require.Error(t, s.Define(3, attr.NewStringAttr("X", 1, s.BulkSize())))
	// visible before the first fetch, where the control file is written
	require.Equal(t, "string", s.Attrs()[1].Kind())
	require.Equal(t, `"SAL" CHAR(40)`, s.Attrs()[1].Field(nil))

	r := &recorder{s: s}
	_, err := s.Fetch(context.Background(), r, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"string", "string", "date"}, r.kinds)
	require.Equal(t, "100.5", string(s.Attrs()[1].AppendText(nil, 0)))
}

func TestDefineWidths(t *testing.T) {
	mock, s, done := newMock(t)
	defer done()
	mock.ExpectQuery(empQuery).WillReturnRows(empRows(mock, 1))
	require.NoError(t, s.Query(context.Background()))

	require.NoError(t, s.DefineWidths(map[string]int{"name": 30}))
	require.Equal(t, 30, s.Attrs()[0].Width())
	require.Equal(t, "NAME", s.Attrs()[0].Meta().Name)

	require.True(t, common.IsInvalidParamValue(s.DefineWidths(map[string]int{"NOPE": 1})))
	require.True(t, common.IsInvalidParamValue(s.DefineWidths(map[string]int{"SAL": 0})))
	require.Equal(t, "fixed_number", s.Attrs()[1].Kind())
	require.NoError(t, s.Close())
}

func TestStmt_WrongState(t *testing.T) {
	mock, s, done := newMock(t)
	defer done()

	_, err := s.Fetch(context.Background(), &recorder{s: s}, nil)
	require.Equal(t, ErrState, errors.Cause(err))
	require.Equal(t, ErrState, errors.Cause(s.Define(0, attr.NewStringAttr("X", 1, 1))))

	mock.ExpectQuery(empQuery).WillReturnRows(empRows(mock, 1))
	require.NoError(t, s.Query(context.Background()))
	require.Equal(t, ErrState, errors.Cause(s.ConvPlaceHolder()))
	require.Equal(t, ErrState, errors.Cause(s.Query(context.Background())))
	require.NoError(t, s.Close())
}

func TestConvPlaceHolder(t *testing.T) {
	s := New(nil, `SELECT * FROM %s WHERE ROWID BETWEEN '%s' AND '%s'`, 10, nil, nil)
	require.Error(t, s.ConvPlaceHolder("T"))
	require.NoError(t, s.ConvPlaceHolder(`"A"."T"`, "AAA", "BBB"))
	require.Equal(t, `SELECT * FROM "A"."T" WHERE ROWID BETWEEN 'AAA' AND 'BBB'`, s.Text())
}

func TestQuery_UnsupportedType(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	rows := mock.NewRowsWithColumnDefinition(mock.NewColumn("GEO").OfType("OBJECT", ""))
	mock.ExpectQuery("SELECT GEO FROM T").WillReturnRows(rows)

	s := New(db, "SELECT GEO FROM T", 10, nil, nil)
	err = s.Query(context.Background())
	require.True(t, attr.IsUnsupportedType(err))
	require.Equal(t, StateFailed, s.State())
}

func TestExecute(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("ALTER SESSION SET NLS_NUMERIC_CHARACTERS='.,'").WillReturnResult(sqlmock.NewResult(0, 0))

	s := New(db, "ALTER SESSION SET NLS_NUMERIC_CHARACTERS='.,'", 1, nil, nil)
	n, err := s.Execute(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
	require.Equal(t, StateDone, s.State())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeColumn_NativeFloat(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	rows := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("F").OfType("FLOAT", float32(0)),
		mock.NewColumn("N").OfType("NUMBER", "").WithPrecisionAndScale(0, -127),
	).AddRow(float32(1.5), "3")
	mock.ExpectQuery("SELECT F, N FROM T").WillReturnRows(rows)

	s := New(db, "SELECT F, N FROM T", 10, nil, nil)
	require.NoError(t, s.Query(context.Background()))
	require.Equal(t, attr.TypeBinaryFloat, s.Attrs()[0].Meta().Type)
	require.True(t, s.Attrs()[1].Meta().Floating())
	require.Equal(t, "number", s.Attrs()[1].Kind())
	require.NoError(t, s.Close())
}
