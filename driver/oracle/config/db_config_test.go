package config

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/godror/godror/dsn"
	test "github.com/outbrain/golib/tests"
	"github.com/stretchr/testify/require"
)

func expectSessionSetup(mock sqlmock.Sqlmock) {
	for _, s := range SessionSetup {
		mock.ExpectExec(s).WillReturnResult(sqlmock.NewResult(0, 0))
	}
}

func newMockDB(t *testing.T) (*OracleDB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	expectSessionSetup(mock)
	o, err := NewDBFromSQL(context.Background(), db, nil)
	require.NoError(t, err)
	return o, mock
}

func TestOracleConfig_ConnectString(t *testing.T) {
	c := &OracleConfig{User: "scott", Password: "tiger", Host: "db1"}
	c.SetDefaultForEmpty()
	test.S(t).ExpectEquals(c.ConnectString(), "db1:1521/xe")
	test.S(t).ExpectEquals(c.String(), "scott@db1:1521/xe")

	c.Connect = "PROD_TNS"
	test.S(t).ExpectEquals(c.ConnectString(), "PROD_TNS")
}

func TestOracleConfig_ConnectionParamsQuotesPassword(t *testing.T) {
	c := &OracleConfig{User: "scott", Password: `ti"g er\`, Connect: `(DESCRIPTION=(ADDRESS=(HOST="db1")))`}
	p, err := dsn.Parse(c.ConnectionParams().StringWithPassword())
	require.NoError(t, err)
	test.S(t).ExpectEquals(p.Username, "scott")
	test.S(t).ExpectEquals(p.Password.Secret(), `ti"g er\`)
	test.S(t).ExpectEquals(p.ConnectString, `(DESCRIPTION=(ADDRESS=(HOST="db1")))`)
	test.S(t).ExpectFalse(strings.Contains(c.ConnectionParams().String(), "g er"))
}

func TestFetchOptions(t *testing.T) {
	test.S(t).ExpectEquals(len(FetchOptions(100)), 4)
}

func TestCheckout_RunsSessionSetup(t *testing.T) {
	o, mock := newMockDB(t)
	defer o.Close()

	expectSessionSetup(mock)
	conn, release, err := o.Checkout(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)
	release()
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_SetupFailure(t *testing.T) {
	o, mock := newMockDB(t)
	defer o.Close()

	mock.ExpectExec(SessionSetup[0]).WillReturnError(sqlmock.ErrCancelled)
	_, _, err := o.Checkout(context.Background())
	require.Error(t, err)
}

func TestInitSCN(t *testing.T) {
	o, mock := newMockDB(t)
	defer o.Close()

	mock.ExpectQuery("SELECT CURRENT_SCN FROM V$DATABASE").
		WillReturnRows(sqlmock.NewRows([]string{"CURRENT_SCN"}).AddRow(int64(4242)))
	require.NoError(t, o.InitSCN(0))
	require.EqualValues(t, 4242, o.SCN)

	require.NoError(t, o.InitSCN(17))
	require.EqualValues(t, 17, o.SCN)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTablesAndColumns(t *testing.T) {
	o, mock := newMockDB(t)
	defer o.Close()

	mock.ExpectQuery(`SELECT TABLE_NAME FROM ALL_TABLES WHERE OWNER = :1 ORDER BY TABLE_NAME`).
		WithArgs("SCOTT").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("DEPT").AddRow("EMP"))
	mock.ExpectQuery(`SELECT COLUMN_NAME FROM ALL_TAB_COLUMNS WHERE OWNER = :1 AND TABLE_NAME = :2 ORDER BY COLUMN_ID`).
		WithArgs("SCOTT", "DEPT").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).AddRow("DEPTNO").AddRow("DNAME").AddRow("LOC"))

	tables, err := o.GetTables("SCOTT")
	require.NoError(t, err)
	require.Equal(t, []string{"DEPT", "EMP"}, tables)

	columns, err := o.GetColumns("SCOTT", "DEPT")
	require.NoError(t, err)
	require.Equal(t, []string{"DEPTNO", "DNAME", "LOC"}, columns)
	require.NoError(t, mock.ExpectationsWereMet())
}
