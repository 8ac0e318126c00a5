package config

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/actiontech/xtru/g"
	"github.com/godror/godror"
	"github.com/pkg/errors"
)

const (
	defaultPort        = 1521
	defaultServiceName = "xe"
)

// SessionSetup runs on every checked out session. Numbers converted to text by the
// server must not depend on the client locale.
var SessionSetup = []string{
	`ALTER SESSION SET NLS_NUMERIC_CHARACTERS = '.,'`,
	`ALTER SESSION SET NLS_DATE_FORMAT = 'SYYYY-MM-DD HH24:MI:SS'`,
	`ALTER SESSION SET NLS_TIMESTAMP_FORMAT = 'SYYYY-MM-DD HH24:MI:SS.FF9'`,
}

type OracleConfig struct {
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	ServiceName string `mapstructure:"service_name"`
	// Connect, when set, is used instead of host:port/service_name (e.g. a TNS alias).
	Connect string `mapstructure:"connect"`
	Scn     int64  `mapstructure:"scn"`
}

func (m *OracleConfig) SetDefaultForEmpty() {
	if m.Port == 0 {
		m.Port = defaultPort
	}
	if m.ServiceName == "" {
		m.ServiceName = defaultServiceName
	}
}

func (m *OracleConfig) ConnectString() string {
	if m.Connect != "" {
		return m.Connect
	}
	return fmt.Sprintf("%s:%d/%s", m.Host, m.Port, m.ServiceName)
}

// String hides the password.
func (m *OracleConfig) String() string {
	return fmt.Sprintf("%s@%s", m.User, m.ConnectString())
}

// ConnectionParams leaves quoting of the credentials to godror.
func (m *OracleConfig) ConnectionParams() godror.ConnectionParams {
	return godror.ConnectionParams{
		CommonParams: godror.CommonParams{
			Username:      m.User,
			ConnectString: m.ConnectString(),
			Password:      godror.NewPassword(m.Password),
		},
	}
}

func OpenDb(meta *OracleConfig, poolSize int) (*sql.DB, error) {
	meta.SetDefaultForEmpty()
	sqlDb := sql.OpenDB(godror.NewConnector(meta.ConnectionParams()))
	if poolSize > 0 {
		// one session per worker plus the metadata session
		sqlDb.SetMaxOpenConns(poolSize + 1)
		sqlDb.SetMaxIdleConns(poolSize + 1)
	}
	return sqlDb, nil
}

// OracleDB is the session pool of a run. MetaDataConn serves the orchestrating
// goroutine; workers check out their own sessions.
type OracleDB struct {
	ctx          context.Context
	_db          *sql.DB
	MetaDataConn *sql.Conn
	SCN          int64
	logger       g.LoggerType
}

func NewDB(ctx context.Context, meta *OracleConfig, poolSize int, logger g.LoggerType) (*OracleDB, error) {
	sqlDB, err := OpenDb(meta, poolSize)
	if err != nil {
		return nil, err
	}
	if err = sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, errors.Wrapf(err, "connect %v", meta)
	}
	return NewDBFromSQL(ctx, sqlDB, logger)
}

// NewDBFromSQL wraps an opened database.
func NewDBFromSQL(ctx context.Context, sqlDB *sql.DB, logger g.LoggerType) (*OracleDB, error) {
	if logger == nil {
		logger = g.NewNullLogger()
	}
	o := &OracleDB{
		ctx:    ctx,
		_db:    sqlDB,
		logger: logger,
	}
	conn, _, err := o.Checkout(ctx)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	o.MetaDataConn = conn
	return o, nil
}

func (o *OracleDB) DB() *sql.DB {
	return o._db
}

// Checkout takes a session from the pool and prepares it. Call release when done.
func (o *OracleDB) Checkout(ctx context.Context) (conn *sql.Conn, release func(), err error) {
	conn, err = o._db.Conn(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get connection")
	}
	for _, s := range SessionSetup {
		if _, err = conn.ExecContext(ctx, s); err != nil {
			conn.Close()
			return nil, nil, errors.Wrapf(err, "session setup %v", s)
		}
	}
	return conn, func() {
		if err := conn.Close(); err != nil {
			o.logger.Warn("release session", "err", err)
		}
	}, nil
}

// FetchOptions are the godror query options of a fetch loop of bulk rows.
func FetchOptions(bulk int) []interface{} {
	return []interface{}{
		godror.FetchArraySize(bulk),
		godror.PrefetchCount(bulk + 1),
		godror.LobAsReader(),
		godror.NumberAsString(),
	}
}

func (o *OracleDB) Close() error {
	if o.MetaDataConn != nil {
		o.MetaDataConn.Close()
	}
	return o._db.Close()
}

func (o *OracleDB) GetTables(schema string) ([]string, error) {
	rows, err := o.MetaDataConn.QueryContext(o.ctx,
		`SELECT TABLE_NAME FROM ALL_TABLES WHERE OWNER = :1 ORDER BY TABLE_NAME`, schema)
	if err != nil {
		return nil, errors.Wrapf(err, "list tables of %v", schema)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var table string
		if err = rows.Scan(&table); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

func (o *OracleDB) GetColumns(schema, table string) ([]string, error) {
	rows, err := o.MetaDataConn.QueryContext(o.ctx,
		`SELECT COLUMN_NAME FROM ALL_TAB_COLUMNS WHERE OWNER = :1 AND TABLE_NAME = :2 ORDER BY COLUMN_ID`,
		schema, table)
	if err != nil {
		return nil, errors.Wrapf(err, "list columns of %v.%v", schema, table)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

// GetTableDDL returns the CREATE TABLE statement without storage clauses.
func (o *OracleDB) GetTableDDL(schema, table string) (string, error) {
	for _, param := range []string{"STORAGE", "SEGMENT_ATTRIBUTES"} {
		_, err := o.MetaDataConn.ExecContext(o.ctx, fmt.Sprintf(
			`begin dbms_metadata.set_transform_param(DBMS_METADATA.SESSION_TRANSFORM, '%s', false); end;`, param))
		if err != nil {
			return "", errors.Wrap(err, "set ddl transform")
		}
	}
	_, err := o.MetaDataConn.ExecContext(o.ctx,
		`begin dbms_metadata.set_transform_param(DBMS_METADATA.SESSION_TRANSFORM, 'SQLTERMINATOR', true); end;`)
	if err != nil {
		return "", errors.Wrap(err, "set ddl transform")
	}
	var ddl string
	err = o.MetaDataConn.QueryRowContext(o.ctx,
		`SELECT DBMS_METADATA.GET_DDL('TABLE', :1, :2) FROM DUAL`, table, schema).Scan(&ddl)
	if err != nil {
		return "", errors.Wrapf(err, "get ddl of %v.%v", schema, table)
	}
	return strings.TrimSpace(ddl), nil
}

func (o *OracleDB) GetCurrentSnapshotSCN() (int64, error) {
	var globalSCN int64
	err := o.MetaDataConn.QueryRowContext(o.ctx, "SELECT CURRENT_SCN FROM V$DATABASE").Scan(&globalSCN)
	if err != nil {
		return 0, errors.Wrap(err, "read current scn")
	}
	return globalSCN, nil
}

// InitSCN pins the snapshot of the run: scn if not 0, else the current SCN.
func (o *OracleDB) InitSCN(scn int64) (err error) {
	if scn == 0 {
		scn, err = o.GetCurrentSnapshotSCN()
		if err != nil {
			return err
		}
	}
	o.SCN = scn
	o.logger.Info("snapshot pinned", "scn", scn)
	return nil
}
