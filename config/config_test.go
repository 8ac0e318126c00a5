package config

import (
	"strings"
	"testing"

	"github.com/actiontech/xtru/driver/common"
	oracle "github.com/actiontech/xtru/driver/oracle/config"
	"github.com/hashicorp/go-multierror"
	test "github.com/outbrain/golib/tests"
)

func validConfig() *Config {
	c := DefaultConfig()
	c.Oracle = &oracle.OracleConfig{User: "scott", Password: "tiger", Host: "db"}
	c.Tables = []*common.Table{{Owner: "SCOTT", Name: "EMP"}}
	c.SetDefaultForEmpty()
	return c
}

func TestConfig_Defaults(t *testing.T) {
	c := validConfig()
	test.S(t).ExpectEquals(c.Parallel, 1)
	test.S(t).ExpectEquals(c.BulkSize, 500)
	test.S(t).ExpectEquals(c.LobPieceSize, 64*1024)
	test.S(t).ExpectEquals(c.LobWidth, 1024*1024)
	test.S(t).ExpectEquals(c.DateFormat, "YYYY-MM-DD HH24:MI:SS")
	test.S(t).ExpectEquals(c.Output.Data, "file://{O}/{C}.{X}")
	test.S(t).ExpectEquals(c.Output.Control, "file://{O}/{C}.ctl")
	test.S(t).ExpectEquals(c.Output.Extension, "dat")
	test.S(t).ExpectTrue(c.MetastoreEnabled())
	test.S(t).ExpectNil(c.Validate())
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	c := DefaultConfig()
	c.Delimiter.Separator = ","
	c.Delimiter.Enclosure = ","
	c.Output.Data = "ftp://host/{T}"
	c.Target = &common.TargetConfig{}
	c.SetDefaultForEmpty()

	err := c.Validate()
	test.S(t).ExpectNotNil(err)
	merr, ok := err.(*multierror.Error)
	test.S(t).ExpectTrue(ok)
	// oracle, table, enclosure, output scheme, target driver, target dsn
	test.S(t).ExpectEquals(len(merr.Errors), 6)
	for _, e := range merr.Errors {
		test.S(t).ExpectTrue(common.IsInvalidParamValue(e))
	}
}

func TestConfig_ValidateTables(t *testing.T) {
	c := validConfig()
	c.Tables = append(c.Tables,
		&common.Table{Owner: "SCOTT", Name: "EMP"},
		&common.Table{Owner: "SCOTT", Name: "DEPT", Split: "hash"},
		&common.Table{Owner: "SCOTT", Name: "BONUS", Query: "SELECT 1 FROM DUAL", Where: "1=1"},
		&common.Table{Owner: "SCOTT", Name: "SALGRADE", Data: "file://{Q}"},
		&common.Table{Owner: "SCOTT", Name: "EMP2", Define: map[string]int{"SAL": 0}},
	)
	err := c.Validate()
	test.S(t).ExpectNotNil(err)
	for _, want := range []string{"defined more than once", "expect partition or rowid", "excludes split", "unknown macro", "width must be positive"} {
		test.S(t).ExpectTrue(strings.Contains(err.Error(), want))
	}
}

func TestConfig_AddTable(t *testing.T) {
	c := validConfig()
	test.S(t).ExpectNil(c.AddTable("hr.jobs", "SELECT * FROM HR.JOBS"))
	test.S(t).ExpectEquals(c.Tables[1].FullName(), "HR.JOBS")
	test.S(t).ExpectNotNil(c.AddTable("jobs", ""))
}

func TestConfig_String(t *testing.T) {
	s := validConfig().String()
	test.S(t).ExpectFalse(strings.Contains(s, "tiger"))
	test.S(t).ExpectTrue(strings.Contains(s, "scott@db:1521/xe"))
}
