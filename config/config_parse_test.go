package config

import (
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/actiontech/xtru/driver/common"
	test "github.com/outbrain/golib/tests"
)

const fullJob = `
log_level = "debug"
metastore = "/var/lib/xtru/meta.db"
parallel  = 4
bulk_size = "1000"
consistent = true
float_format = "9.99EEEE"

oracle {
  user         = "scott"
  password     = "tiger"
  host         = "10.0.0.1"
  service_name = "orcl"
}

delimiter {
  separator  = "|"
  terminator = "\\r\\n"
}

output {
  dir  = "/data/out"
  data = "file://{O}/{C}_{D=%Y%m%d}.{X}"
}

target {
  driver = "sqlite3"
  dsn    = "/tmp/copy.db"
  multi_row = true
}

metric {
  prometheus_push_address = "127.0.0.1:9091"
}

table "scott.emp" {
  columns = ["empno", "ename"]
  where   = "deptno = 10"
  define {
    ENAME = 40
  }
}

table "SCOTT.SALES" {
  split  = "rowid"
  chunks = 8
}

table "scott.*" {}
`

func TestConfig_Parse(t *testing.T) {
	c, err := ParseConfig(strings.NewReader(fullJob))
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	test.S(t).ExpectEquals(c.LogLevel, "debug")
	test.S(t).ExpectEquals(c.Metastore, "/var/lib/xtru/meta.db")
	test.S(t).ExpectEquals(c.Parallel, 4)
	test.S(t).ExpectEquals(c.BulkSize, 1000)
	test.S(t).ExpectTrue(c.Consistent)
	test.S(t).ExpectEquals(c.FloatFormat, "9.99EEEE")

	test.S(t).ExpectNotNil(c.Oracle)
	test.S(t).ExpectEquals(c.Oracle.User, "scott")
	test.S(t).ExpectEquals(c.Oracle.ServiceName, "orcl")
	test.S(t).ExpectEquals(c.Delimiter.Separator, "|")
	test.S(t).ExpectEquals(c.Delimiter.Terminator, `\r\n`)
	test.S(t).ExpectEquals(c.Output.Dir, "/data/out")
	test.S(t).ExpectTrue(c.Target.MultiRow)
	test.S(t).ExpectEquals(c.Metric.PrometheusPushAddr, "127.0.0.1:9091")

	test.S(t).ExpectEquals(len(c.Tables), 3)
	emp := c.Tables[0]
	test.S(t).ExpectEquals(emp.FullName(), "SCOTT.EMP")
	test.S(t).ExpectEquals(len(emp.Columns), 2)
	test.S(t).ExpectEquals(emp.Where, "deptno = 10")
	test.S(t).ExpectEquals(emp.Define["ENAME"], 40)
	test.S(t).ExpectEquals(c.Tables[1].Split, common.SplitRowid)
	test.S(t).ExpectEquals(c.Tables[1].Chunks, 8)
	test.S(t).ExpectEquals(c.Tables[2].Name, "*")

	c.SetDefaultForEmpty()
	test.S(t).ExpectEquals(c.Oracle.Port, 1521)
	test.S(t).ExpectEquals(c.Target.Table, "{T}")
	test.S(t).ExpectNil(c.Validate())
}

func TestConfig_ParseErrors(t *testing.T) {
	cases := []struct {
		name string
		job  string
		want string
	}{
		{"syntax", "nope;!!!", "error parsing"},
		{"unknown key", `paralel = 2`, "invalid key: paralel"},
		{"unknown block key", "oracle {\n usr = \"x\"\n}", "invalid key: usr"},
		{"two oracle blocks", "oracle {}\noracle {}", "only one 'oracle' block"},
		{"unknown table key", "table \"A.B\" {\n colums = []\n}", "invalid key: colums"},
		{"bad table name", "table \"AB\" {}", "expect OWNER.NAME"},
		{"duplicated table", "table \"A.B\" {}\ntable \"A.B\" {}", "defined more than once"},
	}
	for _, c := range cases {
		_, err := ParseConfig(strings.NewReader(c.job))
		if err == nil {
			t.Fatalf("%s: expected error, got nothing", c.name)
		}
		if !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: %q does not contain %q", c.name, err.Error(), c.want)
		}
	}
}

func TestConfig_ParseConfigFile(t *testing.T) {
	// Fails if the file doesn't exist
	if _, err := ParseConfigFile("/nonexistent/xtru.hcl"); err == nil {
		t.Fatalf("expected error, got nothing")
	}

	fh, err := ioutil.TempFile("", "xtru")
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	defer os.RemoveAll(fh.Name())

	if _, err := fh.WriteString(`{"log_level":"info", "parallel": 2}`); err != nil {
		t.Fatalf("err: %s", err)
	}

	config, err := ParseConfigFile(fh.Name())
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if config.LogLevel != "info" || config.Parallel != 2 {
		t.Fatalf("bad: %#v", config)
	}
	if config.File == "" {
		t.Fatalf("file not recorded")
	}
}
