package common

import (
	"testing"

	test "github.com/outbrain/golib/tests"
)

func TestParseTableName(t *testing.T) {
	owner, name, err := ParseTableName("scott.emp")
	test.S(t).ExpectNil(err)
	test.S(t).ExpectEquals(owner, "SCOTT")
	test.S(t).ExpectEquals(name, "EMP")

	owner, name, err = ParseTableName(`scott."MixedCase"`)
	test.S(t).ExpectNil(err)
	test.S(t).ExpectEquals(name, "MixedCase")

	_, _, err = ParseTableName("emp")
	test.S(t).ExpectTrue(IsInvalidParamValue(err))
}

func TestTable_Statements(t *testing.T) {
	tb := &Table{Query: "select 1 from dual; ;select 2 from dual;"}
	stmts := tb.Statements()
	test.S(t).ExpectEquals(len(stmts), 2)
	test.S(t).ExpectEquals(stmts[1], "select 2 from dual")

	test.S(t).ExpectEquals(len((&Table{}).Statements()), 0)
}

func TestTable_SelectList(t *testing.T) {
	test.S(t).ExpectEquals((&Table{}).SelectList(), "*")
	test.S(t).ExpectEquals((&Table{Columns: []string{"id", `"Name"`}}).SelectList(), `"ID", "Name"`)
}

func TestUnloadTaskConfig_SetDefaultForEmpty(t *testing.T) {
	c := &UnloadTaskConfig{Tables: []*Table{{Split: SplitRowid}}}
	c.SetDefaultForEmpty()
	test.S(t).ExpectEquals(c.BulkSize, DefaultBulkSize)
	test.S(t).ExpectEquals(c.Parallel, 1)
	test.S(t).ExpectEquals(c.Tables[0].Chunks, DefaultChunks)
	test.S(t).ExpectEquals(c.Output.Data, DefaultDataSpec)

	d, err := c.BuildDelimiter()
	test.S(t).ExpectNil(err)
	test.S(t).ExpectEquals(d.Terminator, "\n")
	test.S(t).ExpectEquals(d.Enclosure, `"`)

	c = &UnloadTaskConfig{Delimiter: DelimiterConfig{NoEnclosure: true}}
	c.SetDefaultForEmpty()
	d, err = c.BuildDelimiter()
	test.S(t).ExpectNil(err)
	test.S(t).ExpectEquals(d.Enclosure, "")
}
