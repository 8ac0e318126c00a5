package common

import (
	"bytes"
	"testing"

	test "github.com/outbrain/golib/tests"
)

func TestParseDelimiter(t *testing.T) {
	cases := []struct {
		in   string
		want string
		bad  bool
	}{
		{in: ",", want: ","},
		{in: `\t`, want: "\t"},
		{in: `\r\n`, want: "\r\n"},
		{in: `\\|`, want: `\|`},
		{in: `\x1f`, want: "\x1f"},
		{in: "0x7c7c", want: "||"},
		{in: `\q`, bad: true},
		{in: `\`, bad: true},
		{in: `\x1`, bad: true},
		{in: "0xzz", bad: true},
	}
	for _, c := range cases {
		got, err := ParseDelimiter("separator", c.in)
		if c.bad {
			test.S(t).ExpectTrue(IsInvalidParamValue(err))
			continue
		}
		test.S(t).ExpectNil(err)
		test.S(t).ExpectEquals(got, c.want)
	}
}

func TestNewDelimiter_Invalid(t *testing.T) {
	_, err := NewDelimiter("", `"`, `\n`, 0)
	test.S(t).ExpectTrue(IsInvalidParamValue(err))
	_, err = NewDelimiter(",", `,`, `\n`, 0)
	test.S(t).ExpectTrue(IsInvalidParamValue(err))
	_, err = NewDelimiter(",", `"`, ``, 0)
	test.S(t).ExpectTrue(IsInvalidParamValue(err))
	_, err = NewDelimiter(",", `"`, `\n`, 12)
	test.S(t).ExpectTrue(IsInvalidParamValue(err))
}

func TestDelimiter_AppendField(t *testing.T) {
	d := NewDefaultDelimiter()
	row := &bytes.Buffer{}
	d.AppendField(row, []byte(`a"b`), false, true)
	d.AppendField(row, nil, true, true)
	d.AppendField(row, []byte("12.5"), false, false)
	test.S(t).ExpectEquals(row.String(), `"a""b","","12.5"`)

	out := &bytes.Buffer{}
	n, err := d.FinishRecord(out, row)
	test.S(t).ExpectNil(err)
	test.S(t).ExpectEquals(out.String(), `"a""b","","12.5"`+"\n")
	test.S(t).ExpectEquals(n, out.Len())
}

func TestDelimiter_NoEnclosure(t *testing.T) {
	d := &Delimiter{Separator: "|", Terminator: "\n"}
	row := &bytes.Buffer{}
	d.AppendField(row, []byte("x"), false, true)
	d.AppendField(row, nil, true, false)
	test.S(t).ExpectEquals(row.String(), "x|")
}

func TestDelimiter_LengthPrefix(t *testing.T) {
	d := &Delimiter{Separator: ",", Enclosure: `"`, Terminator: "\n", LengthPrefix: 5}
	s, err := d.LengthString(42)
	test.S(t).ExpectNil(err)
	test.S(t).ExpectEquals(s, "00042")

	_, err = d.LengthString(123456)
	test.S(t).ExpectNotNil(err)

	row := bytes.NewBufferString(`"ab"`)
	out := &bytes.Buffer{}
	n, err := d.FinishRecord(out, row)
	test.S(t).ExpectNil(err)
	test.S(t).ExpectEquals(out.String(), "00005\"ab\"\n")
	test.S(t).ExpectEquals(n, 10)
}

func TestLoaderString(t *testing.T) {
	test.S(t).ExpectEquals(LoaderString(","), "','")
	test.S(t).ExpectEquals(LoaderString(`"`), `'"'`)
	test.S(t).ExpectEquals(LoaderString("\n"), "X'0a'")
	test.S(t).ExpectEquals(LoaderString("'"), "X'27'")
}
