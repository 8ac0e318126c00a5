package attr

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/actiontech/xtru/driver/common"
	test "github.com/outbrain/golib/tests"
	"github.com/stretchr/testify/require"
)

func TestTypeCodeOf(t *testing.T) {
	cases := map[string]TypeCode{
		"VARCHAR2":                       TypeVarchar2,
		"nvarchar2":                      TypeVarchar2,
		"NUMBER":                         TypeNumber,
		"TIMESTAMP(6)":                   TypeTimestamp,
		"TIMESTAMP WITH TIME ZONE":       TypeTimestampTZ,
		"TIMESTAMP WITH LOCAL TIME ZONE": TypeTimestampLTZ,
		"LONG RAW":                       TypeLongRaw,
		"INTERVAL DAY TO SECOND":         TypeIntervalDS,
		"NCLOB":                          TypeClob,
		"XMLTYPE":                        TypeUnknown,
	}
	for name, code := range cases {
		test.S(t).ExpectEquals(TypeCodeOf(name), code)
	}
}

func TestMakeInstance_Supported(t *testing.T) {
	supported := []ColumnMeta{
		{Type: TypeVarchar2, Width: 10},
		{Type: TypeChar, Width: 1},
		{Type: TypeNumber, Precision: 10, Scale: 2},
		{Type: TypeNumber, Precision: 38, Scale: 0},
		{Type: TypeNumber},
		{Type: TypeLong},
		{Type: TypeDate},
		{Type: TypeRaw, Width: 16},
		{Type: TypeLongRaw},
		{Type: TypeRowid},
		{Type: TypeURowid},
		{Type: TypeBinaryFloat},
		{Type: TypeBinaryDouble},
		{Type: TypeClob},
		{Type: TypeBlob},
		{Type: TypeBfile},
		{Type: TypeJSON},
		{Type: TypeTimestamp},
		{Type: TypeTimestampTZ},
		{Type: TypeTimestampLTZ},
		{Type: TypeIntervalDS},
		{Type: TypeIntervalYM},
		{Type: TypeBoolean},
	}
	for _, meta := range supported {
		meta.Name = "C"
		a, err := MakeInstance(meta, 4, nil)
		require.NoError(t, err, meta.Type.String())
		require.NotNil(t, a, meta.Type.String())
		require.True(t, a.BufferSize() > 0, meta.Type.String())
		require.True(t, a.Width() > 0, meta.Type.String())
		require.True(t, strings.HasPrefix(a.Field(common.NewDefaultDelimiter()), `"C" `))
	}
}

func TestMakeInstance_Unsupported(t *testing.T) {
	for _, code := range []TypeCode{TypeObject, TypeRef, TypeNestedTable, TypeRefCursor, TypeUnknown} {
		_, err := MakeInstance(ColumnMeta{Name: "ADDR", Type: code, TypeName: "X"}, 4, nil)
		require.Error(t, err)
		require.True(t, IsUnsupportedType(err))
		require.Contains(t, err.Error(), "ADDR")
		require.Contains(t, err.Error(), "code ")
		ute := err.(*UnsupportedTypeError)
		require.Equal(t, code, ute.Code)
	}
}

func TestMakeInstance_UnsupportedKeepsDriverTypeNumber(t *testing.T) {
	meta := ColumnMeta{Name: "V", TypeName: "OTHER[2010]"}
	meta.Type = TypeCodeOf(meta.TypeName)
	require.Equal(t, TypeUnknown, meta.Type)

	_, err := MakeInstance(meta, 1, nil)
	require.True(t, IsUnsupportedType(err))
	require.Equal(t, TypeCode(2010), err.(*UnsupportedTypeError).Code)
	require.Contains(t, err.Error(), "OTHER[2010] (code 2010)")

	_, err = MakeInstance(ColumnMeta{Name: "V", TypeName: "OTHER[x]"}, 1, nil)
	require.Equal(t, TypeUnknown, err.(*UnsupportedTypeError).Code)
}

func TestMakeInstance_BadMask(t *testing.T) {
	_, err := MakeInstance(ColumnMeta{Name: "D", Type: TypeDate}, 1, &Options{DateFormat: "YYYY-Q"})
	require.True(t, common.IsInvalidParamValue(err))

	_, err = MakeInstance(ColumnMeta{Name: "N", Type: TypeNumber}, 1, &Options{FloatFormat: "9x9"})
	require.True(t, common.IsInvalidParamValue(err))
}

func TestNumberPathSweep(t *testing.T) {
	for p := 0; p <= 40; p++ {
		for s := -20; s <= 40; s++ {
			want := p >= 1 && p <= 15 && s >= 0 && s <= p
			test.S(t).ExpectEquals(UsesFixedDecimal(p, s), want)
		}
	}

	cases := []struct {
		p, s int
		kind string
	}{
		{15, 15, "fixed_number"},
		{15, 0, "fixed_number"},
		{1, 0, "fixed_number"},
		{5, 2, "fixed_number"},
		{16, 0, "number"},
		{7, -11, "number"},
		{0, 0, "number"},
		{0, FloatingScale, "number"},
		{126, FloatingScale, "number"},
		{10, 11, "number"},
	}
	for _, c := range cases {
		a, err := MakeInstance(ColumnMeta{Name: "N", Type: TypeNumber, Precision: c.p, Scale: c.s}, 2, nil)
		require.NoError(t, err)
		require.Equal(t, c.kind, a.Kind(), "NUMBER(%v,%v)", c.p, c.s)
	}
}

func TestFixedNumberField(t *testing.T) {
	a, err := MakeInstance(ColumnMeta{Name: "SAL", Type: TypeNumber, Precision: 5, Scale: 2}, 2, nil)
	require.NoError(t, err)
	require.Equal(t, 8, a.Width())
	require.Equal(t, `"SAL" DECIMAL EXTERNAL(8) TERMINATED BY ',' ENCLOSED BY '"'`, a.Field(common.NewDefaultDelimiter()))
	require.Equal(t, `"SAL" DECIMAL EXTERNAL(8)`, a.Field(&common.Delimiter{Separator: ",", Terminator: "\n"}))
}

func TestFieldClauses(t *testing.T) {
	d := &common.Delimiter{Separator: "|", Terminator: "\n"}
	cases := []struct {
		meta ColumnMeta
		want string
	}{
		{ColumnMeta{Name: "ENAME", Type: TypeVarchar2, Width: 10}, `"ENAME" CHAR(10)`},
		{ColumnMeta{Name: "HIRED", Type: TypeDate}, `"HIRED" DATE(21) "YYYY-MM-DD HH24:MI:SS"`},
		{ColumnMeta{Name: "TS", Type: TypeTimestamp}, `"TS" TIMESTAMP "YYYY-MM-DD HH24:MI:SS.FF9"`},
		{ColumnMeta{Name: "TZ", Type: TypeTimestampTZ}, `"TZ" TIMESTAMP WITH TIME ZONE "YYYY-MM-DD HH24:MI:SS.FF9 TZH:TZM"`},
		{ColumnMeta{Name: "LTZ", Type: TypeTimestampLTZ}, `"LTZ" TIMESTAMP WITH LOCAL TIME ZONE "YYYY-MM-DD HH24:MI:SS.FF9"`},
		{ColumnMeta{Name: "R", Type: TypeRaw, Width: 16}, `"R" CHAR(32)`},
		{ColumnMeta{Name: "RID", Type: TypeRowid}, `"RID" CHAR(18)`},
		{ColumnMeta{Name: "F", Type: TypeBinaryDouble}, `"F" FLOAT EXTERNAL(25)`},
		{ColumnMeta{Name: "N", Type: TypeNumber}, `"N" FLOAT EXTERNAL(46)`},
		{ColumnMeta{Name: "N", Type: TypeNumber, Precision: 20, Scale: 4}, `"N" DECIMAL EXTERNAL(22)`},
		{ColumnMeta{Name: "DS", Type: TypeIntervalDS}, `"DS" INTERVAL DAY TO SECOND`},
		{ColumnMeta{Name: "YM", Type: TypeIntervalYM}, `"YM" INTERVAL YEAR TO MONTH`},
		{ColumnMeta{Name: "DOC", Type: TypeClob}, `"DOC" CHAR(1048576)`},
		{ColumnMeta{Name: "IMG", Type: TypeBlob}, `"IMG" CHAR(2097152)`},
	}
	for _, c := range cases {
		a, err := MakeInstance(c.meta, 1, nil)
		require.NoError(t, err)
		require.Equal(t, c.want, a.Field(d))
	}

	a, err := MakeInstance(ColumnMeta{Name: "DOC", Type: TypeBfile}, 1, nil)
	require.NoError(t, err)
	require.Contains(t, a.Field(d), `"BFILENAME(SUBSTR(:DOC,1,INSTR(:DOC,'/')-1),SUBSTR(:DOC,INSTR(:DOC,'/')+1))"`)
}

func TestRenderHonorsRowCount(t *testing.T) {
	a, err := MakeInstance(ColumnMeta{Name: "S", Type: TypeVarchar2, Width: 4}, 3, nil)
	require.NoError(t, err)
	d := common.NewDefaultDelimiter()
	for i, v := range []interface{}{"a", "b", "c"} {
		require.NoError(t, a.Set(i, v))
	}
	rows := []*bytes.Buffer{{}, {}, {}}
	a.Render(2, rows, d, false)
	require.Equal(t, `"a"`, rows[0].String())
	require.Equal(t, `"b"`, rows[1].String())
	require.Equal(t, 0, rows[2].Len())

	// a new batch starts from NULL
	a.Reset()
	require.True(t, a.IsNull(0))
	require.Nil(t, a.Value(0))
}

func TestStringAttr_Oversized(t *testing.T) {
	a := NewStringAttr("S", 2, 2)
	require.NoError(t, a.Set(0, "héllo"))
	require.NoError(t, a.Set(1, "ok"))
	require.Equal(t, "héllo", string(a.AppendText(nil, 0)))
	require.Equal(t, "ok", string(a.AppendText(nil, 1)))
	require.Equal(t, "héllo", a.Value(0))
}

func TestFloatAttr_SpecialValues(t *testing.T) {
	a, err := MakeInstance(ColumnMeta{Name: "D", Type: TypeBinaryDouble}, 4, nil)
	require.NoError(t, err)
	require.NoError(t, a.Set(0, math.NaN()))
	require.NoError(t, a.Set(1, math.Inf(1)))
	require.NoError(t, a.Set(2, math.Inf(-1)))
	require.NoError(t, a.Set(3, 1.5))
	for i, want := range []string{"NaN", "Inf", "-Inf", "1.5E+00"} {
		test.S(t).ExpectEquals(string(a.AppendText(nil, i)), want)
	}
}

func TestSetConversionError(t *testing.T) {
	a, err := MakeInstance(ColumnMeta{Name: "D", Type: TypeDate}, 1, nil)
	require.NoError(t, err)
	err = a.Set(0, struct{}{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "column D")

	n, err := MakeInstance(ColumnMeta{Name: "N", Type: TypeNumber, Precision: 30}, 1, nil)
	require.NoError(t, err)
	require.Error(t, n.Set(0, "12a"))
}
