package attr

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDeriveNumberMask(t *testing.T) {
	cases := []struct {
		name        string
		p, s        int
		floating    bool
		floatFormat string
		text        string
		width       int
	}{
		{"fraction", 5, 2, false, "", "S990.99", 7},
		{"integer", 10, 0, false, "", "S9999999990", 11},
		{"leading zero fraction", 3, 5, false, "", "S0.99999", 8},
		{"equal", 4, 4, false, "", "S0.9999", 7},
		{"tiny fraction", 2, 15, false, "", "S9.9EEEE", 9},
		{"fraction at threshold", 2, 12, false, "", "S0.999999999999", 15},
		{"trailing zeros", 5, -3, false, "", "S99999990", 9},
		{"trailing zeros at threshold", 3, -10, false, "", "S" + repeat9(12) + "0", 14},
		{"huge integer", 7, -11, false, "", "S9.999999EEEE", 14},
		{"unconstrained", 0, 0, true, "", "S9." + repeat9(38) + "EEEE", 46},
		{"unconstrained configured", 0, FloatingScale, true, "FM9.999EEEE", "S9.999EEEE", 11},
		{"float 126", 126, FloatingScale, true, "", "S9." + repeat9(37) + "EEEE", 45},
		{"float 1", 1, FloatingScale, true, "", "S9EEEE", 7},
	}
	for _, c := range cases {
		m, err := DeriveNumberMask(c.p, c.s, c.floating, c.floatFormat)
		require.NoError(t, err, c.name)
		require.Equal(t, c.text, m.Text(), c.name)
		require.Equal(t, c.width, m.Width(), c.name)
	}
}

func repeat9(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '9'
	}
	return string(b)
}

func TestParseNumberMask(t *testing.T) {
	m, err := ParseNumberMask("S99990.99")
	require.NoError(t, err)
	require.Equal(t, NumberMask{IntDigits: 5, Scale: 2}, m)

	_, err = ParseNumberMask("9.9.9")
	require.Error(t, err)
	_, err = ParseNumberMask("EEEE")
	require.Error(t, err)
}

func TestNumberMask_Append(t *testing.T) {
	fixed := NumberMask{IntDigits: 3, Scale: 2}
	sci39 := scientificMask(39)
	sci2 := scientificMask(2)
	cases := []struct {
		mask NumberMask
		in   string
		want string
	}{
		{fixed, "12.5", "12.50"},
		{fixed, "-0.5", "-0.50"},
		{fixed, "999.994", "999.99"},
		{fixed, "0", "0.00"},
		{NumberMask{IntDigits: 8}, "-12000", "-12000"},
		{sci39, "12345.678", "1.2345678E+04"},
		{sci39, "0", "0E+00"},
		{sci39, "-0.000123", "-1.23E-04"},
		{sci39, "1E+125", "1E+125"},
		{sci39, "1E-130", "1E-130"},
		{sci2, "9.96", "1E+01"},
		{sci2, "123456", "1.2E+05"},
		{sci2, "-0.0155", "-1.6E-02"},
	}
	for _, c := range cases {
		got := string(c.mask.Append(nil, decimal.RequireFromString(c.in)))
		require.Equal(t, c.want, got, c.in)
		require.True(t, len(got) <= c.mask.Width(), c.in)
	}
}

func TestNumberAttr_Floating(t *testing.T) {
	a, err := MakeInstance(ColumnMeta{Name: "N", Type: TypeNumber}, 3, nil)
	require.NoError(t, err)
	require.Equal(t, "number", a.Kind())
	require.NoError(t, a.Set(0, "3.14159"))
	require.NoError(t, a.Set(1, int64(-42)))
	require.NoError(t, a.Set(2, nil))
	require.Equal(t, "3.14159E+00", string(a.AppendText(nil, 0)))
	require.Equal(t, "-4.2E+01", string(a.AppendText(nil, 1)))
	require.True(t, a.IsNull(2))

	c, err := MakeInstance(ColumnMeta{Name: "N", Type: TypeNumber}, 1, &Options{FloatFormat: "9.99EEEE"})
	require.NoError(t, err)
	require.NoError(t, c.Set(0, "3.14159"))
	require.Equal(t, "3.14E+00", string(c.AppendText(nil, 0)))
}
