package attr

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/actiontech/xtru/driver/common"
)

const (
	binaryFloatWidth  = 15 // -3.4028235E+38
	binaryDoubleWidth = 25 // -2.2250738585072014E-308
)

// floatAttr handles BINARY_FLOAT and BINARY_DOUBLE with the shortest text that reads back
// to the same IEEE754 value.
type floatAttr struct {
	base
	bits  int
	vals  []float64
	nulls []bool
}

func newFloatAttr(meta ColumnMeta, bulk int, bits int) *floatAttr {
	a := &floatAttr{
		base:  base{meta: meta, bulk: bulk},
		bits:  bits,
		vals:  make([]float64, bulk),
		nulls: make([]bool, bulk),
	}
	a.Reset()
	return a
}

func (a *floatAttr) Kind() string {
	if a.bits == 32 {
		return "float"
	}
	return "double"
}

func (a *floatAttr) BufferSize() int { return a.bulk * (a.bits/8 + 1) }

func (a *floatAttr) Width() int {
	if a.bits == 32 {
		return binaryFloatWidth
	}
	return binaryDoubleWidth
}

func (a *floatAttr) Reset() {
	for i := range a.nulls {
		a.nulls[i] = true
	}
}

func (a *floatAttr) Field(d *common.Delimiter) string {
	return fieldClause(a.meta.Name, fmt.Sprintf("FLOAT EXTERNAL(%d)", a.Width()), "", d, "")
}

func (a *floatAttr) Set(slot int, v interface{}) error {
	switch x := v.(type) {
	case nil:
		a.nulls[slot] = true
		return nil
	case float64:
		a.vals[slot] = x
	case float32:
		a.vals[slot] = float64(x)
	case int64:
		a.vals[slot] = float64(x)
	case string:
		f, err := strconv.ParseFloat(x, a.bits)
		if err != nil {
			return convError(&a.meta, v)
		}
		a.vals[slot] = f
	default:
		return convError(&a.meta, v)
	}
	a.nulls[slot] = false
	return nil
}

func (a *floatAttr) IsNull(slot int) bool { return a.nulls[slot] }

func (a *floatAttr) AppendText(dst []byte, slot int) []byte {
	f := a.vals[slot]
	switch {
	case math.IsNaN(f):
		return append(dst, "NaN"...)
	case math.IsInf(f, 1):
		return append(dst, "Inf"...)
	case math.IsInf(f, -1):
		return append(dst, "-Inf"...)
	}
	return strconv.AppendFloat(dst, f, 'E', -1, a.bits)
}

func (a *floatAttr) Value(slot int) interface{} {
	if a.nulls[slot] {
		return nil
	}
	if a.bits == 32 {
		return float32(a.vals[slot])
	}
	return a.vals[slot]
}

func (a *floatAttr) Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	a.render(a, n, rows, d, trailing)
}
