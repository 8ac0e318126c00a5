package attr

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/actiontech/xtru/driver/common"
	"github.com/shopspring/decimal"
)

// size of an OCINumber
const ociNumberSize = 22

// fixedNumberAttr is the fast path for NUMBER(p<=15, 0<=s<=p). The session converts
// the value to text (NLS_NUMERIC_CHARACTERS '.,'), so the codec only keeps the text.
type fixedNumberAttr struct {
	base
	width int
	buf   *slab
}

func newFixedNumberAttr(meta ColumnMeta, bulk int) *fixedNumberAttr {
	// sign, decimal point and leading zero
	w := meta.Precision + 3
	return &fixedNumberAttr{
		base:  base{meta: meta, bulk: bulk},
		width: w,
		buf:   newSlab(bulk, w),
	}
}

func (a *fixedNumberAttr) Kind() string    { return "fixed_number" }
func (a *fixedNumberAttr) BufferSize() int { return a.buf.size() }
func (a *fixedNumberAttr) Width() int      { return a.width }
func (a *fixedNumberAttr) Reset()          { a.buf.reset() }

func (a *fixedNumberAttr) Field(d *common.Delimiter) string {
	return fieldClause(a.meta.Name, fmt.Sprintf("DECIMAL EXTERNAL(%d)", a.width), "", d, "")
}

func (a *fixedNumberAttr) Set(slot int, v interface{}) error {
	switch x := v.(type) {
	case nil:
		a.buf.setNull(slot)
	case string:
		a.buf.setString(slot, strings.TrimSpace(x))
	case int64:
		a.scratch = strconv.AppendInt(a.scratch[:0], x, 10)
		a.buf.set(slot, a.scratch)
	case float64:
		a.scratch = strconv.AppendFloat(a.scratch[:0], x, 'f', -1, 64)
		a.buf.set(slot, a.scratch)
	case decimal.Decimal:
		a.buf.setString(slot, x.String())
	default:
		b, ok := textOf(v)
		if !ok {
			return convError(&a.meta, v)
		}
		a.buf.set(slot, bytes.TrimSpace(b))
	}
	return nil
}

func (a *fixedNumberAttr) IsNull(slot int) bool { return a.buf.isNull(slot) }

func (a *fixedNumberAttr) AppendText(dst []byte, slot int) []byte {
	return append(dst, a.buf.get(slot)...)
}

func (a *fixedNumberAttr) Value(slot int) interface{} {
	if a.buf.isNull(slot) {
		return nil
	}
	return string(a.buf.get(slot))
}

func (a *fixedNumberAttr) Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	a.render(a, n, rows, d, trailing)
}

// numberAttr is the arbitrary precision path. Values are kept as decimals and
// rendered with the mask derived from precision and scale.
type numberAttr struct {
	base
	mask  NumberMask
	vals  []decimal.Decimal
	nulls []bool
}

func newNumberAttr(meta ColumnMeta, bulk int, mask NumberMask) *numberAttr {
	a := &numberAttr{
		base:  base{meta: meta, bulk: bulk},
		mask:  mask,
		vals:  make([]decimal.Decimal, bulk),
		nulls: make([]bool, bulk),
	}
	a.Reset()
	return a
}

func (a *numberAttr) Kind() string     { return "number" }
func (a *numberAttr) BufferSize() int  { return a.bulk * (ociNumberSize + 1) }
func (a *numberAttr) Width() int       { return a.mask.Width() }
func (a *numberAttr) Mask() NumberMask { return a.mask }

func (a *numberAttr) Reset() {
	for i := range a.nulls {
		a.nulls[i] = true
	}
}

func (a *numberAttr) Field(d *common.Delimiter) string {
	typ := "DECIMAL EXTERNAL"
	if a.mask.Scientific {
		typ = "FLOAT EXTERNAL"
	}
	return fieldClause(a.meta.Name, fmt.Sprintf("%v(%d)", typ, a.Width()), "", d, "")
}

func (a *numberAttr) Set(slot int, v interface{}) error {
	var err error
	switch x := v.(type) {
	case nil:
		a.nulls[slot] = true
		return nil
	case decimal.Decimal:
		a.vals[slot] = x
	case int64:
		a.vals[slot] = decimal.NewFromInt(x)
	case float64:
		a.vals[slot] = decimal.NewFromFloat(x)
	case float32:
		a.vals[slot] = decimal.NewFromFloat32(x)
	case string:
		a.vals[slot], err = decimal.NewFromString(strings.TrimSpace(x))
	default:
		b, ok := textOf(v)
		if !ok {
			return convError(&a.meta, v)
		}
		a.vals[slot], err = decimal.NewFromString(string(bytes.TrimSpace(b)))
	}
	if err != nil {
		return convError(&a.meta, v)
	}
	a.nulls[slot] = false
	return nil
}

func (a *numberAttr) IsNull(slot int) bool { return a.nulls[slot] }

func (a *numberAttr) AppendText(dst []byte, slot int) []byte {
	return a.mask.Append(dst, a.vals[slot])
}

func (a *numberAttr) Value(slot int) interface{} {
	if a.nulls[slot] {
		return nil
	}
	return a.vals[slot].String()
}

func (a *numberAttr) Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	a.render(a, n, rows, d, trailing)
}
