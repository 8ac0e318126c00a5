package attr

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/actiontech/xtru/driver/common"
)

const (
	rowidWidth   = 18
	booleanWidth = 5
)

// stringAttr handles VARCHAR2, CHAR and ROWID columns.
type stringAttr struct {
	base
	width int
	buf   *slab
}

func newStringAttr(meta ColumnMeta, bulk int, width int) *stringAttr {
	if width < 1 {
		width = 1
	}
	return &stringAttr{
		base:  base{meta: meta, bulk: bulk},
		width: width,
		buf:   newSlab(bulk, width),
	}
}

// NewStringAttr is a user defined character column of the given width.
func NewStringAttr(name string, width int, bulk int) Attr {
	return newStringAttr(ColumnMeta{Name: name, Type: TypeVarchar2, TypeName: "VARCHAR2", Width: width}, bulk, width)
}

func (a *stringAttr) Kind() string    { return "string" }
func (a *stringAttr) BufferSize() int { return a.buf.size() }
func (a *stringAttr) Width() int      { return a.width }
func (a *stringAttr) Reset()          { a.buf.reset() }

func (a *stringAttr) Field(d *common.Delimiter) string {
	return fieldClause(a.meta.Name, fmt.Sprintf("CHAR(%d)", a.width), "", d, "")
}

func (a *stringAttr) Set(slot int, v interface{}) error {
	if v == nil {
		a.buf.setNull(slot)
		return nil
	}
	if s, ok := v.(string); ok {
		a.buf.setString(slot, s)
		return nil
	}
	b, ok := textOf(v)
	if !ok {
		return convError(&a.meta, v)
	}
	a.buf.set(slot, b)
	return nil
}

func (a *stringAttr) IsNull(slot int) bool { return a.buf.isNull(slot) }

func (a *stringAttr) AppendText(dst []byte, slot int) []byte {
	return append(dst, a.buf.get(slot)...)
}

func (a *stringAttr) Value(slot int) interface{} {
	if a.buf.isNull(slot) {
		return nil
	}
	return string(a.buf.get(slot))
}

func (a *stringAttr) Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	a.render(a, n, rows, d, trailing)
}

// booleanAttr renders PL/SQL and 23c BOOLEAN as TRUE/FALSE.
type booleanAttr struct {
	base
	vals  []bool
	nulls []bool
}

func newBooleanAttr(meta ColumnMeta, bulk int) *booleanAttr {
	a := &booleanAttr{
		base:  base{meta: meta, bulk: bulk},
		vals:  make([]bool, bulk),
		nulls: make([]bool, bulk),
	}
	a.Reset()
	return a
}

func (a *booleanAttr) Kind() string    { return "boolean" }
func (a *booleanAttr) BufferSize() int { return 2 * a.bulk }
func (a *booleanAttr) Width() int      { return booleanWidth }

func (a *booleanAttr) Reset() {
	for i := range a.nulls {
		a.nulls[i] = true
	}
}

func (a *booleanAttr) Field(d *common.Delimiter) string {
	return fieldClause(a.meta.Name, fmt.Sprintf("CHAR(%d)", booleanWidth), "", d, "")
}

func (a *booleanAttr) Set(slot int, v interface{}) error {
	switch x := v.(type) {
	case nil:
		a.nulls[slot] = true
		return nil
	case bool:
		a.vals[slot] = x
	case int64:
		a.vals[slot] = x != 0
	case string:
		a.vals[slot] = x == "1" || x == "TRUE" || x == "true"
	default:
		return convError(&a.meta, v)
	}
	a.nulls[slot] = false
	return nil
}

func (a *booleanAttr) IsNull(slot int) bool { return a.nulls[slot] }

func (a *booleanAttr) AppendText(dst []byte, slot int) []byte {
	if a.vals[slot] {
		return append(dst, "TRUE"...)
	}
	return append(dst, "FALSE"...)
}

func (a *booleanAttr) Value(slot int) interface{} {
	if a.nulls[slot] {
		return nil
	}
	return a.vals[slot]
}

func (a *booleanAttr) Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	a.render(a, n, rows, d, trailing)
}

// rawAttr holds RAW bytes, rendered as upper case hex.
type rawAttr struct {
	base
	buf *slab
}

func newRawAttr(meta ColumnMeta, bulk int) *rawAttr {
	w := meta.Width
	if w < 1 {
		w = 2000
	}
	meta.Width = w
	return &rawAttr{
		base: base{meta: meta, bulk: bulk},
		buf:  newSlab(bulk, w),
	}
}

func (a *rawAttr) Kind() string    { return "raw" }
func (a *rawAttr) BufferSize() int { return a.buf.size() }
func (a *rawAttr) Width() int      { return 2 * a.meta.Width }
func (a *rawAttr) Reset()          { a.buf.reset() }

func (a *rawAttr) Field(d *common.Delimiter) string {
	return fieldClause(a.meta.Name, fmt.Sprintf("CHAR(%d)", a.Width()), "", d, "")
}

func (a *rawAttr) Set(slot int, v interface{}) error {
	switch x := v.(type) {
	case nil:
		a.buf.setNull(slot)
	case []byte:
		a.buf.set(slot, x)
	case string:
		// already hex encoded by the driver
		b, err := hex.DecodeString(x)
		if err != nil {
			return convError(&a.meta, v)
		}
		a.buf.set(slot, b)
	default:
		return convError(&a.meta, v)
	}
	return nil
}

func (a *rawAttr) IsNull(slot int) bool { return a.buf.isNull(slot) }

func (a *rawAttr) AppendText(dst []byte, slot int) []byte {
	return appendHexUpper(dst, a.buf.get(slot))
}

func (a *rawAttr) Value(slot int) interface{} {
	if a.buf.isNull(slot) {
		return nil
	}
	return append([]byte(nil), a.buf.get(slot)...)
}

func (a *rawAttr) Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	a.render(a, n, rows, d, trailing)
}

const hexUpper = "0123456789ABCDEF"

func appendHexUpper(dst []byte, b []byte) []byte {
	for _, c := range b {
		dst = append(dst, hexUpper[c>>4], hexUpper[c&0x0f])
	}
	return dst
}
