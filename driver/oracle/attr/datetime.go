package attr

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/actiontech/xtru/driver/common"
)

type dateKind int

const (
	dateKindDate dateKind = iota
	dateKindTimestamp
	dateKindTimestampTZ
	dateKindTimestampLTZ
)

// dateAttr handles DATE and the three TIMESTAMP kinds.
type dateAttr struct {
	base
	kind  dateKind
	mask  *DateMask
	vals  []time.Time
	nulls []bool
}

func newDateAttr(meta ColumnMeta, bulk int, mask *DateMask, kind dateKind) *dateAttr {
	a := &dateAttr{
		base:  base{meta: meta, bulk: bulk},
		kind:  kind,
		mask:  mask,
		vals:  make([]time.Time, bulk),
		nulls: make([]bool, bulk),
	}
	a.Reset()
	return a
}

func (a *dateAttr) Kind() string {
	switch a.kind {
	case dateKindTimestamp:
		return "timestamp"
	case dateKindTimestampTZ:
		return "timestamp_tz"
	case dateKindTimestampLTZ:
		return "timestamp_ltz"
	default:
		return "date"
	}
}

// size of the OCIDate / OCIDateTime buffers
func (a *dateAttr) BufferSize() int {
	if a.kind == dateKindDate {
		return a.bulk * 8
	}
	return a.bulk * 24
}

func (a *dateAttr) Width() int { return a.mask.Width() }

func (a *dateAttr) Reset() {
	for i := range a.nulls {
		a.nulls[i] = true
	}
}

func (a *dateAttr) Field(d *common.Delimiter) string {
	var typ string
	switch a.kind {
	case dateKindDate:
		typ = fmt.Sprintf("DATE(%d)", len(a.mask.Text()))
	case dateKindTimestamp:
		typ = "TIMESTAMP"
	case dateKindTimestampTZ:
		typ = "TIMESTAMP WITH TIME ZONE"
	case dateKindTimestampLTZ:
		typ = "TIMESTAMP WITH LOCAL TIME ZONE"
	}
	return fieldClause(a.meta.Name, typ, a.mask.Text(), d, "")
}

func (a *dateAttr) Set(slot int, v interface{}) error {
	switch x := v.(type) {
	case nil:
		a.nulls[slot] = true
		return nil
	case time.Time:
		a.vals[slot] = x
	case *time.Time:
		if x == nil {
			a.nulls[slot] = true
			return nil
		}
		a.vals[slot] = *x
	default:
		return convError(&a.meta, v)
	}
	a.nulls[slot] = false
	return nil
}

func (a *dateAttr) IsNull(slot int) bool { return a.nulls[slot] }

func (a *dateAttr) AppendText(dst []byte, slot int) []byte {
	return a.mask.Append(dst, a.vals[slot])
}

func (a *dateAttr) Value(slot int) interface{} {
	if a.nulls[slot] {
		return nil
	}
	return a.vals[slot]
}

func (a *dateAttr) Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	a.render(a, n, rows, d, trailing)
}

const intervalWidth = 32

// intervalAttr handles INTERVAL DAY TO SECOND and INTERVAL YEAR TO MONTH.
// Values are kept as Oracle interval literals, e.g. "+3 04:05:06.000000000" or "+1-02".
type intervalAttr struct {
	base
	buf *slab
}

func newIntervalAttr(meta ColumnMeta, bulk int) *intervalAttr {
	return &intervalAttr{
		base: base{meta: meta, bulk: bulk},
		buf:  newSlab(bulk, intervalWidth),
	}
}

func (a *intervalAttr) Kind() string {
	if a.meta.Type == TypeIntervalYM {
		return "interval_ym"
	}
	return "interval_ds"
}

func (a *intervalAttr) BufferSize() int { return a.buf.size() }
func (a *intervalAttr) Width() int      { return intervalWidth }
func (a *intervalAttr) Reset()          { a.buf.reset() }

func (a *intervalAttr) Field(d *common.Delimiter) string {
	typ := "INTERVAL DAY TO SECOND"
	if a.meta.Type == TypeIntervalYM {
		typ = "INTERVAL YEAR TO MONTH"
	}
	return fieldClause(a.meta.Name, typ, "", d, "")
}

func (a *intervalAttr) Set(slot int, v interface{}) error {
	switch x := v.(type) {
	case nil:
		a.buf.setNull(slot)
	case time.Duration:
		a.scratch = AppendIntervalDS(a.scratch[:0], x)
		a.buf.set(slot, a.scratch)
	case int64:
		if a.meta.Type == TypeIntervalYM {
			a.scratch = AppendIntervalYM(a.scratch[:0], x)
		} else {
			a.scratch = AppendIntervalDS(a.scratch[:0], time.Duration(x))
		}
		a.buf.set(slot, a.scratch)
	case string:
		a.buf.setString(slot, x)
	case []byte:
		a.buf.set(slot, x)
	default:
		return convError(&a.meta, v)
	}
	return nil
}

func (a *intervalAttr) IsNull(slot int) bool { return a.buf.isNull(slot) }

func (a *intervalAttr) AppendText(dst []byte, slot int) []byte {
	return append(dst, a.buf.get(slot)...)
}

func (a *intervalAttr) Value(slot int) interface{} {
	if a.buf.isNull(slot) {
		return nil
	}
	return string(a.buf.get(slot))
}

func (a *intervalAttr) Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	a.render(a, n, rows, d, trailing)
}

// AppendIntervalDS renders a duration as a DAY TO SECOND literal.
func AppendIntervalDS(dst []byte, d time.Duration) []byte {
	if d < 0 {
		dst = append(dst, '-')
		d = -d
	} else {
		dst = append(dst, '+')
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	dst = strconv.AppendInt(dst, int64(days), 10)
	dst = append(dst, ' ')
	dst = appendPadded(dst, int(d/time.Hour), 2)
	dst = append(dst, ':')
	dst = appendPadded(dst, int(d%time.Hour/time.Minute), 2)
	dst = append(dst, ':')
	dst = appendPadded(dst, int(d%time.Minute/time.Second), 2)
	dst = append(dst, '.')
	return appendPadded(dst, int(d%time.Second), 9)
}

// AppendIntervalYM renders a number of months as a YEAR TO MONTH literal.
func AppendIntervalYM(dst []byte, months int64) []byte {
	if months < 0 {
		dst = append(dst, '-')
		months = -months
	} else {
		dst = append(dst, '+')
	}
	dst = strconv.AppendInt(dst, months/12, 10)
	dst = append(dst, '-')
	return appendPadded(dst, int(months%12), 2)
}
