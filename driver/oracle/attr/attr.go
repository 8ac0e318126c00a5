package attr

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"

	"github.com/actiontech/xtru/driver/common"
	"github.com/pkg/errors"
)

// ColumnMeta is what the describe step tells about a result column.
type ColumnMeta struct {
	Name      string
	TypeName  string
	Type      TypeCode
	Width     int
	Precision int
	Scale     int
	Nullable  bool
}

// Floating reports whether a NUMBER column is FLOAT(n) or unconstrained.
func (m *ColumnMeta) Floating() bool {
	return m.Type == TypeNumber && (m.Scale == FloatingScale || (m.Precision == 0 && m.Scale == 0))
}

// Options are the formatting settings shared by all columns of a statement.
type Options struct {
	DateFormat        string
	TimestampFormat   string
	TimestampTZFormat string
	FloatFormat       string
	LobPieceSize      int
	LobWidth          int
}

func OptionsFromTaskConfig(c *common.UnloadTaskConfig) *Options {
	return &Options{
		DateFormat:        c.DateFormat,
		TimestampFormat:   c.TimestampFormat,
		TimestampTZFormat: c.TimestampTZFormat,
		FloatFormat:       c.FloatFormat,
		LobPieceSize:      c.LobPieceSize,
		LobWidth:          c.LobWidth,
	}
}

func (o *Options) withDefaults() *Options {
	r := Options{}
	if o != nil {
		r = *o
	}
	if r.DateFormat == "" {
		r.DateFormat = common.DefaultDateFormat
	}
	if r.TimestampFormat == "" {
		r.TimestampFormat = common.DefaultTimestampFormat
	}
	if r.TimestampTZFormat == "" {
		r.TimestampTZFormat = common.DefaultTimestampTZFormat
	}
	if r.LobPieceSize <= 0 {
		r.LobPieceSize = common.DefaultLobPieceSize
	}
	if r.LobWidth <= 0 {
		r.LobWidth = common.DefaultLobWidth
	}
	return &r
}

// UnsupportedTypeError is returned by MakeInstance for a column no codec can handle.
type UnsupportedTypeError struct {
	Column   string
	Code     TypeCode
	TypeName string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("column %v: unsupported type %v (code %d)", e.Column, e.TypeName, int(e.Code))
}

func IsUnsupportedType(err error) bool {
	_, ok := errors.Cause(err).(*UnsupportedTypeError)
	return ok
}

// Attr is the fetch contract of one result column. It owns the batch buffers of
// the column for the statement lifetime.
type Attr interface {
	Meta() *ColumnMeta
	// Kind names the codec, e.g. "fixed_number".
	Kind() string
	// BufferSize is the memory held by the batch buffers, in bytes.
	BufferSize() int
	// Width is the longest rendered value.
	Width() int
	// Field renders the control file clause of the column.
	Field(d *common.Delimiter) string

	// Reset prepares the buffers for a new batch.
	Reset()
	// Set stores the value fetched for a row of the batch. nil is NULL.
	Set(slot int, v interface{}) error
	IsNull(slot int) bool
	// AppendText renders a non NULL value.
	AppendText(dst []byte, slot int) []byte
	// Value is the value to bind when copying into another database. nil is NULL.
	Value(slot int) interface{}
	// Render appends the values of the first n rows to their row buffers.
	Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool)
}

type base struct {
	meta    ColumnMeta
	bulk    int
	scratch []byte
}

func (b *base) Meta() *ColumnMeta {
	return &b.meta
}

type textSource interface {
	IsNull(slot int) bool
	AppendText(dst []byte, slot int) []byte
}

func (b *base) render(src textSource, n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	for i := 0; i < n; i++ {
		if src.IsNull(i) {
			d.AppendField(rows[i], nil, true, trailing)
			continue
		}
		b.scratch = src.AppendText(b.scratch[:0], i)
		d.AppendField(rows[i], b.scratch, false, trailing)
	}
}

// fieldClause renders `"NAME" TYPE [mask] [delimiters] [sql]`.
func fieldClause(name string, typ string, mask string, d *common.Delimiter, sqlExpr string) string {
	var sb bytes.Buffer
	sb.WriteString(strconv.Quote(name))
	sb.WriteByte(' ')
	sb.WriteString(typ)
	if mask != "" {
		sb.WriteString(` "`)
		sb.WriteString(mask)
		sb.WriteByte('"')
	}
	if d != nil && d.Enclosure != "" {
		sb.WriteString(" TERMINATED BY ")
		sb.WriteString(common.LoaderString(d.Separator))
		sb.WriteString(" ENCLOSED BY ")
		sb.WriteString(common.LoaderString(d.Enclosure))
	}
	if sqlExpr != "" {
		sb.WriteString(` "`)
		sb.WriteString(sqlExpr)
		sb.WriteByte('"')
	}
	return sb.String()
}

// textOf converts a driver value of a character column.
func textOf(v interface{}) ([]byte, bool) {
	switch x := v.(type) {
	case string:
		return []byte(x), true
	case []byte:
		return x, true
	case fmt.Stringer:
		return []byte(x.String()), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return []byte(rv.String()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(nil, rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.AppendUint(nil, rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.AppendFloat(nil, rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.AppendFloat(nil, rv.Float(), 'f', -1, 64), true
	case reflect.Bool:
		return strconv.AppendBool(nil, rv.Bool()), true
	}
	return nil, false
}

func convError(meta *ColumnMeta, v interface{}) error {
	return errors.Errorf("column %v (%v): cannot convert driver value of type %T", meta.Name, meta.TypeName, v)
}

// UsesFixedDecimal tells whether NUMBER(p, s) takes the fast path, where the
// server converts the value to text.
func UsesFixedDecimal(p int, s int) bool {
	return p >= 1 && p <= 15 && s >= 0 && s <= p
}

// MakeInstance selects the codec of a described column and allocates its buffers for bulk rows.
func MakeInstance(meta ColumnMeta, bulk int, opts *Options) (Attr, error) {
	if bulk < 1 {
		bulk = 1
	}
	o := opts.withDefaults()
	if meta.TypeName == "" {
		meta.TypeName = meta.Type.String()
	}

	switch meta.Type {
	case TypeVarchar2, TypeChar:
		return newStringAttr(meta, bulk, meta.Width), nil
	case TypeRowid, TypeURowid:
		w := meta.Width
		if w < rowidWidth {
			w = rowidWidth
		}
		return newStringAttr(meta, bulk, w), nil
	case TypeBoolean:
		return newBooleanAttr(meta, bulk), nil
	case TypeNumber:
		if !meta.Floating() && UsesFixedDecimal(meta.Precision, meta.Scale) {
			return newFixedNumberAttr(meta, bulk), nil
		}
		mask, err := DeriveNumberMask(meta.Precision, meta.Scale, meta.Floating(), o.FloatFormat)
		if err != nil {
			return nil, err
		}
		return newNumberAttr(meta, bulk, mask), nil
	case TypeBinaryFloat:
		return newFloatAttr(meta, bulk, 32), nil
	case TypeBinaryDouble:
		return newFloatAttr(meta, bulk, 64), nil
	case TypeDate:
		mask, err := ParseDateMask("date_format", o.DateFormat)
		if err != nil {
			return nil, err
		}
		return newDateAttr(meta, bulk, mask, dateKindDate), nil
	case TypeTimestamp, TypeTimestampTZ, TypeTimestampLTZ:
		param, format := "timestamp_format", o.TimestampFormat
		kind := dateKindTimestamp
		switch meta.Type {
		case TypeTimestampTZ:
			param, format = "timestamp_tz_format", o.TimestampTZFormat
			kind = dateKindTimestampTZ
		case TypeTimestampLTZ:
			kind = dateKindTimestampLTZ
		}
		mask, err := ParseDateMask(param, format)
		if err != nil {
			return nil, err
		}
		return newDateAttr(meta, bulk, mask, kind), nil
	case TypeIntervalDS, TypeIntervalYM:
		return newIntervalAttr(meta, bulk), nil
	case TypeRaw:
		return newRawAttr(meta, bulk), nil
	case TypeLong, TypeClob, TypeJSON:
		return newLobAttr(meta, bulk, o, lobChar), nil
	case TypeLongRaw, TypeBlob:
		return newLobAttr(meta, bulk, o, lobRaw), nil
	case TypeBfile:
		return newBfileAttr(meta, bulk), nil
	default:
		code := meta.Type
		if code == TypeUnknown {
			if c, ok := otherTypeCode(meta.TypeName); ok {
				code = c
			}
		}
		return nil, &UnsupportedTypeError{Column: meta.Name, Code: code, TypeName: meta.TypeName}
	}
}
