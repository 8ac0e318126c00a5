package attr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/actiontech/xtru/driver/common"
)

type lobKind int

const (
	lobChar lobKind = iota
	lobRaw
)

const bfileWidth = 30 + 1 + 255 // directory alias, '/', file name

// lobAttr handles CLOB, NCLOB, BLOB, LONG, LONG RAW and JSON. Values arrive
// piecewise into a PieceVector; raw values are rendered as hex.
type lobAttr struct {
	base
	kind     lobKind
	lobWidth int
	pieces   *PieceVector
}

func newLobAttr(meta ColumnMeta, bulk int, o *Options, kind lobKind) *lobAttr {
	return &lobAttr{
		base:     base{meta: meta, bulk: bulk},
		kind:     kind,
		lobWidth: o.LobWidth,
		pieces:   NewPieceVector(bulk, o.LobPieceSize),
	}
}

func (a *lobAttr) Kind() string {
	if a.kind == lobRaw {
		return "raw_lob"
	}
	return "char_lob"
}

func (a *lobAttr) Pieces() *PieceVector { return a.pieces }
func (a *lobAttr) Reset()               { a.pieces.Reset() }

// BufferSize is at least one piece per row; buffers grow with the values.
func (a *lobAttr) BufferSize() int {
	n := a.pieces.Size()
	if min := a.bulk * a.pieces.pieceSize; n < min {
		n = min
	}
	return n
}

func (a *lobAttr) Width() int {
	if a.kind == lobRaw {
		return 2 * a.lobWidth
	}
	return a.lobWidth
}

func (a *lobAttr) Field(d *common.Delimiter) string {
	return fieldClause(a.meta.Name, fmt.Sprintf("CHAR(%d)", a.Width()), "", d, "")
}

func (a *lobAttr) Set(slot int, v interface{}) error {
	switch x := v.(type) {
	case nil:
		return nil
	case io.Reader:
		return a.pieces.Fill(slot, x)
	case []byte:
		a.pieces.Append(slot, x)
	case string:
		a.pieces.Append(slot, []byte(x))
	default:
		b, ok := textOf(v)
		if !ok {
			return convError(&a.meta, v)
		}
		a.pieces.Append(slot, b)
	}
	return nil
}

func (a *lobAttr) IsNull(slot int) bool { return a.pieces.IsNull(slot) }

func (a *lobAttr) AppendText(dst []byte, slot int) []byte {
	if a.kind == lobRaw {
		return appendHexUpper(dst, a.pieces.Bytes(slot))
	}
	return append(dst, a.pieces.Bytes(slot)...)
}

func (a *lobAttr) Value(slot int) interface{} {
	a.pieces.TerminateLatestPiece()
	if a.pieces.IsNull(slot) {
		return nil
	}
	if a.kind == lobRaw {
		return append([]byte(nil), a.pieces.Bytes(slot)...)
	}
	return string(a.pieces.Bytes(slot))
}

func (a *lobAttr) Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	// the length of the last piece of each row is only final now
	a.pieces.TerminateLatestPiece()
	a.render(a, n, rows, d, trailing)
}

// bfileAttr renders a BFILE locator as "DIRECTORY/FILE" and reloads it with BFILENAME.
type bfileAttr struct {
	base
	buf *slab
}

func newBfileAttr(meta ColumnMeta, bulk int) *bfileAttr {
	return &bfileAttr{
		base: base{meta: meta, bulk: bulk},
		buf:  newSlab(bulk, bfileWidth),
	}
}

func (a *bfileAttr) Kind() string    { return "bfile" }
func (a *bfileAttr) BufferSize() int { return a.buf.size() }
func (a *bfileAttr) Width() int      { return bfileWidth }
func (a *bfileAttr) Reset()          { a.buf.reset() }

func (a *bfileAttr) Field(d *common.Delimiter) string {
	col := ":" + a.meta.Name
	expr := fmt.Sprintf("BFILENAME(SUBSTR(%[1]v,1,INSTR(%[1]v,'/')-1),SUBSTR(%[1]v,INSTR(%[1]v,'/')+1))", col)
	return fieldClause(a.meta.Name, fmt.Sprintf("CHAR(%d)", bfileWidth), "", d, expr)
}

func (a *bfileAttr) Set(slot int, v interface{}) error {
	if v == nil {
		a.buf.setNull(slot)
		return nil
	}
	b, ok := textOf(v)
	if !ok {
		return convError(&a.meta, v)
	}
	a.buf.set(slot, b)
	return nil
}

func (a *bfileAttr) IsNull(slot int) bool { return a.buf.isNull(slot) }

func (a *bfileAttr) AppendText(dst []byte, slot int) []byte {
	return append(dst, a.buf.get(slot)...)
}

func (a *bfileAttr) Value(slot int) interface{} {
	if a.buf.isNull(slot) {
		return nil
	}
	return string(a.buf.get(slot))
}

func (a *bfileAttr) Render(n int, rows []*bytes.Buffer, d *common.Delimiter, trailing bool) {
	a.render(a, n, rows, d, trailing)
}
