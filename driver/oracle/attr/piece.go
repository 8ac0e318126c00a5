package attr

import (
	"io"

	"github.com/pkg/errors"
)

// PieceVector receives LOB and LONG values piece by piece, one growable buffer per
// row of the batch. The length of a piece is only known after the driver returned
// it, so the latest piece of every row stays pending until it is committed, either
// by asking for the next buffer or by TerminateLatestPiece.
type PieceVector struct {
	pieceSize int
	bufs      [][]byte
	total     []int // committed bytes
	latest    []int // length of the pending piece
	pieces    []int
	pending   []bool
}

func NewPieceVector(bulk int, pieceSize int) *PieceVector {
	if pieceSize < 1 {
		pieceSize = 1
	}
	return &PieceVector{
		pieceSize: pieceSize,
		bufs:      make([][]byte, bulk),
		total:     make([]int, bulk),
		latest:    make([]int, bulk),
		pieces:    make([]int, bulk),
		pending:   make([]bool, bulk),
	}
}

// NextBuffer commits the pending piece of slot and returns the buffer for the next one.
func (p *PieceVector) NextBuffer(slot int) []byte {
	p.commit(slot)
	need := p.total[slot] + p.pieceSize
	if cap(p.bufs[slot]) < need {
		nb := make([]byte, p.total[slot], growCap(cap(p.bufs[slot]), need))
		copy(nb, p.bufs[slot][:p.total[slot]])
		p.bufs[slot] = nb
	}
	p.pieces[slot]++
	p.pending[slot] = true
	p.latest[slot] = 0
	return p.bufs[slot][p.total[slot]:need]
}

// SetLatest records how many bytes the driver put into the pending piece.
func (p *PieceVector) SetLatest(slot int, n int) {
	if n > p.pieceSize {
		n = p.pieceSize
	}
	p.latest[slot] = n
}

func (p *PieceVector) commit(slot int) {
	if !p.pending[slot] {
		return
	}
	p.total[slot] += p.latest[slot]
	p.bufs[slot] = p.bufs[slot][:p.total[slot]]
	p.latest[slot] = 0
	p.pending[slot] = false
}

// TerminateLatestPiece commits the pending piece of every row. Calling it again
// before new pieces arrive changes nothing.
func (p *PieceVector) TerminateLatestPiece() {
	for i := range p.pending {
		p.commit(i)
	}
}

// Fill reads r to its end into slot.
func (p *PieceVector) Fill(slot int, r io.Reader) error {
	for {
		buf := p.NextBuffer(slot)
		n, err := io.ReadFull(r, buf)
		p.SetLatest(slot, n)
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			return nil
		default:
			return errors.Wrap(err, "read lob piece")
		}
	}
}

// Append delivers an already materialized value as a sequence of pieces.
func (p *PieceVector) Append(slot int, b []byte) {
	for {
		buf := p.NextBuffer(slot)
		n := copy(buf, b)
		p.SetLatest(slot, n)
		b = b[n:]
		if len(b) == 0 {
			return
		}
	}
}

// IsNull reports whether no piece was ever delivered for slot.
func (p *PieceVector) IsNull(slot int) bool {
	return p.pieces[slot] == 0
}

// Bytes is the committed value of slot.
func (p *PieceVector) Bytes(slot int) []byte {
	return p.bufs[slot][:p.total[slot]]
}

func (p *PieceVector) Len(slot int) int {
	return p.total[slot]
}

func (p *PieceVector) Pieces(slot int) int {
	return p.pieces[slot]
}

// Reset forgets the values of the previous batch and keeps the buffers.
func (p *PieceVector) Reset() {
	for i := range p.bufs {
		p.bufs[i] = p.bufs[i][:0]
		p.total[i] = 0
		p.latest[i] = 0
		p.pieces[i] = 0
		p.pending[i] = false
	}
}

func (p *PieceVector) Size() int {
	n := 0
	for _, b := range p.bufs {
		n += cap(b)
	}
	return n
}

func growCap(old int, need int) int {
	c := old * 2
	if c < need {
		c = need
	}
	return c
}
