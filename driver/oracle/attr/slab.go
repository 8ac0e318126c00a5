package attr

// slab is a fixed stride byte arena holding one value per row of a batch.
// It is allocated once for the statement and reused by every batch.
type slab struct {
	stride int
	data   []byte
	lens   []int
	nulls  []bool
	// values longer than the stride, e.g. multi-byte text in a CHAR semantics column
	over map[int][]byte
}

func newSlab(bulk int, stride int) *slab {
	if stride < 1 {
		stride = 1
	}
	s := &slab{
		stride: stride,
		data:   make([]byte, bulk*stride),
		lens:   make([]int, bulk),
		nulls:  make([]bool, bulk),
	}
	s.reset()
	return s
}

func (s *slab) reset() {
	for i := range s.nulls {
		s.nulls[i] = true
		s.lens[i] = 0
	}
	if len(s.over) > 0 {
		s.over = nil
	}
}

func (s *slab) setNull(i int) {
	s.nulls[i] = true
	s.lens[i] = 0
	delete(s.over, i)
}

func (s *slab) set(i int, b []byte) {
	s.nulls[i] = false
	if len(b) > s.stride {
		if s.over == nil {
			s.over = make(map[int][]byte)
		}
		s.over[i] = append([]byte(nil), b...)
		s.lens[i] = len(b)
		return
	}
	delete(s.over, i)
	s.lens[i] = copy(s.data[i*s.stride:(i+1)*s.stride], b)
}

func (s *slab) setString(i int, str string) {
	s.nulls[i] = false
	if len(str) > s.stride {
		s.set(i, []byte(str))
		return
	}
	delete(s.over, i)
	s.lens[i] = copy(s.data[i*s.stride:(i+1)*s.stride], str)
}

func (s *slab) get(i int) []byte {
	if b, ok := s.over[i]; ok {
		return b
	}
	off := i * s.stride
	return s.data[off : off+s.lens[i]]
}

func (s *slab) isNull(i int) bool {
	return s.nulls[i]
}

func (s *slab) size() int {
	return len(s.data) + len(s.lens)*8 + len(s.nulls)
}
