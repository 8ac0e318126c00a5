package attr

import (
	"strconv"
	"strings"
	"time"

	"github.com/actiontech/xtru/driver/common"
)

type dateElem int

const (
	elemLiteral dateElem = iota
	elemYYYY
	elemYY
	elemMM
	elemMON
	elemDD
	elemDDD
	elemHH24
	elemHH12
	elemMI
	elemSS
	elemSSSSS
	elemFF
	elemAM
	elemTZH
	elemTZM
	elemTZR
)

type dateToken struct {
	elem    dateElem
	literal string
	digits  int // FF precision
}

// DateMask is a compiled Oracle datetime format model.
type DateMask struct {
	text   string
	tokens []dateToken
	width  int
}

// the order matters: longer elements first
var dateElems = []struct {
	name  string
	elem  dateElem
	width int
}{
	{"SSSSS", elemSSSSS, 5},
	{"YYYY", elemYYYY, 4},
	{"HH24", elemHH24, 2},
	{"HH12", elemHH12, 2},
	{"A.M.", elemAM, 4},
	{"P.M.", elemAM, 4},
	{"MON", elemMON, 3},
	{"DDD", elemDDD, 3},
	{"TZH", elemTZH, 3},
	{"TZM", elemTZM, 2},
	{"TZR", elemTZR, 6},
	{"YY", elemYY, 2},
	{"MM", elemMM, 2},
	{"DD", elemDD, 2},
	{"HH", elemHH12, 2},
	{"MI", elemMI, 2},
	{"SS", elemSS, 2},
	{"AM", elemAM, 2},
	{"PM", elemAM, 2},
}

// ParseDateMask compiles an Oracle datetime format model such as "YYYY-MM-DD HH24:MI:SS.FF6".
func ParseDateMask(param string, text string) (*DateMask, error) {
	m := &DateMask{text: text}
	upper := strings.ToUpper(text)
	for i := 0; i < len(upper); {
		c := upper[i]
		switch {
		case c == '"':
			j := strings.IndexByte(upper[i+1:], '"')
			if j < 0 {
				return nil, common.NewInvalidParamValue(param, text, "unterminated quoted text")
			}
			lit := text[i+1 : i+1+j]
			m.addLiteral(lit)
			i += j + 2
			continue
		case strings.HasPrefix(upper[i:], "FF"):
			digits := 9
			i += 2
			if i < len(upper) && upper[i] >= '1' && upper[i] <= '9' {
				digits = int(upper[i] - '0')
				i++
			}
			m.tokens = append(m.tokens, dateToken{elem: elemFF, digits: digits})
			m.width += digits
			continue
		case c >= 'A' && c <= 'Z':
			found := false
			for _, e := range dateElems {
				if strings.HasPrefix(upper[i:], e.name) {
					m.tokens = append(m.tokens, dateToken{elem: e.elem, literal: e.name})
					m.width += e.width
					i += len(e.name)
					found = true
					break
				}
			}
			if !found {
				return nil, common.NewInvalidParamValue(param, text, "unsupported element at "+text[i:])
			}
			continue
		default:
			m.addLiteral(string(c))
			i++
		}
	}
	return m, nil
}

func (m *DateMask) addLiteral(s string) {
	if n := len(m.tokens); n > 0 && m.tokens[n-1].elem == elemLiteral {
		m.tokens[n-1].literal += s
	} else {
		m.tokens = append(m.tokens, dateToken{elem: elemLiteral, literal: s})
	}
	m.width += len(s)
}

func (m *DateMask) Text() string {
	return m.text
}

// Width is the longest text the mask produces.
func (m *DateMask) Width() int {
	return m.width
}

var monthAbbr = [...]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

func appendPadded(dst []byte, v int, width int) []byte {
	if v < 0 {
		dst = append(dst, '-')
		v = -v
	}
	s := strconv.Itoa(v)
	for i := len(s); i < width; i++ {
		dst = append(dst, '0')
	}
	return append(dst, s...)
}

// Append renders t with the mask.
func (m *DateMask) Append(dst []byte, t time.Time) []byte {
	for _, tok := range m.tokens {
		switch tok.elem {
		case elemLiteral:
			dst = append(dst, tok.literal...)
		case elemYYYY:
			dst = appendPadded(dst, t.Year(), 4)
		case elemYY:
			dst = appendPadded(dst, t.Year()%100, 2)
		case elemMM:
			dst = appendPadded(dst, int(t.Month()), 2)
		case elemMON:
			dst = append(dst, monthAbbr[t.Month()-1]...)
		case elemDD:
			dst = appendPadded(dst, t.Day(), 2)
		case elemDDD:
			dst = appendPadded(dst, t.YearDay(), 3)
		case elemHH24:
			dst = appendPadded(dst, t.Hour(), 2)
		case elemHH12:
			h := t.Hour() % 12
			if h == 0 {
				h = 12
			}
			dst = appendPadded(dst, h, 2)
		case elemMI:
			dst = appendPadded(dst, t.Minute(), 2)
		case elemSS:
			dst = appendPadded(dst, t.Second(), 2)
		case elemSSSSS:
			dst = appendPadded(dst, t.Hour()*3600+t.Minute()*60+t.Second(), 5)
		case elemFF:
			ns := t.Nanosecond()
			for i := tok.digits; i < 9; i++ {
				ns /= 10
			}
			dst = appendPadded(dst, ns, tok.digits)
		case elemAM:
			pm := t.Hour() >= 12
			switch {
			case strings.Contains(tok.literal, "."):
				if pm {
					dst = append(dst, "P.M."...)
				} else {
					dst = append(dst, "A.M."...)
				}
			case pm:
				dst = append(dst, "PM"...)
			default:
				dst = append(dst, "AM"...)
			}
		case elemTZH, elemTZM, elemTZR:
			_, off := t.Zone()
			sign := byte('+')
			if off < 0 {
				sign = '-'
				off = -off
			}
			switch tok.elem {
			case elemTZH:
				dst = append(dst, sign)
				dst = appendPadded(dst, off/3600, 2)
			case elemTZM:
				dst = appendPadded(dst, off%3600/60, 2)
			default:
				dst = append(dst, sign)
				dst = appendPadded(dst, off/3600, 2)
				dst = append(dst, ':')
				dst = appendPadded(dst, off%3600/60, 2)
			}
		}
	}
	return dst
}
