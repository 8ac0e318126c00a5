package attr

import (
	"math"
	"strconv"
	"strings"

	"github.com/actiontech/xtru/driver/common"
	"github.com/shopspring/decimal"
)

const (
	// FloatingScale is the scale reported for FLOAT(n) and unconstrained NUMBER.
	FloatingScale = -127

	defaultFloatDigits = 39
	maxExponentWidth   = 5 // E+125
	scientificGap      = 10
)

// NumberMask is the text layout of an arbitrary precision number.
type NumberMask struct {
	Scientific bool
	// Digits is the number of significant digits of a scientific mask.
	Digits int
	// IntDigits and Scale shape a fixed point mask.
	IntDigits int
	Scale     int
}

func scientificMask(digits int) NumberMask {
	if digits < 1 {
		digits = 1
	}
	return NumberMask{Scientific: true, Digits: digits}
}

// DeriveNumberMask computes the mask of a NUMBER(p, s) column. floatFormat is used for
// unconstrained numbers and may be empty.
func DeriveNumberMask(p int, s int, floating bool, floatFormat string) (NumberMask, error) {
	switch {
	case floating:
		if p == 0 {
			if floatFormat != "" {
				return ParseNumberMask(floatFormat)
			}
			return scientificMask(defaultFloatDigits), nil
		}
		// FLOAT(p) has p binary digits
		return scientificMask(int(math.Ceil(float64(p) * math.Log10(2)))), nil
	case s >= 0 && s < p:
		return NumberMask{IntDigits: p - s, Scale: s}, nil
	case s >= 0 && p <= s:
		if s-p > scientificGap {
			return scientificMask(p), nil
		}
		return NumberMask{IntDigits: 1, Scale: s}, nil
	default:
		if -s > scientificGap {
			return scientificMask(p), nil
		}
		return NumberMask{IntDigits: p - s}, nil
	}
}

// ParseNumberMask reads an Oracle number format such as "S99990.99", "FM9.999EEEE".
func ParseNumberMask(text string) (NumberMask, error) {
	m := NumberMask{}
	t := strings.ToUpper(strings.TrimSpace(text))
	t = strings.TrimPrefix(t, "FM")
	t = strings.TrimPrefix(t, "S")
	if strings.HasSuffix(t, "EEEE") {
		m.Scientific = true
		t = strings.TrimSuffix(t, "EEEE")
	}

	intDigits, scale, seenPoint := 0, 0, false
	for _, c := range t {
		switch c {
		case '9', '0':
			if seenPoint {
				scale++
			} else {
				intDigits++
			}
		case '.', 'D':
			if seenPoint {
				return m, common.NewInvalidParamValue("float_format", text, "more than one decimal point")
			}
			seenPoint = true
		default:
			return m, common.NewInvalidParamValue("float_format", text, "unsupported character "+string(c))
		}
	}
	if intDigits+scale == 0 {
		return m, common.NewInvalidParamValue("float_format", text, "no digit")
	}
	if m.Scientific {
		m.Digits = intDigits + scale
	} else {
		m.IntDigits = intDigits
		m.Scale = scale
	}
	return m, nil
}

// Text renders the mask in Oracle format model syntax.
func (m NumberMask) Text() string {
	if m.Scientific {
		if m.Digits == 1 {
			return "S9EEEE"
		}
		return "S9." + strings.Repeat("9", m.Digits-1) + "EEEE"
	}
	n := m.IntDigits
	if n < 1 {
		n = 1
	}
	t := "S" + strings.Repeat("9", n-1) + "0"
	if m.Scale > 0 {
		t += "." + strings.Repeat("9", m.Scale)
	}
	return t
}

// Width is the longest text the mask can produce.
func (m NumberMask) Width() int {
	if m.Scientific {
		w := 1 + m.Digits + maxExponentWidth
		if m.Digits > 1 {
			w++
		}
		return w
	}
	w := 1 + m.IntDigits
	if m.Scale > 0 {
		w += 1 + m.Scale
	}
	return w
}

// Append renders v. Positive numbers get no sign; fixed point values keep Scale
// fraction digits; scientific values drop trailing zeros of the mantissa.
func (m NumberMask) Append(dst []byte, v decimal.Decimal) []byte {
	if m.Scientific {
		return appendScientific(dst, v, m.Digits)
	}
	return append(dst, v.StringFixed(int32(m.Scale))...)
}

// exponent10 is the power of ten of the first significant digit of a non zero v.
func exponent10(v decimal.Decimal) int {
	c := v.Coefficient()
	c.Abs(c)
	return len(c.String()) + int(v.Exponent()) - 1
}

func appendScientific(dst []byte, v decimal.Decimal, digits int) []byte {
	if v.IsZero() {
		return append(dst, "0E+00"...)
	}
	if v.Sign() < 0 {
		dst = append(dst, '-')
		v = v.Neg()
	}
	e := exponent10(v)
	v = v.Round(int32(digits - 1 - e))
	e = exponent10(v)

	coeff := strings.TrimRight(v.Coefficient().String(), "0")
	if coeff == "" {
		coeff = "0"
	}
	dst = append(dst, coeff[0])
	if len(coeff) > 1 {
		dst = append(dst, '.')
		dst = append(dst, coeff[1:]...)
	}
	dst = append(dst, 'E')
	if e < 0 {
		dst = append(dst, '-')
		e = -e
	} else {
		dst = append(dst, '+')
	}
	if e < 10 {
		dst = append(dst, '0')
	}
	return strconv.AppendInt(dst, int64(e), 10)
}
