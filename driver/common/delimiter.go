/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultSeparator  = ","
	DefaultEnclosure  = `"`
	DefaultTerminator = "\n"

	maxLengthPrefix = 9
)

// Delimiter is the record layout of a data file.
type Delimiter struct {
	Separator  string
	Enclosure  string
	Terminator string
	// LengthPrefix is the number of decimal digits of the record length written
	// before each record. 0 disables length-prefixed records.
	LengthPrefix int
}

func NewDefaultDelimiter() *Delimiter {
	return &Delimiter{
		Separator:  DefaultSeparator,
		Enclosure:  DefaultEnclosure,
		Terminator: DefaultTerminator,
	}
}

// NewDelimiter decodes the escaped forms of the three markers. See ParseDelimiter.
func NewDelimiter(separator, enclosure, terminator string, lengthPrefix int) (d *Delimiter, err error) {
	d = &Delimiter{LengthPrefix: lengthPrefix}
	if d.Separator, err = ParseDelimiter("separator", separator); err != nil {
		return nil, err
	}
	if d.Enclosure, err = ParseDelimiter("enclosure", enclosure); err != nil {
		return nil, err
	}
	if d.Terminator, err = ParseDelimiter("terminator", terminator); err != nil {
		return nil, err
	}
	if d.Separator == "" {
		return nil, NewInvalidParamValue("separator", separator, "must not be empty")
	}
	if d.Terminator == "" && lengthPrefix == 0 {
		return nil, NewInvalidParamValue("terminator", terminator, "must not be empty without length prefix")
	}
	if d.Enclosure != "" && strings.Contains(d.Separator, d.Enclosure) {
		return nil, NewInvalidParamValue("enclosure", enclosure, "must not be part of the separator")
	}
	if lengthPrefix < 0 || lengthPrefix > maxLengthPrefix {
		return nil, NewInvalidParamValue("length_prefix", strconv.Itoa(lengthPrefix),
			fmt.Sprintf("must be between 0 and %v", maxLengthPrefix))
	}
	return d, nil
}

// ParseDelimiter decodes a marker spec. Accepted escapes: \t \n \r \\ \0 and \xNN.
// A spec of the form 0xNNNN is read as hex bytes.
func ParseDelimiter(param string, spec string) (string, error) {
	if strings.HasPrefix(spec, "0x") || strings.HasPrefix(spec, "0X") {
		bs, err := hex.DecodeString(spec[2:])
		if err != nil || len(bs) == 0 {
			return "", NewInvalidParamValue(param, spec, "bad hex")
		}
		return string(bs), nil
	}

	var sb strings.Builder
	for i := 0; i < len(spec); i++ {
		c := spec[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(spec) {
			return "", NewInvalidParamValue(param, spec, "dangling escape")
		}
		switch spec[i] {
		case 't':
			sb.WriteByte('\t')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case '\\':
			sb.WriteByte('\\')
		case 'x':
			if i+2 >= len(spec) {
				return "", NewInvalidParamValue(param, spec, "short \\x escape")
			}
			bs, err := hex.DecodeString(spec[i+1 : i+3])
			if err != nil {
				return "", NewInvalidParamValue(param, spec, "bad \\x escape")
			}
			sb.WriteByte(bs[0])
			i += 2
		default:
			return "", NewInvalidParamValue(param, spec, fmt.Sprintf("unknown escape \\%c", spec[i]))
		}
	}
	return sb.String(), nil
}

// AppendField writes one column value of a record. A NULL value leaves the
// enclosure empty. The separator follows unless this is the last column.
func (d *Delimiter) AppendField(row *bytes.Buffer, value []byte, null bool, trailing bool) {
	if d.Enclosure == "" {
		if !null {
			row.Write(value)
		}
	} else {
		row.WriteString(d.Enclosure)
		if !null {
			d.appendEnclosed(row, value)
		}
		row.WriteString(d.Enclosure)
	}
	if trailing {
		row.WriteString(d.Separator)
	}
}

// appendEnclosed doubles every enclosure sequence inside the value.
func (d *Delimiter) appendEnclosed(row *bytes.Buffer, value []byte) {
	enc := []byte(d.Enclosure)
	for {
		i := bytes.Index(value, enc)
		if i < 0 {
			row.Write(value)
			return
		}
		row.Write(value[:i+len(enc)])
		row.Write(enc)
		value = value[i+len(enc):]
	}
}

// LengthString renders n zero padded to LengthPrefix digits.
func (d *Delimiter) LengthString(n int) (string, error) {
	s := strconv.Itoa(n)
	if len(s) > d.LengthPrefix {
		return "", NewInvalidParamValue("length_prefix", strconv.Itoa(d.LengthPrefix),
			fmt.Sprintf("record of %v bytes does not fit", n))
	}
	return strings.Repeat("0", d.LengthPrefix-len(s)) + s, nil
}

// FinishRecord moves a complete record body to out, adding the terminator
// and, if enabled, the length prefix. Returns the number of bytes written.
func (d *Delimiter) FinishRecord(out *bytes.Buffer, row *bytes.Buffer) (int, error) {
	n := 0
	bodyLen := row.Len() + len(d.Terminator)
	if d.LengthPrefix > 0 {
		ls, err := d.LengthString(bodyLen)
		if err != nil {
			return 0, err
		}
		out.WriteString(ls)
		n += len(ls)
	}
	out.Write(row.Bytes())
	out.WriteString(d.Terminator)
	return n + bodyLen, nil
}

// LoaderString quotes a marker for a control file. Anything but plain
// printable characters is written in hex form.
func LoaderString(s string) string {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7e || c == '\'' {
			return "X'" + hex.EncodeToString([]byte(s)) + "'"
		}
	}
	return "'" + s + "'"
}
