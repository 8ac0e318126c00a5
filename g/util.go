/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package g

import (
	"time"
	"unicode/utf8"
)

// StrLim cuts s to at most lim bytes for logging, on a rune boundary.
func StrLim(s string, lim int) string {
	if len(s) <= lim {
		return s
	}
	for lim > 0 && !utf8.RuneStart(s[lim]) {
		lim--
	}
	return s[:lim]
}

// StringElse returns the first non empty value.
func StringElse(s string, others ...string) string {
	if s != "" {
		return s
	}
	for _, o := range others {
		if o != "" {
			return o
		}
	}
	return ""
}

// PrettifyDurationOutput drops the sub-second part of a duration for output.
func PrettifyDurationOutput(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	return d.Truncate(time.Second).String()
}
