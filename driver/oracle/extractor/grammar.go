package extractor

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/actiontech/xtru/driver/common"
	"github.com/actiontech/xtru/driver/oracle/attr"
)

// ControlFile renders the SQL*Loader control file of one data file.
// infile is the data file name as seen by sqlldr; "-" reads stdin.
func ControlFile(d *common.Delimiter, infile string, table string, attrs []attr.Attr) string {
	var sb bytes.Buffer
	sb.WriteString("LOAD DATA\n")
	sb.WriteString("CHARACTERSET AL32UTF8\n")
	fmt.Fprintf(&sb, "INFILE '%s'", strings.Replace(infile, "'", "''", -1))
	switch {
	case d.LengthPrefix > 0:
		fmt.Fprintf(&sb, ` "VAR %d"`, d.LengthPrefix)
	case d.Terminator != "\n":
		fmt.Fprintf(&sb, ` "STR X'%s'"`, hex.EncodeToString([]byte(d.Terminator)))
	}
	sb.WriteString("\nAPPEND\n")
	fmt.Fprintf(&sb, "INTO TABLE %s\n", table)
	if d.Enclosure == "" {
		fmt.Fprintf(&sb, "FIELDS TERMINATED BY %s\n", common.LoaderString(d.Separator))
	}
	sb.WriteString("TRAILING NULLCOLS\n(\n")
	for i, a := range attrs {
		sb.WriteString("  ")
		sb.WriteString(a.Field(d))
		if i < len(attrs)-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(")\n")
	return sb.String()
}

// infileOf is what the control file names as data file for a data stream.
func infileOf(data *common.Stream) string {
	if data.Scheme == common.SchemeIpcPipe {
		return "-"
	}
	return data.Target
}

// LoaderScript renders a shell script running sqlldr on a control file. The
// connect string is read from XTRU_LOADER_USERID when the script runs.
func LoaderScript(control string, data string) string {
	base := strings.TrimSuffix(control, filepath.Ext(control))
	var sb bytes.Buffer
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString(": \"${XTRU_LOADER_USERID:?set XTRU_LOADER_USERID to user/password@connect}\"\n")
	fmt.Fprintf(&sb, "exec sqlldr userid=\"$XTRU_LOADER_USERID\" control='%s' data='%s' log='%s.log' bad='%s.bad' direct=true errors=0\n",
		control, data, base, base)
	return sb.String()
}

// loaderScriptPath is the script written next to a control file.
func loaderScriptPath(control string) string {
	return strings.TrimSuffix(control, filepath.Ext(control)) + ".sh"
}
