/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/actiontech/xtru/g"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultLogFileName = "xtru.log"

// NewLogger builds the process logger. With an empty logFile it writes to errOut,
// otherwise to a rotating file.
func NewLogger(logLevel string, logFile string, errOut io.Writer) (g.LoggerType, io.Closer, error) {
	level := hclog.LevelFromString(logLevel)
	if level == hclog.NoLevel {
		if logLevel != "" {
			return nil, nil, errors.Errorf("invalid log level %v", logLevel)
		}
		level = hclog.Info
	}

	if logFile == "" {
		if errOut == nil {
			errOut = os.Stderr
		}
		return hclog.New(&hclog.LoggerOptions{
			Name:   g.ProgramName,
			Level:  level,
			Output: errOut,
		}), nopCloser{}, nil
	}

	err := os.MkdirAll(filepath.Dir(logFile), 0755)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create log dir")
	}

	logFileName := logFile
	if strings.HasSuffix(logFileName, "/") {
		logFileName += defaultLogFileName
	}

	rotateFile := &lumberjack.Logger{
		Filename: logFileName,
		MaxSize:  512, // MB
		Compress: true,
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   g.ProgramName,
		Level:  level,
		Output: rotateFile,
	}), rotateFile, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
