/*
 * Copyright (C) 2016-2018. ActionTech.
 * Based on: github.com/hashicorp/nomad, github.com/github/gh-ost .
 * License: MPL version 2: https://www.mozilla.org/en-US/MPL/2.0 .
 */

// global values
package g

import (
	"os"
	"strings"

	hclog "github.com/hashicorp/go-hclog"
)

var (
	Version   string
	GitBranch string
	GitCommit string
)

type LoggerType hclog.Logger

const (
	ProgramName = "xtru"

	ENV_BULK_SIZE         = "XTRU_BULK_SIZE"
	ENV_PARALLEL          = "XTRU_PARALLEL"
	ENV_FLOAT_FORMAT      = "XTRU_FLOAT_FORMAT"
	ENV_SKIP_METASTORE    = "XTRU_SKIP_METASTORE"
	ENV_REMOVE_EMPTY_FILE = "XTRU_REMOVE_EMPTY_FILE"

	LONG_LOG_LIMIT = 256
)

// EnvIsTrue returns true if the env exists and is not "0".
func EnvIsTrue(env string) bool {
	val, exist := os.LookupEnv(env)
	if !exist {
		return false
	}
	return val != "0"
}

// EnvOr returns the value of env, or def if it is not set or empty.
func EnvOr(env string, def string) string {
	if val := os.Getenv(env); val != "" {
		return val
	}
	return def
}

func UpperString(s *string) {
	*s = strings.ToUpper(*s)
}

// NewNullLogger is used by tests and by components created without a logger.
func NewNullLogger() LoggerType {
	return hclog.NewNullLogger()
}
