package g

import (
	"os"
	"testing"
	"time"

	test "github.com/outbrain/golib/tests"
)

func TestStrLim(t *testing.T) {
	test.S(t).ExpectEquals(StrLim("select 1", 20), "select 1")
	test.S(t).ExpectEquals(StrLim("select 1", 6), "select")
	// "é" is two bytes, a cut inside it goes back to the rune start
	test.S(t).ExpectEquals(StrLim("abé", 3), "ab")
}

func TestStringElse(t *testing.T) {
	test.S(t).ExpectEquals(StringElse("a", "b"), "a")
	test.S(t).ExpectEquals(StringElse("", "", "c"), "c")
	test.S(t).ExpectEquals(StringElse(""), "")
}

func TestPrettifyDurationOutput(t *testing.T) {
	test.S(t).ExpectEquals(PrettifyDurationOutput(500*time.Millisecond), "0s")
	test.S(t).ExpectEquals(PrettifyDurationOutput(90*time.Second+300*time.Millisecond), "1m30s")
}

func TestEnv(t *testing.T) {
	os.Unsetenv(ENV_SKIP_METASTORE)
	test.S(t).ExpectFalse(EnvIsTrue(ENV_SKIP_METASTORE))
	t.Setenv(ENV_SKIP_METASTORE, "0")
	test.S(t).ExpectFalse(EnvIsTrue(ENV_SKIP_METASTORE))
	t.Setenv(ENV_SKIP_METASTORE, "1")
	test.S(t).ExpectTrue(EnvIsTrue(ENV_SKIP_METASTORE))

	t.Setenv(ENV_FLOAT_FORMAT, "")
	test.S(t).ExpectEquals(EnvOr(ENV_FLOAT_FORMAT, "TM9"), "TM9")
	t.Setenv(ENV_FLOAT_FORMAT, "FM999")
	test.S(t).ExpectEquals(EnvOr(ENV_FLOAT_FORMAT, "TM9"), "FM999")
}
