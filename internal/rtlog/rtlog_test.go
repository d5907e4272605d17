package rtlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogRespectsEnabledFlag(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	prev := EnableDebug
	EnableDebug = "false"
	defer func() { EnableDebug = prev }()

	Log("namer", "hello %s", "world")
	require.Empty(t, buf.String())

	EnableDebug = "true"
	Log("namer", "hello %s", "world")
	require.True(t, strings.Contains(buf.String(), "[DEBUG:namer] hello world"))
}

func TestFatalNeverExits(t *testing.T) {
	err := Fatal("arena index %d out of range", 7)
	require.Error(t, err)
	require.Contains(t, err.Error(), "arena index 7 out of range")
}
