package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInfoGatedByEnable(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, nil)

	l.Info("hidden %d", 1)
	require.Empty(t, buf.String())

	l.EnableInfo()
	l.Info("visible %d", 2)
	require.Contains(t, buf.String(), "visible 2")
}

func TestTraceGatedBySubsystem(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, nil)

	l.Trace("oracle", "round %d", 1)
	require.Empty(t, buf.String())

	l.EnableTracing("pope")
	l.Trace("oracle", "round %d", 2)
	require.Empty(t, buf.String())

	l.Trace("pope", "round %d", 3)
	require.Contains(t, buf.String(), "pope: round 3")
}

func TestTraceAllSubsystems(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, nil)
	l.EnableTracing("all")
	l.Trace("oracle", "hit")
	require.Contains(t, buf.String(), "oracle: hit")
}

func TestWarnErrorAlwaysEmitted(t *testing.T) {
	var errBuf bytes.Buffer
	l := New(nil, &errBuf)
	l.Warn("watch out")
	l.Error("broken")
	require.Contains(t, errBuf.String(), "watch out")
	require.Contains(t, errBuf.String(), "broken")
}
