package log

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf).(*writerLogger)
	l.now = func() time.Time {
		return time.Date(2024, 3, 9, 10, 11, 12, 0, time.UTC)
	}

	l.Infof("reading %s", "a.json")
	l.Warn("no", " breakpoints")
	l.Errorf("code %d", 7)
	l.Debug("x")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "2024-03-09 10:11:12 INFO reading a.json", lines[0])
	assert.Equal(t, "2024-03-09 10:11:12 WARN no breakpoints", lines[1])
	assert.Equal(t, "2024-03-09 10:11:12 ERROR code 7", lines[2])
	assert.Equal(t, "2024-03-09 10:11:12 DEBUG x", lines[3])
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))

	var buf bytes.Buffer
	l := New(&buf)
	assert.Same(t, l, OrNop(l))

	// must not panic
	Nop().Infof("dropped %d", 1)
}
