package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

func closeIf(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func TestProcessWriters_DirDerivesPaths(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	cfg := Config{File: FileConfig{Dir: dir}}
	outW, errW, err := cfg.ProcessWriters("backend")
	require.NoError(t, err)
	require.NotNil(t, outW)
	require.NotNil(t, errW)

	_, _ = outW.Write([]byte("out\n"))
	_, _ = errW.Write([]byte("err\n"))
	closeIf(outW)
	closeIf(errW)

	_, err = os.Stat(filepath.Join(dir, "backend.stdout.log"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "backend.stderr.log"))
	assert.NoError(t, err)
}

func TestProcessWriters_NoDestination(t *testing.T) {
	outW, errW, err := Config{}.ProcessWriters("backend")
	require.NoError(t, err)
	assert.Nil(t, outW)
	assert.Nil(t, errW)
	assert.False(t, FileConfig{}.Enabled())
}

func TestProcessWriters_RotationDefaultsAndOverrides(t *testing.T) {
	cfg := Config{File: FileConfig{StdoutPath: "a.log", StderrPath: "b.log"}}
	outW, errW, _ := cfg.ProcessWriters("n")
	ol, ok := outW.(*lj.Logger)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxSizeMB, ol.MaxSize)
	assert.Equal(t, DefaultMaxBackups, ol.MaxBackups)
	assert.Equal(t, DefaultMaxAgeDays, ol.MaxAge)
	closeIf(outW)
	closeIf(errW)

	cfg = Config{File: FileConfig{StderrPath: "c.log", MaxSizeMB: 1, MaxBackups: 9, MaxAgeDays: 11, Compress: true}}
	outW, errW, _ = cfg.ProcessWriters("n")
	assert.Nil(t, outW)
	el := errW.(*lj.Logger)
	assert.Equal(t, 1, el.MaxSize)
	assert.Equal(t, 9, el.MaxBackups)
	assert.Equal(t, 11, el.MaxAge)
	assert.True(t, el.Compress)
	closeIf(errW)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json"}, &buf)
	l.Debug("spawned", "pid", 42)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "spawned", rec["msg"])
	assert.EqualValues(t, 42, rec["pid"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn"}, &buf)
	l.Info("hidden")
	assert.Empty(t, buf.String())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestColorTextHandler_KeepsColorOnDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Color: true}, &buf).With("component", "supervisor")
	l.Error("boom")
	out := buf.String()
	// the text handler quotes control characters
	assert.True(t, strings.Contains(out, `\x1b[31mERROR\x1b[0m`), out)
	assert.Contains(t, out, "component=supervisor")
}

func TestColorDroppedForNonTerminalFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "host.log"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	New(Config{Color: true}, f).Info("hello")
	require.NoError(t, f.Sync())
	b, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Contains(t, string(b), "msg=hello")
	assert.NotContains(t, string(b), "\x1b[")
}
