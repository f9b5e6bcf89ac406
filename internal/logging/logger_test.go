package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(WarnLevel, &buf)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown", map[string]interface{}{"epoch": 3})
	l.Error("shown too")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.EqualValues(t, 3, lines[0]["epoch"])
	assert.Contains(t, lines[0]["caller"], "logging/logger_test.go")
	assert.Equal(t, "ERROR", lines[1]["level"])
}

func TestWithFieldsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := New(InfoLevel, &buf)
	child := base.WithField("job_id", "abc")

	child.Info("child")
	base.Info("base")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "abc", lines[0]["job_id"])
	assert.NotContains(t, lines[1], "job_id")
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, &buf)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal("boom")
	assert.Equal(t, 1, code)
	assert.Equal(t, "FATAL", decodeLines(t, &buf)[0]["level"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, &buf).WithFormat(TextFormat)

	l.Info("epoch", map[string]interface{}{"b": 2, "a": 1})
	line := buf.String()
	assert.Contains(t, line, "INFO  epoch a=1 b=2 caller=")
}

func TestNewLoggerConfig(t *testing.T) {
	l, err := NewLogger(&Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, l.level)
	assert.Equal(t, TextFormat, l.format)

	l, err = NewLogger(nil)
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, l.level)
	assert.Equal(t, JSONFormat, l.format)

	_, err = NewLogger(&Config{Output: t.TempDir()})
	assert.Error(t, err)
}

func TestZapLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZapLogger(New(DebugLevel, &buf)).With(zap.String("algorithm", "bfgs"))

	z.Info("epoch",
		zap.Int("epoch", 7),
		zap.Float64("error", 0.125),
		zap.Bool("strict", true),
		zap.Duration("elapsed", 1500*time.Millisecond),
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "epoch", line["message"])
	assert.Equal(t, "bfgs", line["algorithm"])
	assert.EqualValues(t, 7, line["epoch"])
	assert.InDelta(t, 0.125, line["error"], 1e-12)
	assert.Equal(t, true, line["strict"])
	assert.Equal(t, "1.5s", line["elapsed"])

	z.Warn("failed", zap.Error(errors.New("diverged")))
	lines = decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "diverged", lines[1]["error"])
	assert.Equal(t, "WARN", lines[1]["level"])
}

func TestZapLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	z := NewZapLogger(New(ErrorLevel, &buf))
	z.Info("dropped")
	z.Debug("dropped")
	assert.Zero(t, buf.Len())
}

func TestMiddlewareAttachesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(DebugLevel, &buf)

	var got *CtxLogger
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/train", nil))

	require.NotNil(t, got)
	assert.Equal(t, "/api/v1/train", got.fields["path"])
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.EqualValues(t, http.StatusTeapot, lines[0]["status"])
	assert.Equal(t, "I'm a teapot", lines[0]["error"])
}

func TestFromContextDefault(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, InfoLevel, l.level)
}
