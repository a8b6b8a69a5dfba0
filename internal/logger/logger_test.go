package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "production", "debug")
	l.Debug("hello", "k", "v")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "expected json output, got %q", buf.String())
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "development", "warn")
	l.Info("dropped")
	assert.Empty(t, buf.String())
	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestFromCtx(t *testing.T) {
	var buf bytes.Buffer
	reqLog := New(&buf, "development", "info").With("request_id", "abc")
	ctx := Inject(context.Background(), reqLog)

	FromCtx(ctx, nil).Info("scoped")
	assert.Contains(t, buf.String(), "request_id=abc")

	assert.NotNil(t, FromCtx(context.Background(), nil))
}
