package executor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Wireflow/internal/domain"
)

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, Execution) error { return f.err }

func TestMultiNotifier(t *testing.T) {
	first := &RecordingNotifier{}
	second := &RecordingNotifier{}
	boom := errors.New("broker down")

	m := MultiNotifier{first, failingNotifier{err: boom}, nil, second}
	exec := Execution{NodeID: "n1", NodeType: domain.KindText, Succeeded: true}

	err := m.Notify(context.Background(), exec)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Execution{exec}, first.Executions())
	assert.Equal(t, []Execution{exec}, second.Executions(), "later notifiers still run")
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := &LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	require.NoError(t, n.Notify(context.Background(), Execution{
		NodeID:   "h",
		NodeType: domain.KindHTTP,
		Error:    "HTTP 500",
	}))
	assert.Contains(t, buf.String(), "node execution failed")
	assert.Contains(t, buf.String(), "node_id=h")

	buf.Reset()
	require.NoError(t, n.Notify(context.Background(), Execution{NodeID: "t", Succeeded: true}))
	assert.Empty(t, buf.String(), "successes are logged at debug level")
}
