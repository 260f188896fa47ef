package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/chronicle-api/internal/enrich"
)

// stubExecutor implements enrich.Executor with a configurable function.
type stubExecutor struct {
	fn func(ctx context.Context, req enrich.Request, onDelta func(enrich.Delta)) (*enrich.Result, error)
}

func (s *stubExecutor) Execute(
	ctx context.Context,
	req enrich.Request,
	onDelta func(enrich.Delta),
) (*enrich.Result, error) {
	return s.fn(ctx, req, onDelta)
}

func okExecutor() *stubExecutor {
	return &stubExecutor{
		fn: func(ctx context.Context, req enrich.Request, onDelta func(enrich.Delta)) (*enrich.Result, error) {
			if onDelta != nil {
				onDelta(enrich.Delta{TaskID: req.TaskID, Thinking: true, Text: "considering"})
				onDelta(enrich.Delta{TaskID: req.TaskID, Text: "done"})
			}
			return &enrich.Result{Output: json.RawMessage(`{"text":"done"}`)}, nil
		},
	}
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func testRequest() enrich.Request {
	return enrich.Request{
		TaskID:  uuid.New(),
		Kind:    enrich.KindText,
		Payload: json.RawMessage(`{"prompt":"describe the harbor"}`),
		Call:    enrich.CallConfig{Model: "test-model", Propagate: true},
	}
}

// collect receives messages until a terminal message (complete or error)
// arrives or the timeout expires.
func collect(t *testing.T, out <-chan Message) []Message {
	t.Helper()

	var msgs []Message
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-out:
			msgs = append(msgs, msg)
			if msg.Type == MessageComplete || msg.Type == MessageError {
				return msgs
			}
		case <-deadline:
			t.Fatalf("timed out waiting for terminal message, got %d messages", len(msgs))
		}
	}
}

func messageTypes(msgs []Message) []MessageType {
	types := make([]MessageType, len(msgs))
	for i, m := range msgs {
		types[i] = m.Type
	}
	return types
}

func TestDedicatedLifecycle(t *testing.T) {
	out := make(chan Message, 64)
	d := NewDedicated(3, okExecutor(), out, setupTestLogger())
	defer d.Terminate()

	assert.Equal(t, 3, d.ID())
	assert.Equal(t, KindDedicated, d.Kind())

	req := testRequest()
	d.Execute(req)

	msgs := collect(t, out)
	assert.Equal(t,
		[]MessageType{MessageReady, MessageStarted, MessageThinkingDelta, MessageTextDelta, MessageComplete},
		messageTypes(msgs))

	terminal := msgs[len(msgs)-1]
	assert.Equal(t, req.TaskID, terminal.TaskID)
	assert.Equal(t, 3, terminal.WorkerID)
	require.NotNil(t, terminal.Result)
	assert.JSONEq(t, `{"text":"done"}`, string(terminal.Result.Output))
}

func TestDedicatedAbort(t *testing.T) {
	blocking := &stubExecutor{
		fn: func(ctx context.Context, req enrich.Request, onDelta func(enrich.Delta)) (*enrich.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	out := make(chan Message, 64)
	d := NewDedicated(0, blocking, out, setupTestLogger())
	defer d.Terminate()

	req := testRequest()
	d.Execute(req)

	// Wait for the task to start before aborting it.
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		_, ok := d.aborts[req.TaskID]
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	d.Abort(req.TaskID)

	msgs := collect(t, out)
	terminal := msgs[len(msgs)-1]
	assert.Equal(t, MessageError, terminal.Type)
	assert.Equal(t, req.TaskID, terminal.TaskID)
	assert.Contains(t, terminal.Err, context.Canceled.Error())
}

func TestDedicatedPanicRecovery(t *testing.T) {
	panicking := &stubExecutor{
		fn: func(ctx context.Context, req enrich.Request, onDelta func(enrich.Delta)) (*enrich.Result, error) {
			panic("model client blew up")
		},
	}

	out := make(chan Message, 64)
	d := NewDedicated(0, panicking, out, setupTestLogger())
	defer d.Terminate()

	d.Execute(testRequest())

	msgs := collect(t, out)
	terminal := msgs[len(msgs)-1]
	assert.Equal(t, MessageError, terminal.Type)
	assert.Contains(t, terminal.Err, "worker crashed")
	assert.Contains(t, terminal.Err, "model client blew up")
}

func TestDedicatedNilExecutor(t *testing.T) {
	out := make(chan Message, 64)
	d := NewDedicated(0, nil, out, setupTestLogger())
	defer d.Terminate()

	d.Execute(testRequest())

	msgs := collect(t, out)
	terminal := msgs[len(msgs)-1]
	assert.Equal(t, MessageError, terminal.Type)
	assert.True(t, IsNotInitialized(terminal.Err))
}

func TestSharedRuntimeLifecycle(t *testing.T) {
	rt := NewSharedRuntime(setupTestLogger())
	assert.False(t, rt.Running())

	require.NoError(t, rt.Start(okExecutor()))
	assert.True(t, rt.Running())
	assert.ErrorIs(t, rt.Start(okExecutor()), ErrAlreadyStarted)

	rt.Stop()
	assert.False(t, rt.Running())
	// Stop is idempotent.
	rt.Stop()
}

func TestSharedExecute(t *testing.T) {
	rt := NewSharedRuntime(setupTestLogger())
	require.NoError(t, rt.Start(okExecutor()))
	defer rt.Stop()

	out := make(chan Message, 64)
	s := NewShared(1, rt, out)
	defer s.Terminate()

	assert.Equal(t, KindShared, s.Kind())

	req := testRequest()
	s.Execute(req)

	msgs := collect(t, out)
	assert.Equal(t,
		[]MessageType{MessageReady, MessageStarted, MessageThinkingDelta, MessageTextDelta, MessageComplete},
		messageTypes(msgs))
	assert.Equal(t, 1, msgs[len(msgs)-1].WorkerID)
}

func TestSharedNotInitialized(t *testing.T) {
	rt := NewSharedRuntime(setupTestLogger())

	out := make(chan Message, 64)
	s := NewShared(0, rt, out)
	defer s.Terminate()

	s.Execute(testRequest())

	msgs := collect(t, out)
	terminal := msgs[len(msgs)-1]
	assert.Equal(t, MessageError, terminal.Type)
	assert.True(t, IsNotInitialized(terminal.Err))
}

func TestSharedRuntimeServesMultipleHandles(t *testing.T) {
	rt := NewSharedRuntime(setupTestLogger())
	require.NoError(t, rt.Start(okExecutor()))
	defer rt.Stop()

	out := make(chan Message, 128)
	h0 := NewShared(0, rt, out)
	h1 := NewShared(1, rt, out)
	defer h0.Terminate()
	defer h1.Terminate()

	h0.Execute(testRequest())
	h1.Execute(testRequest())

	completions := map[int]int{}
	deadline := time.After(5 * time.Second)
	for len(completions) < 2 {
		select {
		case msg := <-out:
			if msg.Type == MessageComplete {
				completions[msg.WorkerID]++
			}
		case <-deadline:
			t.Fatal("timed out waiting for completions from both handles")
		}
	}
	assert.Equal(t, map[int]int{0: 1, 1: 1}, completions)
}

func TestSharedRuntimeSurvivesDetachedHandle(t *testing.T) {
	rt := NewSharedRuntime(setupTestLogger())
	require.NoError(t, rt.Start(okExecutor()))
	defer rt.Stop()

	// A stale handle whose tiny channel nobody drains, as after a pool
	// rebuild. Its job's messages must be dropped once the handle detaches,
	// not wedge the runtime loop.
	stale := make(chan Message, 1)
	old := NewShared(0, rt, stale)
	old.Execute(testRequest())
	old.Terminate()

	out := make(chan Message, 64)
	fresh := NewShared(1, rt, out)
	defer fresh.Terminate()

	fresh.Execute(testRequest())

	msgs := collect(t, out)
	terminal := msgs[len(msgs)-1]
	assert.Equal(t, MessageComplete, terminal.Type)
	assert.Equal(t, 1, terminal.WorkerID)
}

func TestNewFactoryFallback(t *testing.T) {
	logger := setupTestLogger()
	out := make(chan Message, 16)

	// Shared requested but runtime not running falls back to dedicated.
	factory := NewFactory(KindShared, okExecutor(), NewSharedRuntime(logger), logger)
	h := factory(0, out)
	defer h.Terminate()
	assert.Equal(t, KindDedicated, h.Kind())

	// Running runtime yields shared handles.
	rt := NewSharedRuntime(logger)
	require.NoError(t, rt.Start(okExecutor()))
	defer rt.Stop()

	factory = NewFactory(KindShared, okExecutor(), rt, logger)
	h2 := factory(1, out)
	defer h2.Terminate()
	assert.Equal(t, KindShared, h2.Kind())
}

func TestIsNotInitialized(t *testing.T) {
	assert.True(t, IsNotInitialized("worker not initialized"))
	assert.True(t, IsNotInitialized("Worker not initialized: shared runtime missing"))
	assert.False(t, IsNotInitialized("model quota exceeded"))
	assert.False(t, IsNotInitialized(errors.New("timeout").Error()))
}
