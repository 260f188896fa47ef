package events

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// recordingSink captures published events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []Progress
}

func (r *recordingSink) Publish(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

func (r *recordingSink) all() []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Progress(nil), r.events...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestFanoutSink(t *testing.T) {
	fanout := NewFanoutSink(testLogger())

	// Publishing with no sinks registered is a no-op.
	fanout.Publish(Progress{TaskID: uuid.New(), Stage: StageStarted, At: time.Now()})

	a := &recordingSink{}
	b := &recordingSink{}
	fanout.Register(a)
	fanout.Register(b)

	event := Progress{TaskID: uuid.New(), Stage: StageText, Delta: "once upon", At: time.Now()}
	fanout.Publish(event)

	assert.Equal(t, []Progress{event}, a.all())
	assert.Equal(t, []Progress{event}, b.all())
}

func TestLogSinkDoesNotPanic(t *testing.T) {
	sink := NewLogSink(testLogger())
	sink.Publish(Progress{TaskID: uuid.New(), Stage: StageThinking, Delta: "hmm", At: time.Now()})
}
