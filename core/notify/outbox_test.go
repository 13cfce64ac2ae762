package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
)

type recordingLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Fatal(string, ...interface{}) {}

func (l *recordingLogger) Warn(msg string, _ ...interface{}) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) counts() (warns, errs int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns), len(l.errors)
}

func TestOutbox_fifo(t *testing.T) {
	logger := new(recordingLogger)
	o := NewOutbox(logger, core.OutboxConfig{Workers: 1, QueueSize: 10})
	o.Start()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 10; i++ {
		i := i
		o.Enqueue(Task{Name: "append", Run: func(context.Context) error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}})
	}
	require.NoError(t, o.Stop(context.Background()))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestOutbox_dropsWhenFull(t *testing.T) {
	logger := new(recordingLogger)
	o := NewOutbox(logger, core.OutboxConfig{Workers: 1, QueueSize: 1})

	ran := make(chan string, 3)
	task := func(name string) Task {
		return Task{Name: name, Run: func(context.Context) error {
			ran <- name
			return nil
		}}
	}

	// not started yet: the queue holds one task
	o.Enqueue(task("first"))
	o.Enqueue(task("second"))
	warns, _ := logger.counts()
	assert.Equal(t, 1, warns)

	o.Start()
	require.NoError(t, o.Stop(context.Background()))
	close(ran)

	var names []string
	for name := range ran {
		names = append(names, name)
	}
	assert.Equal(t, []string{"first"}, names)
}

func TestOutbox_stop(t *testing.T) {
	logger := new(recordingLogger)
	o := NewOutbox(logger, core.OutboxConfig{Workers: 2, QueueSize: 4})
	o.Start()

	release := make(chan struct{})
	o.Enqueue(Task{Name: "slow", Run: func(context.Context) error {
		<-release
		return nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := o.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	o.Enqueue(Task{Name: "late", Run: func(context.Context) error {
		t.Error("late task ran")
		return nil
	}})
	warns, _ := logger.counts()
	assert.Equal(t, 1, warns)

	close(release)
	assert.NoError(t, o.Stop(context.Background()))
}

func TestOutbox_failures(t *testing.T) {
	logger := new(recordingLogger)
	o := NewOutbox(logger, core.OutboxConfig{Workers: 1, QueueSize: 4, TaskTimeout: time.Second})
	o.Start()

	var hasDeadline bool
	o.Enqueue(Task{Name: "panics", Run: func(context.Context) error { panic("boom") }})
	o.Enqueue(Task{Name: "fails", Run: func(context.Context) error { return errors.New("nope") }})
	o.Enqueue(Task{Name: "times", Run: func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}})
	require.NoError(t, o.Stop(context.Background()))

	_, errs := logger.counts()
	assert.Equal(t, 2, errs)
	assert.Contains(t, logger.errors[0], `"panics" panicked: boom`)
	assert.Contains(t, logger.errors[1], `"fails": nope`)
	assert.True(t, hasDeadline)
}

func TestSyncOutbox(t *testing.T) {
	logger := new(recordingLogger)
	o := NewSyncOutbox(logger)
	o.Start()

	ran := false
	o.Enqueue(Task{Name: "inline", Run: func(context.Context) error {
		ran = true
		return nil
	}})
	assert.True(t, ran)

	o.Enqueue(Task{Name: "panics", Run: func(context.Context) error { panic("boom") }})
	_, errs := logger.counts()
	assert.Equal(t, 1, errs)
	assert.NoError(t, o.Stop(context.Background()))
}
