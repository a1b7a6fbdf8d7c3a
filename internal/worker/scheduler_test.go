package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lexcal-api/internal/dto"
)

type rescanStub struct {
	calls atomic.Int32
	days  atomic.Int32
	err   error
}

func (s *rescanStub) RescanAll(ctx context.Context, days int) (*dto.RescanResult, error) {
	s.calls.Add(1)
	s.days.Store(int32(days))
	if s.err != nil {
		return nil, s.err
	}
	return &dto.RescanResult{Users: 2, Flagged: 3, Pairs: 1}, nil
}

type dispatchStub struct {
	calls atomic.Int32
	err   error
}

func (s *dispatchStub) DispatchDue(ctx context.Context) (int, error) {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return 4, s.err
}

func TestNewRegistersConfiguredSweeps(t *testing.T) {
	s, err := New(&rescanStub{}, &dispatchStub{}, Config{RescanSpec: "0 2 * * *", ReminderSpec: "*/5 * * * *"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s, err = New(&rescanStub{}, &dispatchStub{}, Config{RescanSpec: "0 2 * * *"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	_, err := New(&rescanStub{}, nil, Config{RescanSpec: "every night"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rescan schedule")

	_, err = New(nil, &dispatchStub{}, Config{ReminderSpec: "61 * * * *"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reminder schedule")
}

func TestRunRescanUsesHorizon(t *testing.T) {
	stub := &rescanStub{}
	s, err := New(stub, nil, Config{RescanSpec: "@daily", RescanHorizon: 14}, nil)
	require.NoError(t, err)

	s.RunRescan()
	assert.Equal(t, int32(1), stub.calls.Load())
	assert.Equal(t, int32(14), stub.days.Load())

	stub.err = errors.New("db down")
	assert.NotPanics(t, s.RunRescan)
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestRunRemindersBoundsContext(t *testing.T) {
	stub := &dispatchStub{}
	s, err := New(nil, stub, Config{ReminderSpec: "@every 1m", RunTimeout: time.Second}, nil)
	require.NoError(t, err)

	s.RunReminders()
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestStartStop(t *testing.T) {
	s, err := New(&rescanStub{}, &dispatchStub{}, Config{RescanSpec: "@daily", ReminderSpec: "@hourly"}, nil)
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
