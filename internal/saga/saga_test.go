package saga_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-bonus/internal/saga"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type runTrace struct {
	calls []string
}

func (s *runTrace) record(name string) {
	s.calls = append(s.calls, name)
}

func newEngine(t *testing.T, steps []saga.Step[runTrace], budget time.Duration) *saga.Engine[runTrace] {
	t.Helper()
	engine, err := saga.NewEngine(saga.Params[runTrace]{
		Name:   "test",
		Steps:  steps,
		Budget: budget,
		CompensationRetry: saga.Policy{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
		Logger: log.NewStdLogger(io.Discard),
	})
	require.NoError(t, err)
	return engine
}

func forward(name string) saga.Step[runTrace] {
	return saga.Step[runTrace]{
		Name: name,
		Run: func(_ context.Context, s *runTrace) (saga.Decision, error) {
			s.record(name)
			return saga.Continue, nil
		},
		Compensate: func(_ context.Context, s *runTrace) error {
			s.record("undo:" + name)
			return nil
		},
	}
}

func TestEngine_AllStepsSucceed(t *testing.T) {
	t.Parallel()

	engine := newEngine(t, []saga.Step[runTrace]{forward("a"), forward("b"), forward("c")}, time.Second)

	state := &runTrace{}
	result := engine.Execute(context.Background(), uuid.New(), state)

	require.Equal(t, saga.StatusSucceeded, result.Status)
	require.NoError(t, result.Err)
	require.Equal(t, []string{"a", "b", "c"}, state.calls)
}

func TestEngine_HaltIsSuccessfulTerminal(t *testing.T) {
	t.Parallel()

	steps := []saga.Step[runTrace]{
		{
			Name: "gate",
			Run: func(_ context.Context, s *runTrace) (saga.Decision, error) {
				s.record("gate")
				return saga.Halt("not_yet_eligible"), nil
			},
		},
		forward("never"),
	}
	engine := newEngine(t, steps, time.Second)

	state := &runTrace{}
	result := engine.Execute(context.Background(), uuid.New(), state)

	require.Equal(t, saga.StatusHalted, result.Status)
	require.Equal(t, "not_yet_eligible", result.HaltCode)
	require.NoError(t, result.Err)
	require.Equal(t, []string{"gate"}, state.calls)
}

func TestEngine_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	attempts := 0
	steps := []saga.Step[runTrace]{
		{
			Name: "flaky",
			Run: func(_ context.Context, s *runTrace) (saga.Decision, error) {
				attempts++
				if attempts < 3 {
					return saga.Continue, saga.Transient(errors.New("dependency unavailable"))
				}
				s.record("flaky")
				return saga.Continue, nil
			},
			Retry: saga.Policy{
				MaxAttempts:    3,
				RetryOn:        []saga.Kind{saga.KindTransient},
				InitialBackoff: time.Millisecond,
				MaxBackoff:     5 * time.Millisecond,
			},
		},
	}
	engine := newEngine(t, steps, time.Second)

	state := &runTrace{}
	result := engine.Execute(context.Background(), uuid.New(), state)

	require.Equal(t, saga.StatusSucceeded, result.Status)
	require.Equal(t, 3, attempts)
	require.Equal(t, []string{"flaky"}, state.calls)
}

func TestEngine_RetryExhaustionCompensatesInReverseOrder(t *testing.T) {
	t.Parallel()

	steps := []saga.Step[runTrace]{
		forward("claim"),
		forward("copy"),
		{
			Name: "record",
			Run: func(_ context.Context, _ *runTrace) (saga.Decision, error) {
				return saga.Continue, saga.Transient(errors.New("ledger down"))
			},
			Cleanup: func(_ context.Context, s *runTrace) error {
				s.record("cleanup:record")
				return nil
			},
			Retry: saga.Policy{
				MaxAttempts:    2,
				RetryOn:        []saga.Kind{saga.KindTransient},
				InitialBackoff: time.Millisecond,
				MaxBackoff:     time.Millisecond,
			},
		},
	}
	engine := newEngine(t, steps, time.Second)

	state := &runTrace{}
	result := engine.Execute(context.Background(), uuid.New(), state)

	require.Equal(t, saga.StatusFailed, result.Status)
	require.Equal(t, "record", result.FailedStep)
	require.True(t, result.Compensated)
	require.Equal(t,
		[]string{"claim", "copy", "cleanup:record", "undo:copy", "undo:claim"},
		state.calls,
	)
}

func TestEngine_NonRetryableSkipsRetry(t *testing.T) {
	t.Parallel()

	attempts := 0
	steps := []saga.Step[runTrace]{
		forward("claim"),
		{
			Name: "copy",
			Run: func(_ context.Context, _ *runTrace) (saga.Decision, error) {
				attempts++
				return saga.Continue, saga.NotFound(errors.New("source object missing"))
			},
			Retry: saga.Policy{
				MaxAttempts:    3,
				RetryOn:        []saga.Kind{saga.KindTransient},
				InitialBackoff: time.Millisecond,
				MaxBackoff:     time.Millisecond,
			},
		},
	}
	engine := newEngine(t, steps, time.Second)

	state := &runTrace{}
	result := engine.Execute(context.Background(), uuid.New(), state)

	require.Equal(t, saga.StatusFailed, result.Status)
	require.Equal(t, 1, attempts, "NotFound must not be retried")
	require.True(t, result.Compensated)
	require.Equal(t, saga.KindNotFound, saga.KindOf(result.Err))
	require.Equal(t, []string{"claim", "undo:claim"}, state.calls)
}

func TestEngine_CompensationRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	undoAttempts := 0
	steps := []saga.Step[runTrace]{
		{
			Name: "claim",
			Run: func(_ context.Context, s *runTrace) (saga.Decision, error) {
				s.record("claim")
				return saga.Continue, nil
			},
			Compensate: func(_ context.Context, s *runTrace) error {
				undoAttempts++
				if undoAttempts == 1 {
					return errors.New("restore hiccup")
				}
				s.record("undo:claim")
				return nil
			},
		},
		{
			Name: "copy",
			Run: func(_ context.Context, _ *runTrace) (saga.Decision, error) {
				return saga.Continue, saga.NotFound(errors.New("gone"))
			},
		},
	}
	engine := newEngine(t, steps, time.Second)

	state := &runTrace{}
	result := engine.Execute(context.Background(), uuid.New(), state)

	require.Equal(t, saga.StatusFailed, result.Status)
	require.True(t, result.Compensated)
	require.Equal(t, 2, undoAttempts)
	require.Equal(t, []string{"claim", "undo:claim"}, state.calls)
}

func TestEngine_CompensationFailureIsTerminal(t *testing.T) {
	t.Parallel()

	steps := []saga.Step[runTrace]{
		{
			Name: "claim",
			Run: func(_ context.Context, s *runTrace) (saga.Decision, error) {
				s.record("claim")
				return saga.Continue, nil
			},
			Compensate: func(_ context.Context, _ *runTrace) error {
				return errors.New("restore keeps failing")
			},
		},
		{
			Name: "copy",
			Run: func(_ context.Context, _ *runTrace) (saga.Decision, error) {
				return saga.Continue, saga.NotFound(errors.New("gone"))
			},
		},
	}
	engine := newEngine(t, steps, time.Second)

	state := &runTrace{}
	result := engine.Execute(context.Background(), uuid.New(), state)

	require.Equal(t, saga.StatusFailed, result.Status)
	require.False(t, result.Compensated)
	require.ErrorIs(t, result.Err, saga.ErrCompensationFailed)
}

func TestEngine_BudgetExceededSkipsCompensation(t *testing.T) {
	t.Parallel()

	state := &runTrace{}
	steps := []saga.Step[runTrace]{
		forward("claim"),
		{
			Name: "slow",
			Run: func(ctx context.Context, _ *runTrace) (saga.Decision, error) {
				<-ctx.Done()
				return saga.Continue, ctx.Err()
			},
		},
	}
	engine := newEngine(t, steps, 20*time.Millisecond)

	result := engine.Execute(context.Background(), uuid.New(), state)

	require.Equal(t, saga.StatusFailed, result.Status)
	require.Equal(t, "slow", result.FailedStep)
	require.False(t, result.Compensated)
	require.ErrorIs(t, result.Err, saga.ErrRunTimeout)
	require.Equal(t, []string{"claim"}, state.calls, "no inline compensation on budget overrun")
}
