package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"vatelanka-driver/internal/models"

	"github.com/stretchr/testify/require"
)

func countingCheck(foundAt int32, calls *atomic.Int32) CheckFunc {
	return func(context.Context) (*models.Session, error) {
		n := calls.Add(1)
		if foundAt > 0 && n >= foundAt {
			return validSession(), nil
		}
		return nil, nil
	}
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPoll_StopsWhenFound(t *testing.T) {
	var calls atomic.Int32
	p := StartPoll(context.Background(), 5*time.Millisecond, 10, countingCheck(4, &calls), nil)

	res, err := p.Wait(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, Found, res.Outcome)
	require.Equal(t, 4, res.Attempts)
	require.Equal(t, "uid-7", res.Session.UID)

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(4), calls.Load())
}

func TestPoll_ExhaustsWithoutError(t *testing.T) {
	var calls atomic.Int32
	var got PollResult
	p := StartPoll(context.Background(), 2*time.Millisecond, 10, countingCheck(0, &calls), func(r PollResult) { got = r })

	res, err := p.Wait(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, Exhausted, res.Outcome)
	require.Equal(t, 10, res.Attempts)
	require.Nil(t, res.Session)
	require.Equal(t, int32(10), calls.Load())
	require.Equal(t, res, got)
}

func TestPoll_CancelIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	p := StartPoll(context.Background(), time.Hour, 10, countingCheck(0, &calls), nil)

	p.Cancel()
	p.Cancel()

	res, err := p.Wait(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, Cancelled, res.Outcome)
	require.Equal(t, 0, res.Attempts)
	p.Cancel()
}
