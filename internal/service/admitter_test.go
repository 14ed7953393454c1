package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAdmitter_DetachesFromCancellation(t *testing.T) {
	a := NewAdmitter(zap.NewNop(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var live atomic.Value
	a.Go(ctx, "detached", func(ctx context.Context) {
		live.Store(ctx.Err() == nil)
	})
	a.Wait()

	assert.Equal(t, true, live.Load())
}

func TestAdmitter_Timeout(t *testing.T) {
	a := NewAdmitter(zap.NewNop(), 20*time.Millisecond)

	var timedOut atomic.Bool
	a.Go(context.Background(), "slow", func(ctx context.Context) {
		<-ctx.Done()
		timedOut.Store(true)
	})
	a.Wait()

	assert.True(t, timedOut.Load())
}

func TestAdmitter_RecoversPanics(t *testing.T) {
	a := NewAdmitter(zap.NewNop(), time.Second)

	assert.NotPanics(t, func() {
		a.Go(context.Background(), "boom", func(ctx context.Context) { panic("boom") })
		a.Wait()
	})
}

func TestAdmitter_DefaultTimeout(t *testing.T) {
	a := NewAdmitter(zap.NewNop(), 0)
	assert.Equal(t, defaultAdmissionTimeout, a.timeout)
}
