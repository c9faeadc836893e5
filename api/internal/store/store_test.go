package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestResolveDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_PASSWORD", "")
	assert.Empty(t, ResolveDSN())

	t.Setenv("POSTGRES_PASSWORD", "s3cret")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("PGHOST", "pg")
	t.Setenv("PGPORT", "6543")
	t.Setenv("POSTGRES_DB", "d")
	assert.Equal(t, "postgres://u:s3cret@pg:6543/d?sslmode=disable", ResolveDSN())

	t.Setenv("DATABASE_URL", " postgres://x@y/z ")
	assert.Equal(t, "postgres://x@y/z", ResolveDSN())
}

func TestSafeDSNSummary(t *testing.T) {
	s := SafeDSNSummary("postgres://u:s3cret@pg:6543/d?sslmode=disable")
	assert.Equal(t, "host=pg port=6543 db=d user=u", s)
	assert.NotContains(t, s, "s3cret")
	assert.Equal(t, "host=pg db=d user=u", SafeDSNSummary("postgres://u@pg/d"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, ClampLimit(0))
	assert.Equal(t, 50, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, 500, ClampLimit(10_000))
}

func TestNullHelpers(t *testing.T) {
	assert.False(t, nullInt64(0).Valid)
	assert.True(t, nullInt64(42).Valid)
	assert.False(t, nullString("").Valid)
	assert.True(t, nullString("x").Valid)
}

type countingPurger struct{ calls atomic.Int32 }

func (p *countingPurger) PurgeOlderThan(context.Context, time.Duration) (int64, error) {
	p.calls.Add(1)
	return 1, nil
}

func TestRunJanitor(t *testing.T) {
	p := &countingPurger{}
	RunJanitor(context.Background(), p, 0, time.Millisecond, zap.NewNop().Sugar())
	assert.Equal(t, int32(0), p.calls.Load(), "disabled without retention")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunJanitor(ctx, p, time.Hour, 5*time.Millisecond, zap.NewNop().Sugar())
		close(done)
	}()
	assert.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
