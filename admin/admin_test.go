package admin

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/state"
	"go.uber.org/zap"
)

func TestHealthchecker_RunsEveryCheckEachTick(t *testing.T) {
	c := cancel.New()
	var mu sync.Mutex
	count := 0
	check := HealthCheckFunc(func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	h := NewHealthchecker(zap.NewNop().Sugar(), state.New(), c, time.Millisecond, check)

	go h.Run()
	time.Sleep(20 * time.Millisecond)
	c.NotifyGraceful("done")
	time.Sleep(5 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, count, 1)
}

func TestHealthchecker_StopsOnGracefulCancellation(t *testing.T) {
	c := cancel.New()
	c.NotifyGraceful("stop now")
	ran := false
	check := HealthCheckFunc(func() { ran = true })

	h := NewHealthchecker(zap.NewNop().Sugar(), state.New(), c, time.Millisecond, check)
	h.Run()

	assert.False(t, ran)
}
