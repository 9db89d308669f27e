package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/mini-town/internal/engine"
)

func TestDayQueue_WaitBlocksUntilWritten(t *testing.T) {
	release := make(chan struct{})
	var written atomic.Int32
	q := &dayQueue{write: func(ctx context.Context, dc engine.DayChanged) error {
		<-release
		written.Add(1)
		if dc.DayIndex == 1 {
			return errors.New("llm down")
		}
		return nil
	}}

	q.Go(context.Background(), engine.DayChanged{Day: "Monday", DayIndex: 0})
	q.Go(context.Background(), engine.DayChanged{Day: "Tuesday", DayIndex: 1})

	waited := make(chan struct{})
	go func() {
		q.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while days were still being written")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
	assert.Equal(t, int32(2), written.Load())
}
