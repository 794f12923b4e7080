package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotEmpty(t *testing.T) {
	c := NewCollector()
	assert.Empty(t, c.Snapshot())
}

func TestRecordTiming(t *testing.T) {
	c := NewCollector()

	c.RecordTiming(OpRequest, 100*time.Millisecond)
	c.RecordTiming(OpRequest, 300*time.Millisecond)
	c.RecordTiming(OpChatSend, 50*time.Millisecond)

	snap := c.Snapshot()
	assert.Len(t, snap, 2)

	req := snap[OpRequest]
	assert.Equal(t, int64(2), req.Count)
	assert.Equal(t, int64(400), req.TotalTimeMs)
	assert.Equal(t, 200.0, req.AvgTimeMs)
	assert.Equal(t, int64(100), req.MinTimeMs)
	assert.Equal(t, int64(300), req.MaxTimeMs)

	chat := snap[OpChatSend]
	assert.Equal(t, int64(1), chat.Count)
	assert.Equal(t, int64(50), chat.MinTimeMs)
	assert.Equal(t, int64(50), chat.MaxTimeMs)
}

func TestRecordTimingConcurrent(t *testing.T) {
	c := NewCollector()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				c.RecordTiming(OpStreamEvent, time.Millisecond)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, int64(800), c.Snapshot()[OpStreamEvent].Count)
}
