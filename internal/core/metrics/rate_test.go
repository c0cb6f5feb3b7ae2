package metrics

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

// TestRateMeter_Window 测试滑动窗口
func TestRateMeter_Window(t *testing.T) {
	clk := clock.NewMock()
	r := NewRateMeterWithClock(clk)

	r.Add(600)
	clk.Add(time.Second)
	r.Add(600)

	assert.Equal(t, int64(1200), r.Window())
	assert.InDelta(t, 20.0, r.Rate(), 0.001)

	// 第一个桶滑出窗口
	clk.Add(59 * time.Second)
	assert.Equal(t, int64(600), r.Window())

	// 整个窗口过期
	clk.Add(2 * time.Minute)
	assert.Zero(t, r.Window())
	assert.Equal(t, int64(1200), r.Total(), "累计总量不随窗口过期")
}

// TestRateMeter_PartialSecondsDoNotDrift 测试不足一秒的间隔不丢失对齐
func TestRateMeter_PartialSecondsDoNotDrift(t *testing.T) {
	clk := clock.NewMock()
	r := NewRateMeterWithClock(clk)
	start := r.LastUpdate()

	for i := 0; i < 4; i++ {
		clk.Add(700 * time.Millisecond)
		r.Add(1)
	}
	// 2.8 秒后当前桶起点对齐到第 2 秒
	assert.Equal(t, start.Add(2*time.Second), r.LastUpdate())
	assert.Equal(t, int64(4), r.Window())
}

// TestRateMeter_Reset 测试重置
func TestRateMeter_Reset(t *testing.T) {
	clk := clock.NewMock()
	r := NewRateMeterWithClock(clk)
	r.Add(10)
	r.Reset()

	assert.Zero(t, r.Total())
	assert.Zero(t, r.Window())
}
