package metrics

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-sessmux/pkg/lib/log"
)

var logger = log.Logger("core/metrics")

// Snapshot 指标快照
type Snapshot struct {
	// 时间信息
	Timestamp     time.Time     `json:"timestamp"`
	UptimeSeconds int64         `json:"uptimeSeconds"`
	Interval      time.Duration `json:"interval"`

	// 会话统计
	ActiveSessions int64 `json:"activeSessions"`
	ActiveStreams  int64 `json:"activeStreams"`

	// 带宽统计
	BytesSent   int64   `json:"bytesSent"`
	BytesRecv   int64   `json:"bytesRecv"`
	SendRateBps float64 `json:"sendRateBps"`
	RecvRateBps float64 `json:"recvRateBps"`

	// 调度统计
	PopsTotal  int64   `json:"popsTotal"`
	PopsPerMin float64 `json:"popsPerMin"`

	// 资源统计
	Goroutines  int     `json:"goroutines"`
	HeapAllocMB float64 `json:"heapAllocMB"`
}

// SnapshotCollector 周期性收集并输出指标快照
type SnapshotCollector struct {
	mu sync.RWMutex

	clock     clock.Clock
	startTime time.Time
	collector *Collector

	lastSnapshot     *Snapshot
	lastPops         int64
	lastSnapshotTime time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSnapshotCollector 创建快照收集器
func NewSnapshotCollector(c *Collector, clk clock.Clock) *SnapshotCollector {
	if clk == nil {
		clk = clock.New()
	}
	now := clk.Now()
	return &SnapshotCollector{
		clock:            clk,
		startTime:        now,
		collector:        c,
		lastSnapshotTime: now,
	}
}

// Start 启动周期性快照
func (s *SnapshotCollector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	ticker := s.clock.Ticker(interval)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx, ticker)

	logger.Info("指标快照收集器已启动", "interval", interval)
}

// Stop 停止快照收集
func (s *SnapshotCollector) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	logger.Info("指标快照收集器已停止")
}

func (s *SnapshotCollector) loop(ctx context.Context, ticker *clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.log(s.Collect())
		}
	}
}

// Collect 收集当前快照
func (s *SnapshotCollector) Collect() *Snapshot {
	now := s.clock.Now()

	s.mu.RLock()
	lastTime := s.lastSnapshotTime
	lastPops := s.lastPops
	s.mu.RUnlock()

	elapsed := now.Sub(lastTime)
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		minutes = 1.0 / 60.0 // 最小 1 秒
	}

	snap := &Snapshot{
		Timestamp:     now,
		UptimeSeconds: int64(now.Sub(s.startTime).Seconds()),
		Interval:      elapsed,
		Goroutines:    runtime.NumGoroutine(),
	}

	if s.collector != nil {
		snap.ActiveSessions = s.collector.ActiveSessions()
		snap.ActiveStreams = s.collector.ActiveStreams()
		snap.PopsTotal = s.collector.SchedulerPops()
		snap.PopsPerMin = float64(snap.PopsTotal-lastPops) / minutes
		if bw := s.collector.Bandwidth(); bw != nil {
			stats := bw.GetBandwidthTotals()
			snap.BytesSent = stats.TotalOut
			snap.BytesRecv = stats.TotalIn
			snap.SendRateBps = stats.RateOut
			snap.RecvRateBps = stats.RateIn
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	snap.HeapAllocMB = float64(mem.HeapAlloc) / 1024 / 1024

	s.mu.Lock()
	s.lastSnapshot = snap
	s.lastSnapshotTime = now
	s.lastPops = snap.PopsTotal
	s.mu.Unlock()

	return snap
}

func (s *SnapshotCollector) log(snap *Snapshot) {
	logger.Info("指标快照",
		"uptime", snap.UptimeSeconds,
		"sessions", snap.ActiveSessions,
		"streams", snap.ActiveStreams,
		"bytesSent", snap.BytesSent,
		"bytesRecv", snap.BytesRecv,
		"sendRate", formatRate(snap.SendRateBps),
		"recvRate", formatRate(snap.RecvRateBps),
		"popsPerMin", fmt.Sprintf("%.2f", snap.PopsPerMin),
		"goroutines", snap.Goroutines,
		"heapAllocMB", fmt.Sprintf("%.2f", snap.HeapAllocMB),
	)
}

// GetLastSnapshot 获取最新快照
func (s *SnapshotCollector) GetLastSnapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSnapshot
}

// formatRate 格式化速率
func formatRate(bps float64) string {
	switch {
	case bps < 1024:
		return fmt.Sprintf("%.2f B/s", bps)
	case bps < 1024*1024:
		return fmt.Sprintf("%.2f KB/s", bps/1024)
	default:
		return fmt.Sprintf("%.2f MB/s", bps/1024/1024)
	}
}
