package metrics

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-sessmux/pkg/types"
)

// 标签值
const (
	labelLocal  = "local"
	labelRemote = "remote"
	labelSent   = "sent"
	labelRecv   = "received"
)

// Collector 基于 Prometheus 的 Reporter 实现
type Collector struct {
	sessionsOpened     *prometheus.CounterVec
	sessionsReady      *prometheus.CounterVec
	sessionsClosed     *prometheus.CounterVec
	sessionsActive     *prometheus.GaugeVec
	streamsOpened      *prometheus.CounterVec
	streamsActive      *prometheus.GaugeVec
	streamResets       *prometheus.CounterVec
	bytes              *prometheus.CounterVec
	datagramsSent      *prometheus.CounterVec
	schedulerPops      prometheus.Counter
	protocolViolations prometheus.Counter

	// bandwidth 可选的速率统计
	bandwidth *BandwidthCounter

	// 快照使用的本地计数
	activeSessions atomic.Int64
	activeStreams  atomic.Int64
	pops           atomic.Int64
}

var _ Reporter = (*Collector)(nil)

// NewCollector 创建指标收集器并注册到 reg
//
// bandwidth 为 nil 时不统计速率。
func NewCollector(namespace string, reg prometheus.Registerer, bandwidth *BandwidthCounter) (*Collector, error) {
	c := &Collector{
		sessionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "opened_total",
			Help:      "Sessions created.",
		}, []string{"perspective"}),
		sessionsReady: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "ready_total",
			Help:      "Sessions that completed version negotiation.",
		}, []string{"perspective", "version"}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "closed_total",
			Help:      "Sessions closed, by whether the close code was zero.",
		}, []string{"perspective", "result"}),
		sessionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently open.",
		}, []string{"perspective"}),
		streamsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "opened_total",
			Help:      "Data streams created.",
		}, []string{"direction", "initiator"}),
		streamsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "active",
			Help:      "Data streams currently tracked by sessions.",
		}, []string{"direction"}),
		streamResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "resets_total",
			Help:      "Stream resets, by initiating side.",
		}, []string{"side"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Payload bytes, by channel and direction.",
		}, []string{"channel", "direction"}),
		datagramsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "datagram",
			Name:      "sent_total",
			Help:      "Datagram send attempts, by status.",
		}, []string{"status"}),
		schedulerPops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "pops_total",
			Help:      "Streams popped from the write scheduler.",
		}),
		protocolViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "protocol_violations_total",
			Help:      "Sessions closed because the peer violated the protocol.",
		}),
		bandwidth: bandwidth,
	}

	for _, col := range c.collectors() {
		if err := reg.Register(col); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return nil, fmt.Errorf("metrics namespace %q already registered: %w", namespace, err)
			}
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return c, nil
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.sessionsOpened,
		c.sessionsReady,
		c.sessionsClosed,
		c.sessionsActive,
		c.streamsOpened,
		c.streamsActive,
		c.streamResets,
		c.bytes,
		c.datagramsSent,
		c.schedulerPops,
		c.protocolViolations,
	}
}

// Bandwidth 返回速率统计，未启用时为 nil
func (c *Collector) Bandwidth() *BandwidthCounter {
	return c.bandwidth
}

// SessionOpened 会话创建
func (c *Collector) SessionOpened(p types.Perspective) {
	c.sessionsOpened.WithLabelValues(p.String()).Inc()
	c.sessionsActive.WithLabelValues(p.String()).Inc()
	c.activeSessions.Add(1)
}

// SessionReady 会话就绪
func (c *Collector) SessionReady(p types.Perspective, v types.Version) {
	c.sessionsReady.WithLabelValues(p.String(), v.String()).Inc()
}

// SessionClosed 会话关闭
func (c *Collector) SessionClosed(p types.Perspective, code types.SessionErrorCode) {
	result := "ok"
	if code != types.SessionErrorNone {
		result = "error"
	}
	c.sessionsClosed.WithLabelValues(p.String(), result).Inc()
	c.sessionsActive.WithLabelValues(p.String()).Dec()
	c.activeSessions.Add(-1)
}

// StreamOpened 数据流创建
func (c *Collector) StreamOpened(dir types.StreamDirection, local bool) {
	c.streamsOpened.WithLabelValues(dir.String(), side(local)).Inc()
	c.streamsActive.WithLabelValues(dir.String()).Inc()
	c.activeStreams.Add(1)
}

// StreamClosed 数据流移出会话
func (c *Collector) StreamClosed(dir types.StreamDirection) {
	c.streamsActive.WithLabelValues(dir.String()).Dec()
	c.activeStreams.Add(-1)
}

// StreamReset 流被重置
func (c *Collector) StreamReset(local bool) {
	c.streamResets.WithLabelValues(side(local)).Inc()
}

// BytesSent 记录发送字节数
func (c *Collector) BytesSent(ch Channel, n int) {
	if n <= 0 {
		return
	}
	c.bytes.WithLabelValues(ch.String(), labelSent).Add(float64(n))
	if c.bandwidth != nil {
		c.bandwidth.LogSent(ch, int64(n))
	}
}

// BytesReceived 记录接收字节数
func (c *Collector) BytesReceived(ch Channel, n int) {
	if n <= 0 {
		return
	}
	c.bytes.WithLabelValues(ch.String(), labelRecv).Add(float64(n))
	if c.bandwidth != nil {
		c.bandwidth.LogRecv(ch, int64(n))
	}
}

// DatagramSent 记录数据报发送结果
func (c *Collector) DatagramSent(status types.DatagramStatusCode) {
	c.datagramsSent.WithLabelValues(status.String()).Inc()
}

// SchedulerPop 记录一次调度出队
func (c *Collector) SchedulerPop() {
	c.schedulerPops.Inc()
	c.pops.Add(1)
}

// ProtocolViolation 记录一次协议违规
func (c *Collector) ProtocolViolation() {
	c.protocolViolations.Inc()
}

// ActiveSessions 当前打开的会话数
func (c *Collector) ActiveSessions() int64 {
	return c.activeSessions.Load()
}

// ActiveStreams 当前跟踪的数据流数
func (c *Collector) ActiveStreams() int64 {
	return c.activeStreams.Load()
}

// SchedulerPops 累计调度出队次数
func (c *Collector) SchedulerPops() int64 {
	return c.pops.Load()
}

func side(local bool) string {
	if local {
		return labelLocal
	}
	return labelRemote
}
