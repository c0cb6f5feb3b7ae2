// Package metrics 提供会话层监控指标
//
// metrics 模块基于 Prometheus 收集会话、流、数据报与调度器指标，
// 并可选地统计按通道的流量与速率：
//   - Collector：Prometheus 计数器与仪表，实现 Reporter
//   - BandwidthCounter：按通道（双向流/单向流/数据报）统计字节数与速率
//   - RateMeter：60 秒滑动窗口速率
//   - SnapshotCollector：周期性输出指标快照日志
//
// # 快速开始
//
//	reg := prometheus.NewRegistry()
//	c, err := metrics.NewCollector("sessmux", reg, metrics.NewBandwidthCounter())
//
//	c.SessionOpened(types.PerspectiveClient)
//	c.BytesSent(metrics.ChannelBidirectional, 1024)
//
//	stats := c.Bandwidth().GetBandwidthTotals()
//	fmt.Printf("Out: %d, RateOut: %.2f B/s\n", stats.TotalOut, stats.RateOut)
//
// # Fx 模块
//
//	app := fx.New(
//	    metrics.Module,
//	    fx.Invoke(func(r metrics.Reporter) {
//	        r.SchedulerPop()
//	    }),
//	)
//
// 指标被禁用时模块提供 NoopReporter。
//
// # 并发安全
//
// Reporter 的实现均为并发安全：Prometheus 指标内置同步，
// 计数器使用原子操作，RateMeter 使用读写锁。
package metrics
