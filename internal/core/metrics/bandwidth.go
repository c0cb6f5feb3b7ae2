package metrics

import (
	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-sessmux/pkg/types"
)

// Channel 流量通道
type Channel int

const (
	// ChannelBidirectional 双向流
	ChannelBidirectional Channel = iota
	// ChannelUnidirectional 单向流
	ChannelUnidirectional
	// ChannelDatagram 数据报
	ChannelDatagram

	numChannels
)

// String 返回通道名
func (c Channel) String() string {
	switch c {
	case ChannelBidirectional:
		return "bidi"
	case ChannelUnidirectional:
		return "uni"
	case ChannelDatagram:
		return "datagram"
	default:
		return "unknown"
	}
}

// ChannelOf 返回流方向对应的通道
func ChannelOf(dir types.StreamDirection) Channel {
	if dir == types.Unidirectional {
		return ChannelUnidirectional
	}
	return ChannelBidirectional
}

// BandwidthCounter 带宽计数器
//
// 按通道跟踪本端发送和接收的字节数与速率。
type BandwidthCounter struct {
	totalIn  *RateMeter
	totalOut *RateMeter

	channelIn  [numChannels]*RateMeter
	channelOut [numChannels]*RateMeter
}

// NewBandwidthCounter 创建新的 BandwidthCounter
func NewBandwidthCounter() *BandwidthCounter {
	return NewBandwidthCounterWithClock(clock.New())
}

// NewBandwidthCounterWithClock 使用指定时钟创建 BandwidthCounter
func NewBandwidthCounterWithClock(c clock.Clock) *BandwidthCounter {
	bwc := &BandwidthCounter{
		totalIn:  NewRateMeterWithClock(c),
		totalOut: NewRateMeterWithClock(c),
	}
	for i := range bwc.channelIn {
		bwc.channelIn[i] = NewRateMeterWithClock(c)
		bwc.channelOut[i] = NewRateMeterWithClock(c)
	}
	return bwc
}

// LogSent 记录发送字节数
func (bwc *BandwidthCounter) LogSent(ch Channel, size int64) {
	if !validChannel(ch) || size <= 0 {
		return
	}
	bwc.totalOut.Add(size)
	bwc.channelOut[ch].Add(size)
}

// LogRecv 记录接收字节数
func (bwc *BandwidthCounter) LogRecv(ch Channel, size int64) {
	if !validChannel(ch) || size <= 0 {
		return
	}
	bwc.totalIn.Add(size)
	bwc.channelIn[ch].Add(size)
}

// GetBandwidthTotals 返回总带宽统计
func (bwc *BandwidthCounter) GetBandwidthTotals() Stats {
	return statsOf(bwc.totalIn, bwc.totalOut)
}

// GetBandwidthForChannel 返回通道带宽统计
func (bwc *BandwidthCounter) GetBandwidthForChannel(ch Channel) Stats {
	if !validChannel(ch) {
		return Stats{}
	}
	return statsOf(bwc.channelIn[ch], bwc.channelOut[ch])
}

// GetBandwidthByChannel 返回所有通道的带宽统计
func (bwc *BandwidthCounter) GetBandwidthByChannel() map[Channel]Stats {
	out := make(map[Channel]Stats, numChannels)
	for ch := Channel(0); ch < numChannels; ch++ {
		out[ch] = bwc.GetBandwidthForChannel(ch)
	}
	return out
}

// Reset 重置所有统计
func (bwc *BandwidthCounter) Reset() {
	bwc.totalIn.Reset()
	bwc.totalOut.Reset()
	for i := range bwc.channelIn {
		bwc.channelIn[i].Reset()
		bwc.channelOut[i].Reset()
	}
}

func statsOf(in, out *RateMeter) Stats {
	return Stats{
		TotalIn:  in.Total(),
		TotalOut: out.Total(),
		RateIn:   in.Rate(),
		RateOut:  out.Rate(),
	}
}

func validChannel(ch Channel) bool {
	return ch >= 0 && ch < numChannels
}
