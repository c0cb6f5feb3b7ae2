package quic

import (
	"time"

	"github.com/dep2p/go-sessmux/config"
	"github.com/quic-go/quic-go"
)

// ALPN 会话复用协议的 TLS 应用层协议标识
const ALPN = "sessmux"

// 默认值
const (
	defaultStreamWriteBuffer = 256 * 1024
	defaultEventQueueSize    = 1024
	defaultDialTimeout       = 10 * time.Second

	// readChunk 读 goroutine 每次读取的块大小
	readChunk = 32 * 1024

	// initialMaxDatagram 握手前假定的最大数据报负载
	initialMaxDatagram = 1100
)

// Config 传输绑定配置
type Config struct {
	MaxIdleTimeout             time.Duration
	HandshakeIdleTimeout       time.Duration
	MaxIncomingStreams         int64
	MaxIncomingUniStreams      int64
	MaxStreamReceiveWindow     uint64
	MaxConnectionReceiveWindow uint64
	KeepAlivePeriod            time.Duration
	EnableDatagrams            bool

	// DialTimeout 拨号超时
	DialTimeout time.Duration

	// StreamWriteBuffer 每流发送队列上限（字节），同时作为读缓冲暂停阈值
	StreamWriteBuffer int

	// EventQueueSize 事件循环队列长度
	EventQueueSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建传输配置
func ConfigFromUnified(cfg *config.Config) Config {
	tc := config.DefaultTransportConfig()
	if cfg != nil {
		tc = cfg.Transport
	}
	c := Config{
		MaxIdleTimeout:             tc.QUIC.MaxIdleTimeout.Duration(),
		HandshakeIdleTimeout:       tc.QUIC.HandshakeIdleTimeout.Duration(),
		MaxIncomingStreams:         tc.QUIC.MaxIncomingStreams,
		MaxIncomingUniStreams:      tc.QUIC.MaxIncomingUniStreams,
		MaxStreamReceiveWindow:     tc.QUIC.MaxStreamReceiveWindow,
		MaxConnectionReceiveWindow: tc.QUIC.MaxConnectionReceiveWindow,
		KeepAlivePeriod:            tc.QUIC.KeepAlivePeriod.Duration(),
		EnableDatagrams:            tc.QUIC.EnableDatagrams,
		DialTimeout:                tc.DialTimeout.Duration(),
		StreamWriteBuffer:          tc.StreamWriteBuffer,
		EventQueueSize:             tc.EventQueueSize,
	}
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.StreamWriteBuffer <= 0 {
		c.StreamWriteBuffer = defaultStreamWriteBuffer
	}
	if c.EventQueueSize <= 0 {
		c.EventQueueSize = defaultEventQueueSize
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	return c
}

// quicConfig 转换为 quic-go 配置
func (c Config) quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:             c.MaxIdleTimeout,
		HandshakeIdleTimeout:       c.HandshakeIdleTimeout,
		MaxIncomingStreams:         c.MaxIncomingStreams,
		MaxIncomingUniStreams:      c.MaxIncomingUniStreams,
		MaxStreamReceiveWindow:     c.MaxStreamReceiveWindow,
		MaxConnectionReceiveWindow: c.MaxConnectionReceiveWindow,
		KeepAlivePeriod:            c.KeepAlivePeriod,
		EnableDatagrams:            c.EnableDatagrams,
	}
}
