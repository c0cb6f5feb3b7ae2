package config

import (
	"errors"
	"time"
)

// TransportConfig 传输层配置
type TransportConfig struct {
	// QUIC 配置
	QUIC QUICConfig `json:"quic"`

	// DialTimeout 拨号超时
	DialTimeout Duration `json:"dial_timeout"`

	// StreamWriteBuffer 每条流在绑定层的发送缓冲上限（字节）
	//
	// 缓冲满时 CanWriteNewData 返回 false，写入方收到 Unavailable。
	StreamWriteBuffer int `json:"stream_write_buffer"`

	// EventQueueSize 每个连接事件循环的队列长度
	EventQueueSize int `json:"event_queue_size"`
}

// QUICConfig QUIC 传输配置
type QUICConfig struct {
	// MaxIdleTimeout 最大空闲超时
	MaxIdleTimeout Duration `json:"max_idle_timeout"`

	// HandshakeIdleTimeout 握手超时
	HandshakeIdleTimeout Duration `json:"handshake_idle_timeout"`

	// MaxIncomingStreams 对端可开启的最大双向流数量
	MaxIncomingStreams int64 `json:"max_incoming_streams"`

	// MaxIncomingUniStreams 对端可开启的最大单向流数量
	MaxIncomingUniStreams int64 `json:"max_incoming_uni_streams"`

	// MaxStreamReceiveWindow 流接收窗口大小
	MaxStreamReceiveWindow uint64 `json:"max_stream_receive_window,omitempty"`

	// MaxConnectionReceiveWindow 连接接收窗口大小
	MaxConnectionReceiveWindow uint64 `json:"max_connection_receive_window,omitempty"`

	// KeepAlivePeriod KeepAlive 周期，0 表示禁用
	KeepAlivePeriod Duration `json:"keep_alive_period"`

	// EnableDatagrams 是否启用 QUIC DATAGRAM 扩展
	EnableDatagrams bool `json:"enable_datagrams"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		QUIC: QUICConfig{
			MaxIdleTimeout:             Duration(30 * time.Second), // 空闲超时：30 秒
			HandshakeIdleTimeout:       Duration(10 * time.Second), // 握手超时：10 秒
			MaxIncomingStreams:         256,                        // 双向流上限
			MaxIncomingUniStreams:      256,                        // 单向流上限
			MaxStreamReceiveWindow:     6 * 1024 * 1024,            // 流接收窗口：6 MB
			MaxConnectionReceiveWindow: 15 * 1024 * 1024,           // 连接接收窗口：15 MB
			KeepAlivePeriod:            Duration(15 * time.Second), // KeepAlive 间隔：15 秒
			EnableDatagrams:            true,
		},
		DialTimeout:       Duration(10 * time.Second),
		StreamWriteBuffer: 256 * 1024, // 256 KB
		EventQueueSize:    1024,
	}
}

// Validate 验证传输配置
func (c *TransportConfig) Validate() error {
	if c.QUIC.MaxIdleTimeout <= 0 {
		return errors.New("transport: quic.max_idle_timeout must be positive")
	}
	if c.QUIC.HandshakeIdleTimeout < 0 {
		return errors.New("transport: quic.handshake_idle_timeout must not be negative")
	}
	if c.QUIC.MaxIncomingStreams < 0 || c.QUIC.MaxIncomingUniStreams < 0 {
		return errors.New("transport: stream limits must not be negative")
	}
	if c.QUIC.KeepAlivePeriod < 0 {
		return errors.New("transport: quic.keep_alive_period must not be negative")
	}
	if c.QUIC.KeepAlivePeriod > 0 && c.QUIC.KeepAlivePeriod >= c.QUIC.MaxIdleTimeout {
		return errors.New("transport: quic.keep_alive_period must be less than max_idle_timeout")
	}
	if c.DialTimeout <= 0 {
		return errors.New("transport: dial_timeout must be positive")
	}
	if c.StreamWriteBuffer <= 0 {
		return errors.New("transport: stream_write_buffer must be positive")
	}
	if c.EventQueueSize <= 0 {
		return errors.New("transport: event_queue_size must be positive")
	}
	return nil
}
