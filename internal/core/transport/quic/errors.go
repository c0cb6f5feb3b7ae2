package quic

import "errors"

var (
	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("transport closed")

	// ErrConnectionClosed 连接已关闭，事件循环不再接受任务
	ErrConnectionClosed = errors.New("connection closed")

	// ErrAlreadyRunning 连接的事件循环已启动
	ErrAlreadyRunning = errors.New("connection already running")

	// ErrInvalidAddress 无效地址
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNoCertificate 没有证书
	ErrNoCertificate = errors.New("no TLS certificate available")
)
