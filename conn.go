package sessmux

import (
	"net"

	"github.com/google/uuid"

	"github.com/dep2p/go-sessmux/internal/core/session"
	"github.com/dep2p/go-sessmux/internal/core/transport/quic"
	pkgif "github.com/dep2p/go-sessmux/pkg/interfaces"
	transportif "github.com/dep2p/go-sessmux/pkg/interfaces/transport"
	"github.com/dep2p/go-sessmux/pkg/types"
)

// Handler 为新连接创建会话回调
//
// 在连接的事件循环上调用，此时会话尚未创建；
// 回调中通过 Conn.Session 访问会话。
type Handler func(c *Conn) pkgif.SessionVisitor

// Conn 一条承载会话的 QUIC 连接
//
// 会话不是并发安全的：Session 只能在事件循环上（回调内或 Do 中）使用。
type Conn struct {
	ep   *Endpoint
	qc   *quic.Conn
	sess *session.Session
}

func newConn(ep *Endpoint, qc *quic.Conn) *Conn {
	return &Conn{ep: ep, qc: qc}
}

// start 在事件循环上创建并启动会话
func (c *Conn) start(h Handler) error {
	return c.qc.Run(func() transportif.ConnectionVisitor {
		visitor := h(c)
		if visitor == nil {
			visitor = noopVisitor{}
		}
		c.sess = c.ep.factory.NewSession(c.qc, visitor)
		c.sess.Start()
		return c.sess
	})
}

// Session 返回会话，只能在事件循环上调用
func (c *Conn) Session() pkgif.Session {
	return c.sess
}

// TraceID 会话追踪 ID，只能在事件循环上调用
func (c *Conn) TraceID() uuid.UUID {
	if c.sess == nil {
		return uuid.Nil
	}
	return c.sess.TraceID()
}

// Do 在事件循环上执行 fn
//
// 不能在回调内部调用。
func (c *Conn) Do(fn func(s pkgif.Session)) error {
	if err := c.qc.Submit(func() { fn(c.sess) }); err != nil {
		return ErrConnClosed
	}
	return nil
}

// CloseSession 以应用错误码关闭会话
func (c *Conn) CloseSession(code types.SessionErrorCode, message string) error {
	return c.Do(func(s pkgif.Session) { s.CloseSession(code, message) })
}

// Close 立即关闭连接并等待后台 goroutine 退出
//
// 可以在会话回调中调用，此时不等待，关闭结果经 OnSessionClosed 投递。
func (c *Conn) Close() error {
	err := c.qc.Close()
	c.ep.removeConn(c)
	return err
}

// Done 连接结束时关闭
func (c *Conn) Done() <-chan struct{} {
	return c.qc.Done()
}

// Perspective 本端角色
func (c *Conn) Perspective() types.Perspective {
	return c.qc.Perspective()
}

// LocalAddr 本地地址
func (c *Conn) LocalAddr() net.Addr {
	return c.qc.LocalAddr()
}

// RemoteAddr 远端地址
func (c *Conn) RemoteAddr() net.Addr {
	return c.qc.RemoteAddr()
}

// noopVisitor 忽略全部会话事件
type noopVisitor struct{}

func (noopVisitor) OnSessionReady()                                {}
func (noopVisitor) OnSessionClosed(types.SessionErrorCode, string) {}
func (noopVisitor) OnIncomingBidirectionalStreamAvailable()        {}
func (noopVisitor) OnIncomingUnidirectionalStreamAvailable()       {}
func (noopVisitor) OnDatagramReceived([]byte)                      {}
func (noopVisitor) OnCanCreateNewOutgoingBidirectionalStream()     {}
func (noopVisitor) OnCanCreateNewOutgoingUnidirectionalStream()    {}
