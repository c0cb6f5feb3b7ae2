package session

import (
	"github.com/dep2p/go-sessmux/internal/core/capsule"
	"github.com/dep2p/go-sessmux/internal/core/stream"
	"github.com/dep2p/go-sessmux/internal/core/streamio"
	pkgif "github.com/dep2p/go-sessmux/pkg/interfaces"
	"github.com/dep2p/go-sessmux/pkg/types"
)

// 确保实现接口
var _ pkgif.StreamVisitor = (*controlStream)(nil)

// controlStream 承载 capsule 的控制流
type controlStream struct {
	session *Session
	adapter *stream.Adapter
	parser  *capsule.Parser

	finSent     bool
	finReceived bool
}

func newControlStream(s *Session, id types.StreamID) *controlStream {
	c := &controlStream{
		session: s,
		parser:  capsule.NewParser(s.cfg.MaxCapsuleSize),
	}
	c.adapter = stream.NewAdapter(id, types.Bidirectional, s.conn, stream.Hooks{})
	c.adapter.SetVisitor(c)
	return c
}

func (c *controlStream) id() types.StreamID {
	return c.adapter.ID()
}

// send 写入一个 capsule
//
// 控制流不参与写调度，总是无条件缓冲。
func (c *controlStream) send(cp capsule.Capsule, fin bool) error {
	buf, err := capsule.Encode(cp)
	if err != nil {
		return err
	}
	if err := c.adapter.Writev([][]byte{buf}, pkgif.WriteOptions{
		SendFin:               fin,
		BufferUnconditionally: true,
	}); err != nil {
		return err
	}
	if fin {
		c.finSent = true
	}
	c.session.log.Debug("发送 capsule", "type", cp.Type(), "fin", fin)
	return nil
}

// sendFin 结束本端写方向
func (c *controlStream) sendFin() error {
	if c.finSent {
		return nil
	}
	c.finSent = true
	return c.adapter.Writev(nil, pkgif.WriteOptions{
		SendFin:               true,
		BufferUnconditionally: true,
	})
}

// ============================================================================
//                              StreamVisitor 实现
// ============================================================================

// OnCanRead 解析新到达的 capsule
func (c *controlStream) OnCanRead() {
	var (
		caps     []capsule.Capsule
		parseErr error
	)
	fin := streamio.ProcessAllReadableRegions(c.adapter, func(region []byte) {
		if parseErr != nil {
			return
		}
		parsed, err := c.parser.Feed(region)
		caps = append(caps, parsed...)
		parseErr = err
	})

	s := c.session
	for _, cp := range caps {
		if s.closeReceived {
			s.log.Warn("CLOSE_SESSION 之后仍有数据", "type", cp.Type())
			s.reporter.ProtocolViolation()
			return
		}
		s.handleCapsule(cp)
	}
	if parseErr != nil {
		s.protocolViolation(parseErr)
		return
	}
	if fin && !c.finReceived {
		c.finReceived = true
		s.onControlFin()
	}
}

// OnCanWrite 控制流无条件缓冲，无需处理
func (c *controlStream) OnCanWrite() {}

// OnResetStreamReceived 对端重置控制流
func (c *controlStream) OnResetStreamReceived(code types.StreamErrorCode) {
	c.session.protocolViolation(protocolError("control stream reset by peer (code %d)", code))
}

// OnStopSendingReceived 对端停止读取控制流
func (c *controlStream) OnStopSendingReceived(code types.StreamErrorCode) {
	c.session.protocolViolation(protocolError("peer stopped reading the control stream (code %d)", code))
}

// OnWriteSideInDataRecvdState 本端控制流数据已全部确认
func (c *controlStream) OnWriteSideInDataRecvdState() {
	c.session.log.Debug("控制流写端数据已确认")
}
