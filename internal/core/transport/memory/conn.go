package memory

import (
	"fmt"

	transportif "github.com/dep2p/go-sessmux/pkg/interfaces/transport"
	"github.com/dep2p/go-sessmux/pkg/types"
)

// Conn 内存连接的一端
type Conn struct {
	net         *Network
	perspective types.Perspective
	peer        *Conn
	visitor     transportif.ConnectionVisitor

	streams      map[types.StreamID]*Stream
	incomingBidi []*Stream
	incomingUni  []*Stream

	nextBidi types.StreamID
	nextUni  types.StreamID
	openBidi int
	openUni  int

	pendingDatagrams int

	closed      bool
	closeCode   uint64
	closeReason string
}

var _ transportif.Connection = (*Conn)(nil)

func newConn(n *Network, p types.Perspective) *Conn {
	c := &Conn{
		net:         n,
		perspective: p,
		streams:     make(map[types.StreamID]*Stream),
		nextBidi:    0,
		nextUni:     2,
	}
	if p == types.PerspectiveServer {
		c.nextBidi = 1
		c.nextUni = 3
	}
	return c
}

// SetVisitor 设置事件回调
func (c *Conn) SetVisitor(v transportif.ConnectionVisitor) {
	c.visitor = v
}

// Peer 返回对端连接
func (c *Conn) Peer() *Conn {
	return c.peer
}

// Perspective 返回本端角色
func (c *Conn) Perspective() types.Perspective {
	return c.perspective
}

// Closed 连接是否已关闭
func (c *Conn) Closed() bool {
	return c.closed
}

// CloseInfo 返回关闭码与原因
func (c *Conn) CloseInfo() (uint64, string) {
	return c.closeCode, c.closeReason
}

// NumStreams 当前存活的流数量
func (c *Conn) NumStreams() int {
	return len(c.streams)
}

// Stream 按 ID 返回具体流对象，用于测试控制
func (c *Conn) Stream(id types.StreamID) *Stream {
	return c.streams[id]
}

// ============================================================================
//                              入站流
// ============================================================================

// AcceptIncomingBidirectionalStream 取出下一条对端双向流
func (c *Conn) AcceptIncomingBidirectionalStream() transportif.SequencedStream {
	return c.accept(&c.incomingBidi)
}

// AcceptIncomingUnidirectionalStream 取出下一条对端单向流
func (c *Conn) AcceptIncomingUnidirectionalStream() transportif.SequencedStream {
	return c.accept(&c.incomingUni)
}

func (c *Conn) accept(queue *[]*Stream) transportif.SequencedStream {
	for len(*queue) > 0 {
		s := (*queue)[0]
		(*queue)[0] = nil
		*queue = (*queue)[1:]
		if c.streams[s.id] == s {
			return s
		}
	}
	return nil
}

// ============================================================================
//                              出站流
// ============================================================================

// CanOpenNextOutgoingBidirectionalStream 是否可以打开双向流
func (c *Conn) CanOpenNextOutgoingBidirectionalStream() bool {
	return !c.closed && withinLimit(c.openBidi, c.net.opts.MaxIncomingBidiStreams)
}

// CanOpenNextOutgoingUnidirectionalStream 是否可以打开单向流
func (c *Conn) CanOpenNextOutgoingUnidirectionalStream() bool {
	return !c.closed && withinLimit(c.openUni, c.net.opts.MaxIncomingUniStreams)
}

func withinLimit(open, limit int) bool {
	return limit <= 0 || open < limit
}

// OpenOutgoingBidirectionalStream 打开双向流
func (c *Conn) OpenOutgoingBidirectionalStream() transportif.SequencedStream {
	if !c.CanOpenNextOutgoingBidirectionalStream() {
		return nil
	}
	id := c.nextBidi
	c.nextBidi += 4
	c.openBidi++

	out, in := &half{}, &half{}
	local := newStream(c, id, types.Bidirectional, out, in, true)
	remote := newStream(c.peer, id, types.Bidirectional, in, out, false)
	c.streams[id] = local
	c.deliverArrival(remote, &c.peer.incomingBidi)
	return local
}

// OpenOutgoingUnidirectionalStream 打开单向流
func (c *Conn) OpenOutgoingUnidirectionalStream() transportif.SequencedStream {
	if !c.CanOpenNextOutgoingUnidirectionalStream() {
		return nil
	}
	id := c.nextUni
	c.nextUni += 4
	c.openUni++

	h := &half{}
	local := newStream(c, id, types.Unidirectional, h, nil, true)
	remote := newStream(c.peer, id, types.Unidirectional, nil, h, false)
	c.streams[id] = local
	c.deliverArrival(remote, &c.peer.incomingUni)
	return local
}

// deliverArrival 对端在事件投递时才看到新流
func (c *Conn) deliverArrival(remote *Stream, queue *[]*Stream) {
	peer := c.peer
	c.net.post(func() {
		if peer.closed {
			return
		}
		peer.streams[remote.id] = remote
		*queue = append(*queue, remote)
		if peer.visitor != nil {
			peer.visitor.OnIncomingStreamsAvailable()
		}
	})
}

// GetStream 按 ID 查找流
func (c *Conn) GetStream(id types.StreamID) transportif.SequencedStream {
	s, ok := c.streams[id]
	if !ok {
		return nil
	}
	return s
}

// removeStream 两个方向都结束后销毁流
func (c *Conn) removeStream(s *Stream) {
	if c.streams[s.id] != s {
		return
	}
	delete(c.streams, s.id)

	if s.local {
		limit := c.net.opts.MaxIncomingBidiStreams
		open := &c.openBidi
		if s.direction == types.Unidirectional {
			limit = c.net.opts.MaxIncomingUniStreams
			open = &c.openUni
		}
		*open--
		if limit > 0 && *open == limit-1 && c.visitor != nil {
			c.visitor.OnCanOpenOutgoingStream(s.direction)
		}
	}
	if c.visitor != nil {
		c.visitor.OnStreamClosed(s.id)
	}
}

// ============================================================================
//                              数据报与关闭
// ============================================================================

// SendOrQueueDatagram 发送数据报
func (c *Conn) SendOrQueueDatagram(payload []byte) types.DatagramStatus {
	if c.closed {
		return types.DatagramStatus{Code: types.DatagramInternalError, Message: "connection closed"}
	}
	if len(payload) > c.net.opts.MaxDatagramSize {
		return types.DatagramStatus{
			Code:    types.DatagramTooBig,
			Message: fmt.Sprintf("%d bytes exceeds %d", len(payload), c.net.opts.MaxDatagramSize),
		}
	}
	peer := c.peer
	if limit := c.net.opts.DatagramQueueLimit; limit > 0 && peer.pendingDatagrams >= limit {
		return types.DatagramStatus{Code: types.DatagramBlocked, Message: "datagram queue full"}
	}

	data := append([]byte(nil), payload...)
	peer.pendingDatagrams++
	c.net.post(func() {
		peer.pendingDatagrams--
		if peer.closed || peer.visitor == nil {
			return
		}
		peer.visitor.OnDatagramReceived(data)
	})
	return types.DatagramStatus{Code: types.DatagramSuccess}
}

// MaxDatagramSize 返回最大数据报负载
func (c *Conn) MaxDatagramSize() int {
	return c.net.opts.MaxDatagramSize
}

// CloseConnection 关闭连接，两端都会收到 OnConnectionClosed
func (c *Conn) CloseConnection(code uint64, reason string) {
	if c.closed {
		return
	}
	for _, side := range []*Conn{c, c.peer} {
		side.closed = true
		side.closeCode = code
		side.closeReason = reason
		side.streams = make(map[types.StreamID]*Stream)
		side.incomingBidi = nil
		side.incomingUni = nil

		conn := side
		c.net.post(func() {
			if conn.visitor != nil {
				conn.visitor.OnConnectionClosed(code, reason)
			}
		})
	}
}
