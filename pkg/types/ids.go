package types

import "fmt"

// ============================================================================
//                              StreamID - 流标识
// ============================================================================

// StreamID 流 ID
//
// 在单个会话内唯一，仅用于标识，不代表所有权。
// 底层流对象随时可能被传输层销毁，持有方必须通过 ID 重新查找。
type StreamID uint64

// String 返回流 ID 的字符串表示
func (id StreamID) String() string {
	return fmt.Sprintf("stream-%d", uint64(id))
}

// ============================================================================
//                              优先级
// ============================================================================

// SendGroupID 发送组 ID
//
// 同一发送组内的流共享一个公平性域，组与组之间轮询调度。
type SendGroupID uint64

// SendOrder 组内发送顺序
//
// 数值越小越先被调度。
type SendOrder int64

// StreamPriority 流优先级 = (发送组, 组内顺序)
type StreamPriority struct {
	SendGroupID SendGroupID
	SendOrder   SendOrder
}

// DefaultStreamPriority 新建流使用的默认优先级
var DefaultStreamPriority = StreamPriority{}

// String 返回优先级的字符串表示
func (p StreamPriority) String() string {
	return fmt.Sprintf("group=%d order=%d", uint64(p.SendGroupID), int64(p.SendOrder))
}

// ============================================================================
//                              Version - 会话协议版本
// ============================================================================

// Version 会话协议版本号
type Version uint64

// Version 常量
const (
	// VersionDraft02 第一个可互通版本
	VersionDraft02 Version = 0xff000002
	// VersionDraft07 当前推荐版本
	VersionDraft07 Version = 0xff000007
)

// String 返回版本的字符串表示
func (v Version) String() string {
	return fmt.Sprintf("0x%x", uint64(v))
}
