package stream

import (
	"github.com/dep2p/go-sessmux/pkg/types"
)

// 传输层错误码
const (
	// appErrorFirst 应用错误码映射区间起点
	appErrorFirst uint64 = 0x52e4a40fa8db
	// appErrorLast 应用错误码映射区间终点
	appErrorLast uint64 = 0x52e5ac983162

	// InternalErrorCode 内部错误使用的固定传输层错误码
	InternalErrorCode uint64 = 0x102
)

// AppCodeToTransport 把应用流错误码映射为传输层错误码
//
// 映射跳过形如 0x1f*N+0x21 的保留码点。
func AppCodeToTransport(code types.StreamErrorCode) uint64 {
	c := uint64(code)
	return appErrorFirst + c + c/0x1e
}

// TransportCodeToApp 把传输层错误码还原为应用错误码
//
// 不在映射区间内或落在保留码点上时返回 false。
func TransportCodeToApp(code uint64) (types.StreamErrorCode, bool) {
	if code < appErrorFirst || code > appErrorLast {
		return 0, false
	}
	if (code-0x21)%0x1f == 0 {
		return 0, false
	}
	shifted := code - appErrorFirst
	return types.StreamErrorCode(shifted - shifted/0x1f), true
}
