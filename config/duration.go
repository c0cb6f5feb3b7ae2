package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 可从 JSON 读取的时长
//
// 接受 "250ms"、"30s" 这样的字符串，也接受纳秒整数。
// 序列化时总是输出字符串。
type Duration time.Duration

// UnmarshalJSON 解析字符串或纳秒整数
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(int64(v))
	default:
		return fmt.Errorf("duration must be a string like \"30s\" or nanoseconds, got %s", data)
	}
	return nil
}

// MarshalJSON 输出 time.Duration 的字符串形式
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 底层 time.Duration
func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }
