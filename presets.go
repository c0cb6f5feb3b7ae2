package sessmux

import (
	"github.com/dep2p/go-sessmux/config"
)

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置常量
// ════════════════════════════════════════════════════════════════════════════

// 预设名称常量
const (
	// PresetDefault 默认配置
	PresetDefault = "default"

	// PresetLowLatency 更短的超时与更小的缓冲
	PresetLowLatency = "lowlatency"

	// PresetConstrained 低资源占用
	PresetConstrained = "constrained"

	// PresetServer 更多并发流与更大的窗口
	PresetServer = "server"
)

// PresetConfig 返回应用了预设的统一配置
//
// 示例：
//
//	cfg, _ := sessmux.PresetConfig(sessmux.PresetServer)
//	cfg.Transport.QUIC.EnableDatagrams = false
//	ep, _ := sessmux.New(sessmux.WithConfig(cfg))
func PresetConfig(name string) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := config.ApplyPreset(cfg, name); err != nil {
		return nil, err
	}
	return cfg, nil
}
