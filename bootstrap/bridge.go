package bootstrap

import (
	"log"

	"fs-bridge-go-server/internal/config"
	"fs-bridge-go-server/internal/merge"
)

// LoadBridge 加载站点桥接配置并为每个站点构建合并流水线
// 配置在启动时加载一次，之后只读
func LoadBridge(path string) (*config.BridgeConfig, merge.Pipelines) {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("❌ 加载桥接配置 %s 失败: %v", path, err)
	}

	pipelines, err := merge.NewPipelines(cfg)
	if err != nil {
		log.Fatalf("❌ 构建合并流水线失败: %v", err)
	}

	log.Printf("✅ 桥接配置加载完成，站点数: %d", len(cfg.Bridge))
	return cfg, pipelines
}
