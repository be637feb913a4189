package bootstrap

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env 环境变量配置结构
type Env struct {
	DatabaseURL    string   // PostgreSQL 连接字符串
	ClerkSecretKey string   // Clerk API 密钥
	WebhookSecret  string   // Clerk Webhook 签名密钥
	Port           string   // 服务端口
	BridgeConfig   string   // 站点桥接配置文件路径
	AllowedOrigins []string // 允许的店面/编辑器来源
}

// LoadEnv 加载环境变量
// 开发环境从 .env 文件加载，生产环境从系统环境变量读取
func LoadEnv() *Env {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env 文件未找到，将使用系统环境变量")
	}

	env := &Env{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),
		WebhookSecret:  os.Getenv("CLERK_WEBHOOK_SECRET"),
		Port:           os.Getenv("PORT"),
		BridgeConfig:   os.Getenv("BRIDGE_CONFIG"),
		AllowedOrigins: ParseOrigins(os.Getenv("ALLOWED_ORIGINS")),
	}

	if env.Port == "" {
		env.Port = "8080"
	}
	if env.BridgeConfig == "" {
		env.BridgeConfig = "bridge.yaml"
	}

	if env.DatabaseURL == "" {
		log.Fatal("❌ 缺少必需环境变量: DATABASE_URL")
	}

	log.Printf("✅ 环境变量加载完成, 端口: %s, 桥接配置: %s", env.Port, env.BridgeConfig)
	return env
}

// ParseOrigins 解析逗号分隔的来源列表
func ParseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, strings.TrimSuffix(o, "/"))
		}
	}
	return origins
}
