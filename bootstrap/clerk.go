package bootstrap

import (
	"log"

	"github.com/clerk/clerk-sdk-go/v2"
)

// InitClerk 设置 Clerk 全局密钥，会话接口和编辑器连接都依赖它校验 JWT
func InitClerk(secret string) {
	if secret == "" {
		log.Fatal("❌ 未找到 CLERK_SECRET_KEY")
	}
	clerk.SetKey(secret)

	log.Println("✅ Clerk 初始化成功")
}
