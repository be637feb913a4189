package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fs-bridge-go-server/api/controller"
	"fs-bridge-go-server/api/middleware"
	"fs-bridge-go-server/api/route"
	"fs-bridge-go-server/bootstrap"
	"fs-bridge-go-server/internal/caas"
	"fs-bridge-go-server/internal/occ"
	"fs-bridge-go-server/internal/ws"
	"fs-bridge-go-server/repository"
	"fs-bridge-go-server/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("[Server] FirstSpirit Bridge Server 启动中...")

	// 加载环境变量与桥接配置
	env := bootstrap.LoadEnv()
	cfg, pipelines := bootstrap.LoadBridge(env.BridgeConfig)

	// 初始化 Clerk
	bootstrap.InitClerk(env.ClerkSecretKey)

	// 连接数据库
	db := bootstrap.NewDatabase(env.DatabaseURL)

	// 上游 HTTP 客户端（OCC、CaaS、securetoken 共用）
	httpClient := &http.Client{Timeout: 10 * time.Second}

	// 依赖注入 - Repository 层
	sessionRepo := repository.NewSessionRepository(db)
	userRepo := repository.NewUserRepository(db)

	// 依赖注入 - 页面来源
	caasFactory := caas.NewClientFactory(cfg, httpClient)
	commercePages := occ.NewPageLoader(cfg, httpClient)
	cmsPages := caas.NewPageAdapter(caasFactory)

	// 依赖注入 - UseCase 层
	drivenUseCase := usecase.NewDrivenPageUseCase(cfg, commercePages, pipelines)
	pageUseCase := usecase.NewPageUseCase(commercePages, cmsPages, drivenUseCase, pipelines)
	handlerFactory := usecase.NewSessionHandlerFactory(cfg, caasFactory, httpClient)

	// WebSocket Hub：每个预览会话一个房间
	hub := ws.NewHub(sessionRepo.(ws.SessionService), handlerFactory.New)
	previewUseCase := usecase.NewPreviewUseCase(sessionRepo, hub, cfg)

	// 依赖注入 - Controller 层
	origins := env.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:4200", "http://localhost:3000"}
	}
	pageController := controller.NewPageController(pageUseCase)
	sessionController := controller.NewSessionController(previewUseCase)
	wsHandler := controller.NewWSHandler(hub, origins, middleware.ClerkVerifier)
	webhookController := controller.NewWebhookController(userRepo, previewUseCase, env.WebhookSecret)

	// 启动 Hub 事件循环
	go hub.Run()

	router := gin.Default()

	// CORS 配置（店面 + 编辑器）
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	route.Setup(router, &route.Dependencies{
		PageController:    pageController,
		SessionController: sessionController,
		WSHandler:         wsHandler,
		WebhookController: webhookController,
	})

	srv := &http.Server{
		Addr:    ":" + env.Port,
		Handler: router,
	}

	go func() {
		log.Printf("[Server] 服务已启动: http://localhost:%s", env.Port)
		log.Printf("[Server] API 端点:")
		log.Printf("   GET    /health                               - 健康检查")
		log.Printf("   GET    /api/sites/:siteId/pages              - 获取合并页面")
		log.Printf("   POST   /api/preview-sessions                 - 创建预览会话")
		log.Printf("   GET    /api/preview-sessions                 - 列出预览会话")
		log.Printf("   DELETE /api/preview-sessions/:sessionId      - 删除预览会话")
		log.Printf("   GET    /ws?sessionId=xxx&token=xxx           - 编辑器桥接连接")
		log.Printf("   POST   /webhook/clerk                        - Clerk Webhook")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] 服务启动失败: %v", err)
		}
	}()

	// 优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] 收到停机信号，正在优雅关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Server] ⚠️ HTTP 服务强制关闭: %v", err)
	}

	// 关闭所有会话房间：刷盘并断开 CaaS 变更流
	hub.Shutdown()

	log.Println("[Server] 服务已安全停止")
}
