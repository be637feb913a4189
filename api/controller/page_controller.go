package controller

import (
	"context"
	"errors"
	"log"
	"net/http"

	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"
	"fs-bridge-go-server/usecase"

	"github.com/gin-gonic/gin"
)

// --- 响应结构定义 ---

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse 消息响应结构
type MessageResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// --- 控制器定义 ---

// PageLoader 合并页面的读取能力（由 usecase.PageUseCase 实现）
type PageLoader interface {
	GetPage(ctx context.Context, pageContext entity.PageContext) (*entity.PageStructure, error)
}

var _ PageLoader = (*usecase.PageUseCase)(nil)

// PageController 合并页面 HTTP 控制器
type PageController struct {
	pages PageLoader
}

// NewPageController 创建 PageController 实例
func NewPageController(pages PageLoader) *PageController {
	return &PageController{pages: pages}
}

// PageQuery 页面查询参数
type PageQuery struct {
	PageType      string `form:"pageType" binding:"omitempty,oneof=ContentPage ProductPage CategoryPage CatalogPage"`
	PageLabelOrID string `form:"pageLabelOrId"`
	Lang          string `form:"lang" binding:"omitempty,max=16"`
	Preview       bool   `form:"preview"`
}

// GetPage 获取合并后的页面
// GET /api/sites/:siteId/pages?pageType=&pageLabelOrId=&lang=&preview=
// pageType 缺省为 ContentPage，pageLabelOrId 缺省为 homepage
func (pc *PageController) GetPage(c *gin.Context) {
	siteID := c.Param("siteId")
	if siteID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "siteId 不能为空"})
		return
	}

	var query PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "查询参数无效", Details: err.Error()})
		return
	}

	pageContext := entity.PageContext{
		SiteID:   siteID,
		ID:       query.PageLabelOrID,
		Type:     entity.PageType(query.PageType),
		Language: query.Lang,
		Preview:  query.Preview,
	}
	if pageContext.Type == "" {
		pageContext.Type = entity.PageTypeContent
	}
	if pageContext.ID == "" {
		pageContext.ID = "homepage"
	}

	page, err := pc.pages.GetPage(c.Request.Context(), pageContext)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrPageNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "页面不存在"})
		case errors.Is(err, domainErrors.ErrSiteNotConfigured):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "站点未配置", Details: err.Error()})
		default:
			log.Printf("[API] ❌ 获取页面 %s/%s 失败: %v", siteID, pageContext.ID, err)
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: "页面加载失败", Details: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, page)
}
