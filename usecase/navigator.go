package usecase

import (
	"context"
	"log"
	"net/url"
	"strings"

	"fs-bridge-go-server/domain/entity"
	"fs-bridge-go-server/internal/preview"
	"fs-bridge-go-server/internal/ws"
)

// RouteFor 把 "{PageType}:{id}" 形式的商城页面 ID 转成商城前端路由
// 无法识别的类型返回 false
func RouteFor(commercePageID string) (string, bool) {
	pageType, id, ok := strings.Cut(commercePageID, ":")
	if !ok || id == "" {
		return "", false
	}

	switch entity.PageType(pageType) {
	case entity.PageTypeContent:
		if id == preview.HomepageUID {
			return "/", true
		}
		if strings.HasPrefix(id, "/") {
			return id, true
		}
		return "/" + url.PathEscape(id), true
	case entity.PageTypeProduct:
		return "/product/" + url.PathEscape(id), true
	case entity.PageTypeCategory:
		return "/category/" + url.PathEscape(id), true
	}
	return "", false
}

// commandSender 会话房间的命令能力
type commandSender interface {
	SendCommand(msgType ws.MessageType, payload any) error
}

// Navigator 通过会话房间驱动商城前端，实现 preview.Storefront
type Navigator struct {
	room commandSender
}

var _ preview.Storefront = (*Navigator)(nil)

// NewNavigator 构造函数
func NewNavigator(room *ws.Room) *Navigator {
	return &Navigator{room: room}
}

// NavigateTo 发送 navigate 命令
func (n *Navigator) NavigateTo(ctx context.Context, commercePageID string) (bool, error) {
	route, ok := RouteFor(commercePageID)
	if !ok {
		log.Printf("[Navigator] ⚠️ 无法为商城页面 %s 生成路由", commercePageID)
		return false, nil
	}
	if err := n.room.SendCommand(ws.TypeNavigate, ws.NavigatePayload{Route: route, PageID: commercePageID}); err != nil {
		return false, err
	}
	return true, nil
}

// SetActiveLanguage 发送 set-language 命令
func (n *Navigator) SetActiveLanguage(ctx context.Context, lang string) error {
	return n.room.SendCommand(ws.TypeSetLanguage, ws.LanguagePayload{Lang: lang})
}
