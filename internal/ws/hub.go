package ws

import (
	"errors"
	"log"
	"sync"

	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"
)

// ========== Actor Model: Hub 是生死的唯一仲裁者 ==========
// Hub 不处理任何编辑器事件，只管理预览会话房间的生命周期

// Hub 维护会话房间目录
type Hub struct {
	rooms    map[string]*Room
	mu       sync.RWMutex
	idleRoom chan *Room // Room 空闲信号（请求销毁）
	service  SessionService
	factory  HandlerFactory
}

// SessionService 会话持久化接口
type SessionService interface {
	// GetSession 会话不存在时返回 ErrSessionNotFound
	GetSession(sessionID string) (*entity.PreviewSession, error)
	// SaveSessionState 乐观锁保存会话状态
	SaveSessionState(sessionID string, state []byte, oldVersion, newVersion int64) error
}

// NewHub 创建 Hub 实例，factory 为每个新房间构建会话逻辑
func NewHub(service SessionService, factory HandlerFactory) *Hub {
	return &Hub{
		rooms:    make(map[string]*Room),
		idleRoom: make(chan *Room, 16),
		service:  service,
		factory:  factory,
	}
}

// Run Hub 事件循环
func (h *Hub) Run() {
	log.Println("[Hub] 🚀 Hub 已启动")

	for room := range h.idleRoom {
		// handleIdleRoom 会阻塞等待刷盘
		go h.handleIdleRoom(room)
	}
}

// handleIdleRoom 双重检查后销毁空闲房间
func (h *Hub) handleIdleRoom(room *Room) {
	if room.ClientCount() > 0 {
		log.Printf("[Hub] 🔄 会话 %s 已有新连接，取消销毁", room.ID)
		return
	}

	room.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	// 检查指针同一性，防止误删刷盘期间新建的房间
	if current, ok := h.rooms[room.ID]; ok && current == room {
		delete(h.rooms, room.ID)
		log.Printf("[Hub] 🗑️ 会话房间 %s 已销毁", room.ID)
	} else {
		log.Printf("[Hub] ⚠️ 会话房间 %s 已被替换或移除，跳过删除", room.ID)
	}
}

// GetRoom 只读获取房间，不创建
func (h *Hub) GetRoom(sessionID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[sessionID]
}

// GetOrCreateRoom 线程安全地获取或创建会话房间
// 只有数据库中存在的会话才会创建房间
func (h *Hub) GetOrCreateRoom(sessionID string) (*Room, error) {
	h.mu.RLock()
	room, exists := h.rooms[sessionID]
	h.mu.RUnlock()

	if exists {
		if room.IsStopping() {
			log.Printf("[Hub] ⏳ 会话 %s 正在关闭，请客户端重试", sessionID)
			return nil, domainErrors.ErrRoomClosing
		}
		return room, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// 双重检查
	if room, exists = h.rooms[sessionID]; exists {
		if room.IsStopping() {
			return nil, domainErrors.ErrRoomClosing
		}
		return room, nil
	}

	record, err := h.service.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			log.Printf("[Hub] ❌ 会话 %s 不存在，拒绝创建房间", sessionID)
			return nil, domainErrors.ErrSessionNotFound
		}
		log.Printf("[Hub] ⚠️ 加载会话 %s 失败: %v", sessionID, err)
		return nil, err
	}

	room, err = NewRoom(record, h.service, h, h.factory)
	if err != nil {
		log.Printf("[Hub] ⚠️ 会话 %s 初始化失败: %v", sessionID, err)
		return nil, err
	}
	h.rooms[sessionID] = room

	log.Printf("[Hub] 🏠 创建会话房间 %s，站点: %s，版本: %d", sessionID, record.SiteID, record.Version)
	return room, nil
}

// NotifyIdle 供 Room 调用，通知 Hub 房间空闲
func (h *Hub) NotifyIdle(room *Room) {
	h.idleRoom <- room
}

// CloseRoom 强制关闭房间（删除会话、删除用户时调用）
// 先关闭房间并刷盘，调用方再删数据库
func (h *Hub) CloseRoom(sessionID string, reason string) {
	h.mu.Lock()
	room, exists := h.rooms[sessionID]
	if !exists {
		h.mu.Unlock()
		log.Printf("[Hub] ℹ️ 会话 %s 不在内存中，无需关闭", sessionID)
		return
	}
	delete(h.rooms, sessionID)
	h.mu.Unlock()

	room.StopWithReason(ErrSessionClosed, reason)
	log.Printf("[Hub] 💀 强制关闭会话房间 %s: %s", sessionID, reason)
}

// Shutdown 停止所有房间并刷盘（进程退出时调用）
func (h *Hub) Shutdown() {
	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for id, room := range h.rooms {
		rooms = append(rooms, room)
		delete(h.rooms, id)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, room := range rooms {
		wg.Add(1)
		go func(r *Room) {
			defer wg.Done()
			r.Stop()
		}(room)
	}
	wg.Wait()
	log.Printf("[Hub] 🛑 已关闭 %d 个会话房间", len(rooms))
}
