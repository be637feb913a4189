package ws

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"fs-bridge-go-server/domain/entity"
	domainErrors "fs-bridge-go-server/domain/errors"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ========== Actor Model: Room 是一个预览会话的自治单元 ==========
// clients map 只在 run() 循环内访问，无需锁！

// SessionHandler 会话的业务逻辑（事件协调、变更流），由 Hub 的工厂创建
type SessionHandler interface {
	// HandleEvent 处理编辑器事件，不能阻塞读循环
	HandleEvent(ctx context.Context, msg *WSMessage) error
	// State 返回可持久化的会话状态和变化计数
	State() ([]byte, uint64)
	// Close 房间销毁时调用
	Close()
}

// HandlerFactory 为新房间创建 SessionHandler
type HandlerFactory func(room *Room, record *entity.PreviewSession) (SessionHandler, error)

// Room 一个预览会话：编辑器连接 + 会话状态 + SDK 调用
type Room struct {
	ID      string
	SiteID  string
	Preview bool
	Version int64

	// 私有 clients map - 只在 run() 内访问，无需锁
	clients     map[*Client]bool
	clientCount atomic.Int32

	// 事件通道：所有操作都变成消息
	broadcast  chan *RoomBroadcast // 广播消息
	register   chan *Client        // 加入请求
	unregister chan *Client        // 退出请求
	stopChan   chan struct{}       // 停止信号
	done       chan struct{}       // 事件循环已退出
	stopOnce   sync.Once
	stopping   atomic.Bool
	stopReason *ErrorPayload

	// 等待编辑器返回的 SDK 调用
	pendingMu sync.Mutex
	pending   map[string]chan *SDKResultPayload

	handler SessionHandler

	// 刷盘相关
	stateMu              sync.Mutex
	flushMu              sync.Mutex
	lastPersistedVersion int64
	flushedChanges       uint64
	flushSealed          bool // 最后一次刷盘之后不再写库
	flushTicker          *time.Ticker
	service              SessionService

	// 反向引用：房间空闲时通知 Hub
	hub *Hub
}

// RoomBroadcast 广播消息结构
type RoomBroadcast struct {
	Message    []byte
	Sender     *Client
	IsCritical bool
}

// 刷盘和调用配置
const (
	FlushInterval  = 30 * time.Second
	FlushThreshold = 50
	CallTimeout    = 10 * time.Second
)

// NewRoom 创建房间，用工厂构建会话逻辑后启动事件循环
func NewRoom(record *entity.PreviewSession, service SessionService, hub *Hub, factory HandlerFactory) (*Room, error) {
	r := newRoom(record, service, hub)
	if factory != nil {
		handler, err := factory(r, record)
		if err != nil {
			r.flushTicker.Stop()
			return nil, fmt.Errorf("create session handler: %w", err)
		}
		r.handler = handler
	}

	go r.run() // 启动房间事件循环

	log.Printf("[Room %s] 🚀 已创建并启动", r.ID)
	return r, nil
}

func newRoom(record *entity.PreviewSession, service SessionService, hub *Hub) *Room {
	return &Room{
		ID:                   record.SessionID,
		SiteID:               record.SiteID,
		Preview:              record.Preview,
		Version:              record.Version,
		clients:              make(map[*Client]bool),
		broadcast:            make(chan *RoomBroadcast, 256),
		register:             make(chan *Client),
		unregister:           make(chan *Client),
		stopChan:             make(chan struct{}),
		done:                 make(chan struct{}),
		pending:              make(map[string]chan *SDKResultPayload),
		lastPersistedVersion: record.Version,
		flushTicker:          time.NewTicker(FlushInterval),
		service:              service,
		hub:                  hub,
	}
}

// run 是房间的主宰，所有连接管理都在这里串行处理，所以 clients map 不需要锁！
func (r *Room) run() {
	defer func() {
		r.flushTicker.Stop()
		r.flushToDB("销毁前")
		r.flushMu.Lock()
		r.flushSealed = true
		r.flushMu.Unlock()
		if r.handler != nil {
			r.handler.Close()
		}
		for client := range r.clients {
			if r.stopReason != nil {
				r.sendTo(client, TypeError, r.stopReason)
			}
			delete(r.clients, client)
			client.closeSend()
		}
		r.clientCount.Store(0)
		close(r.done)
		log.Printf("[Room %s] 🛑 事件循环已停止", r.ID)
	}()

	for {
		select {
		// 1. 处理客户端注册 (无锁！)
		case client := <-r.register:
			r.clients[client] = true
			r.clientCount.Store(int32(len(r.clients)))
			r.sendSyncToClient(client)
			r.notifyOthers(client, TypeUserJoin, client.UserInfo)
			log.Printf("[Room %s] 👋 用户 [%s] 加入，当前连接数: %d",
				r.ID, client.UserInfo.UserName, len(r.clients))

		// 2. 处理客户端注销 (无锁！)
		case client := <-r.unregister:
			if _, ok := r.clients[client]; ok {
				delete(r.clients, client)
				r.clientCount.Store(int32(len(r.clients)))
				client.closeSend()
				r.notifyOthers(client, TypeUserLeave, client.UserInfo)
				log.Printf("[Room %s] 👋 用户 [%s] 离开，剩余连接数: %d",
					r.ID, client.UserInfo.UserName, len(r.clients))

				// 房间空了，请求 Hub 销毁（Hub 会做二次检查）
				if len(r.clients) == 0 && r.hub != nil {
					go r.hub.NotifyIdle(r)
				}
			}

		// 3. 处理广播 (核心热路径 - 无锁！)
		case msg := <-r.broadcast:
			for client := range r.clients {
				if msg.Sender != nil && client == msg.Sender {
					continue
				}

				if !client.trySend(msg.Message) {
					// 缓冲区满
					if msg.IsCritical {
						log.Printf("[Room %s] ⚠️ 关键消息阻塞，踢出 [%s]",
							r.ID, client.UserInfo.UserName)
						delete(r.clients, client)
						r.clientCount.Store(int32(len(r.clients)))
						client.closeSend()
					}
					// 非关键消息直接丢弃
				}
			}

		// 4. 定时刷盘
		case <-r.flushTicker.C:
			r.flushToDB("定时")

		// 5. 停止信号
		case <-r.stopChan:
			return
		}
	}
}

// sendSyncToClient 发送全量同步消息给新连接
func (r *Room) sendSyncToClient(client *Client) {
	var state []byte
	if r.handler != nil {
		state, _ = r.handler.State()
	}
	if len(state) == 0 {
		state = []byte("{}")
	}

	users := make([]UserInfo, 0, len(r.clients))
	for c := range r.clients {
		if c != client {
			users = append(users, c.UserInfo)
		}
	}

	r.stateMu.Lock()
	version := r.Version
	r.stateMu.Unlock()

	r.sendTo(client, TypeSync, SyncPayload{
		SessionID: r.ID,
		SiteID:    r.SiteID,
		Preview:   r.Preview,
		State:     state,
		Version:   version,
		Users:     users,
	})
	log.Printf("[Room %s] 📤 已发送 Sync 给 [%s], 版本: %d", r.ID, client.UserInfo.UserName, version)
}

// notifyOthers 在事件循环内通知其他连接（加入/离开），丢弃即可
func (r *Room) notifyOthers(except *Client, msgType MessageType, payload any) {
	for c := range r.clients {
		if c != except {
			r.sendTo(c, msgType, payload)
		}
	}
}

func (r *Room) sendTo(client *Client, msgType MessageType, payload any) {
	data, err := newMessage(msgType, "", payload, time.Now().UnixMilli())
	if err != nil {
		log.Printf("[Room %s] ⚠️ 编码 %s 失败: %v", r.ID, msgType, err)
		return
	}
	client.trySend(data)
}

// ========== 对外暴露的接口 ==========

// Register 注册客户端到房间
func (r *Room) Register(client *Client) error {
	client.Room = r
	select {
	case r.register <- client:
		return nil
	case <-r.done:
		return domainErrors.ErrRoomClosing
	}
}

// Unregister 注销客户端
func (r *Room) Unregister(client *Client) {
	select {
	case r.unregister <- client:
	case <-r.done:
	}
}

// Broadcast 广播消息
func (r *Room) Broadcast(message []byte, sender *Client, isCritical bool) {
	select {
	case r.broadcast <- &RoomBroadcast{Message: message, Sender: sender, IsCritical: isCritical}:
	case <-r.done:
	}
}

// ClientCount 当前连接数
func (r *Room) ClientCount() int {
	return int(r.clientCount.Load())
}

// IsStopping 房间是否正在关闭
func (r *Room) IsStopping() bool {
	return r.stopping.Load()
}

// Stop 停止房间（由 Hub 调用），阻塞到刷盘完成
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		r.stopping.Store(true)
		close(r.stopChan)
	})
	<-r.done
}

// StopWithReason 通知所有连接后停止房间
func (r *Room) StopWithReason(code ErrorCode, message string) {
	r.stopOnce.Do(func() {
		r.stopReason = &ErrorPayload{Code: code, Message: message}
		r.stopping.Store(true)
		close(r.stopChan)
	})
	<-r.done
}

// HandleEvent 把编辑器事件交给会话逻辑
func (r *Room) HandleEvent(ctx context.Context, msg *WSMessage) error {
	if r.handler == nil {
		return nil
	}
	if err := r.handler.HandleEvent(ctx, msg); err != nil {
		return err
	}

	// 阈值刷盘
	_, changes := r.handler.State()
	r.stateMu.Lock()
	pending := changes - r.flushedChanges
	r.stateMu.Unlock()
	if pending >= FlushThreshold {
		go r.flushToDB("阈值触发")
	}
	return nil
}

// ========== SDK 调用（服务端 -> 编辑器 RPC） ==========

// Call 调用编辑器 SDK 并等待结果
func (r *Room) Call(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	if r.IsStopping() {
		return nil, domainErrors.ErrRoomClosing
	}
	if r.ClientCount() == 0 {
		return nil, domainErrors.ErrNoEditorConnected
	}
	if args == nil {
		args = []any{}
	}

	msgID := uuid.NewString()
	resultCh := make(chan *SDKResultPayload, 1)
	r.pendingMu.Lock()
	r.pending[msgID] = resultCh
	r.pendingMu.Unlock()
	defer func() {
		r.pendingMu.Lock()
		delete(r.pending, msgID)
		r.pendingMu.Unlock()
	}()

	data, err := newMessage(TypeSDKCall, msgID, SDKCallPayload{Method: method, Args: args}, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	r.Broadcast(data, nil, true)

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	select {
	case result := <-resultCh:
		if result.Error != "" {
			return nil, &RPCError{Method: method, Message: result.Error}
		}
		return result.Result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("sdk call %s: %w", method, ctx.Err())
	case <-r.done:
		return nil, domainErrors.ErrRoomClosing
	}
}

// Notify 尽力而为的 SDK 命令：不带 msgId，不等待结果
func (r *Room) Notify(method string, args ...any) {
	if args == nil {
		args = []any{}
	}
	data, err := newMessage(TypeSDKCall, "", SDKCallPayload{Method: method, Args: args}, time.Now().UnixMilli())
	if err != nil {
		log.Printf("[Room %s] ⚠️ 编码 SDK 命令 %s 失败: %v", r.ID, method, err)
		return
	}
	r.Broadcast(data, nil, false)
}

// ResolveCall 编辑器返回了 SDK 调用结果
func (r *Room) ResolveCall(msgID string, result *SDKResultPayload) bool {
	r.pendingMu.Lock()
	ch, ok := r.pending[msgID]
	r.pendingMu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- result:
	default:
		// 多个编辑器连接时只采用第一个结果
	}
	return true
}

// SendCommand 向会话内所有连接发送命令（navigate、set-language）
func (r *Room) SendCommand(msgType MessageType, payload any) error {
	if r.IsStopping() {
		return domainErrors.ErrRoomClosing
	}
	if r.ClientCount() == 0 {
		return domainErrors.ErrNoEditorConnected
	}
	data, err := newMessage(msgType, "", payload, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	r.Broadcast(data, nil, true)
	return nil
}

// ========== 刷盘 ==========

// flushToDB 会话状态有变化时写库（乐观锁）
func (r *Room) flushToDB(reason string) {
	if r.handler == nil || r.service == nil {
		return
	}
	r.flushMu.Lock()
	defer r.flushMu.Unlock()
	if r.flushSealed {
		return
	}

	state, changes := r.handler.State()
	r.stateMu.Lock()
	if changes == r.flushedChanges {
		r.stateMu.Unlock()
		return
	}
	oldVersion := r.lastPersistedVersion
	r.stateMu.Unlock()

	newVersion := oldVersion + 1
	if err := r.service.SaveSessionState(r.ID, state, oldVersion, newVersion); err != nil {
		log.Printf("[Room %s] ⚠️ %s刷盘失败: %v", r.ID, reason, err)
		return
	}

	r.stateMu.Lock()
	r.lastPersistedVersion = newVersion
	r.flushedChanges = changes
	r.Version = newVersion
	r.stateMu.Unlock()
	log.Printf("[Room %s] ✅ %s刷盘, 版本: %d", r.ID, reason, newVersion)
}
