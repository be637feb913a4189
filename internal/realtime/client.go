package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"fs-bridge-go-server/internal/caas"

	"github.com/gorilla/websocket"
)

const (
	defaultConnectionTimeout = 6 * time.Second
	maxMessageSize           = 1 << 20
)

// Focus 实时客户端与事件协调器共享的 "当前预览元素"
type Focus interface {
	CurrentPreviewID() string
	// FocusHomepage 切回缓存的首页并重新渲染（异步执行）
	FocusHomepage()
}

// Options 连接与重连参数
// 出错后按 InitialDelay 指数退避（带抖动），不超过 MaxDelay，最多重试 MaxRetries 次（0 不限次数）
type Options struct {
	ConnectionTimeout time.Duration
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	MaxRetries        int
	Debug             bool
}

// Client CaaS 变更流客户端，同一时刻最多持有一个连接
type Client struct {
	focus      Focus
	opts       Options
	httpClient *http.Client
	dialer     *websocket.Dialer

	// 只在 Init 和 run 协程中访问
	access *caas.AccessData
	apiKey string
	token  string

	mu     sync.Mutex
	active *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient 构造函数
func NewClient(focus Focus, opts Options, httpClient *http.Client) *Client {
	if opts.ConnectionTimeout <= 0 {
		opts.ConnectionTimeout = defaultConnectionTimeout
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = time.Second
	}
	if opts.MaxDelay < opts.InitialDelay {
		opts.MaxDelay = opts.InitialDelay
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.ConnectionTimeout}
	}
	return &Client{
		focus:      focus,
		opts:       opts,
		httpClient: httpClient,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.ConnectionTimeout,
		},
	}
}

// Init 获取令牌并连接变更流；已有连接时先关闭
// 初次连接失败直接返回错误，之后的断线由后台协程负责重连
func (c *Client) Init(ctx context.Context, access *caas.AccessData, apiKey string) error {
	c.Close()

	c.access = access
	c.apiKey = apiKey
	c.token = ""

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.active = conn
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(runCtx, conn, done)
	log.Printf("[Realtime] ✅ 已连接 CaaS 变更流: %s", access.CollectionURL())
	return nil
}

// Close 关闭连接并停止重连，可重复调用，没有连接时也安全
func (c *Client) Close() {
	c.mu.Lock()
	cancel, done, conn := c.cancel, c.done, c.active
	c.cancel, c.done, c.active = nil, nil, nil
	if cancel != nil {
		// 在锁内取消，reconnect 之后不会再登记新连接
		cancel()
	}
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	if conn != nil {
		// 打断阻塞中的 ReadMessage
		conn.Close()
	}
	<-done
	c.debugf("ws closed")
}

// Connected 当前是否持有连接
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	if !tokenReusable(c.token, time.Now()) {
		token, err := FetchToken(ctx, c.httpClient, c.access.TokenURL(), c.apiKey)
		if err != nil {
			return nil, err
		}
		c.token = token
	}

	streamURL, err := c.access.ChangeStreamURL(c.token)
	if err != nil {
		return nil, err
	}
	conn, _, err := c.dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		// 令牌可能已失效，下次重新获取
		c.token = ""
		return nil, fmt.Errorf("dial change stream: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)
	c.debugf("ws opened")
	return conn, nil
}

func (c *Client) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		err := c.readLoop(conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.debugf("ws error: %v", err)

		conn = c.reconnect(ctx)
		if conn == nil {
			return
		}
	}
}

// readLoop 读取消息直到连接出错；单条消息的错误只影响该消息
func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := c.HandleMessage(message); err != nil {
			log.Printf("[Realtime] ⚠️ 丢弃变更消息: %v", err)
		}
	}
}

func (c *Client) reconnect(ctx context.Context) *websocket.Conn {
	for attempt := 1; c.opts.MaxRetries == 0 || attempt <= c.opts.MaxRetries; attempt++ {
		delay := c.backoff(attempt)
		log.Printf("[Realtime] 🔄 %v 后重连 (%d/%d)", delay, attempt, c.opts.MaxRetries)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		conn, err := c.connect(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Printf("[Realtime] ⚠️ 重连失败: %v", err)
			continue
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			conn.Close()
			return nil
		}
		c.active = conn
		c.mu.Unlock()

		log.Printf("[Realtime] ✅ 重连成功")
		return conn
	}

	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
	log.Printf("[Realtime] ❌ 重连 %d 次失败，放弃", c.opts.MaxRetries)
	return nil
}

// backoff 第 attempt 次重连前的等待时间：指数增长，上限 MaxDelay，随机落在 [d/2, d]
func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.InitialDelay
	for i := 1; i < attempt && d < c.opts.MaxDelay; i++ {
		d *= 2
	}
	if d > c.opts.MaxDelay {
		d = c.opts.MaxDelay
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int63n(int64(half+1)))
}

// HandleMessage 处理一条变更消息
// 当前元素被删除时切回首页，其它事件只记录调试日志
func (c *Client) HandleMessage(data []byte) error {
	event, err := ParseChangeEvent(data)
	if err != nil {
		return err
	}

	current := c.focus.CurrentPreviewID()
	if event.ChangeType == ChangeDelete && event.DocumentID == current {
		log.Printf("[Realtime] 当前元素 %s 已被删除，切回首页", event.DocumentID)
		c.focus.FocusHomepage()
		return nil
	}

	if event.DocumentID == current {
		c.debugf("Received event for CURRENT SET PAGE with change type '%s'", event.ChangeType)
	} else {
		c.debugf("Received event for '%s' with change type '%s'", event.DocumentID, event.ChangeType)
	}
	return nil
}

func (c *Client) debugf(format string, args ...any) {
	if c.opts.Debug {
		log.Printf("[Realtime] "+format, args...)
	}
}
