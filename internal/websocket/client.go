package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 512

	defaultClientBufferSize = 128

	// Максимум одновременных подписок одного соединения
	maxClientSubscriptions = 8
)

// Управляющие сообщения клиента
const (
	clientSubscribe   = "subscribe"
	clientUnsubscribe = "unsubscribe"
)

// ErrTooManySubscriptions - клиент превысил лимит подписок
var ErrTooManySubscriptions = errors.New("too many subscriptions")

// TopicAuthorizer решает, может ли клиент подписаться на топик
type TopicAuthorizer func(topic string) error

// Client является посредником между WebSocket соединением и Broker.
// Все подписки клиента отменяются при выходе из Serve, как бы он ни завершился.
type Client struct {
	UserID       string
	ConnectionID string

	conn      *websocket.Conn
	broker    *Broker
	authorize TopicAuthorizer

	send chan []byte
	done chan struct{}

	// ctx отменяется при закрытии соединения и снимает все подписки
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]*Subscription
	wg   sync.WaitGroup
}

// NewClient создает клиента для установленного соединения
func NewClient(conn *websocket.Conn, broker *Broker, userID string, authorize TopicAuthorizer) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ctx:          ctx,
		cancel:       cancel,
		UserID:       userID,
		ConnectionID: uuid.New().String(),
		conn:         conn,
		broker:       broker,
		authorize:    authorize,
		send:         make(chan []byte, defaultClientBufferSize),
		done:         make(chan struct{}),
		subs:         make(map[string]*Subscription),
	}
}

// Serve обслуживает соединение до его закрытия. Блокирует.
func (c *Client) Serve(initialTopics ...string) {
	defer func() {
		c.cancel()
		c.unsubscribeAll()
		close(c.done)
		c.wg.Wait()
		c.conn.Close()
		log.Printf("[WSClient] Соединение закрыто (UserID: %s, ConnID: %s)", c.UserID, c.ConnectionID)
	}()

	for _, topic := range initialTopics {
		if err := c.subscribe(topic); err != nil {
			c.sendError("subscribe_failed", err.Error())
		}
	}

	c.wg.Add(1)
	go c.writePump()
	c.readPump()
}

func (c *Client) subscribe(topic string) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	if c.authorize != nil {
		if err := c.authorize(topic); err != nil {
			return err
		}
	}

	c.mu.Lock()
	if _, ok := c.subs[topic]; ok {
		c.mu.Unlock()
		return nil
	}
	if len(c.subs) >= maxClientSubscriptions {
		c.mu.Unlock()
		return ErrTooManySubscriptions
	}
	sub := c.broker.SubscribeContext(c.ctx, topic)
	c.subs[topic] = sub
	c.mu.Unlock()

	c.wg.Add(1)
	go c.forward(sub)

	c.enqueue(mustMarshal(Event{Type: ServerSubscribed, Data: map[string]string{"topic": topic}}))
	return nil
}

func (c *Client) unsubscribe(topic string) {
	c.mu.Lock()
	sub, ok := c.subs[topic]
	delete(c.subs, topic)
	c.mu.Unlock()
	if ok {
		sub.Cancel()
	}
}

func (c *Client) unsubscribeAll() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]*Subscription)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
}

// forward перекладывает события подписки в очередь отправки клиента
func (c *Client) forward(sub *Subscription) {
	defer c.wg.Done()
	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			c.enqueue(msg)
		case <-c.done:
			return
		}
	}
}

func (c *Client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		log.Printf("[WSClient] Буфер отправки переполнен, сообщение отброшено (UserID: %s, ConnID: %s)", c.UserID, c.ConnectionID)
	}
}

func (c *Client) sendError(code, message string) {
	c.enqueue(mustMarshal(Event{
		Type: ServerError,
		Data: map[string]string{"code": code, "message": message},
	}))
}

// readPump читает управляющие сообщения клиента
func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WSClient] Ошибка чтения (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
			}
			return
		}
		if err := c.safeHandleMessage(message); err != nil {
			log.Printf("[WSClient] Ошибка обработчика (UserID: %s, ConnID: %s): %v. Закрываю соединение.", c.UserID, c.ConnectionID, err)
			return
		}
	}
}

// safeHandleMessage обрабатывает одно сообщение, превращая панику в ошибку
func (c *Client) safeHandleMessage(message []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WSClient] PANIC в обработчике (UserID: %s): %v\n%s", c.UserID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()

	var event struct {
		Type string `json:"type"`
		Data struct {
			Topic string `json:"topic"`
		} `json:"data"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		c.sendError("invalid_message_format", "Invalid JSON format")
		return nil
	}

	switch event.Type {
	case clientSubscribe:
		if err := c.subscribe(event.Data.Topic); err != nil {
			c.sendError("subscribe_failed", err.Error())
		}
	case clientUnsubscribe:
		c.unsubscribe(event.Data.Topic)
	default:
		c.sendError("unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
	}
	return nil
}

// writePump отправляет сообщения клиенту из канала send и пингует соединение
func (c *Client) writePump() {
	defer c.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WSClient] Ошибка записи (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WSClient] Ошибка сериализации: %v", err)
		return []byte(`{}`)
	}
	return data
}
