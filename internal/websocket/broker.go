package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultSubscriberBuffer - размер буфера канала одного подписчика
const DefaultSubscriberBuffer = 32

// Subscription - живая подписка на топик.
// Cancel можно вызывать из любой горутины сколько угодно раз.
type Subscription struct {
	Topic string
	C     <-chan []byte

	ch     chan []byte
	done   chan struct{}
	broker *Broker
	once   sync.Once
}

// Cancel отписывает и закрывает канал C
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.broker.unsubscribe(s)
	})
}

// Broker - реестр подписок по топикам в памяти процесса.
// Доставка best-effort: медленный подписчик теряет сообщения, а не тормозит издателя.
// При наличии провайдера Pub/Sub события ретранслируются на другие инстансы.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool

	bufferSize int
	instanceID string
	relay      PubSubProvider
	relayChan  string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dropped uint64 // под mu

	watchers atomic.Int64 // горутины SubscribeContext
}

// BrokerOption настраивает Broker
type BrokerOption func(*Broker)

// WithBufferSize задаёт размер буфера подписчика
func WithBufferSize(n int) BrokerOption {
	return func(b *Broker) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithClusterRelay включает ретрансляцию через провайдер Pub/Sub
func WithClusterRelay(provider PubSubProvider, channel, instanceID string) BrokerOption {
	return func(b *Broker) {
		b.relay = provider
		b.relayChan = channel
		if instanceID != "" {
			b.instanceID = instanceID
		}
	}
}

// NewBroker создает брокер
func NewBroker(opts ...BrokerOption) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broker{
		subs:       make(map[string]map[*Subscription]struct{}),
		bufferSize: DefaultSubscriberBuffer,
		instanceID: generateInstanceID(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// InstanceID возвращает идентификатор этого инстанса в кластере
func (b *Broker) InstanceID() string {
	return b.instanceID
}

// Subscribe подписывается на топик. Вызывающий обязан вызвать Cancel.
func (b *Broker) Subscribe(topic string) *Subscription {
	ch := make(chan []byte, b.bufferSize)
	sub := &Subscription{Topic: topic, C: ch, ch: ch, done: make(chan struct{}), broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return sub
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	return sub
}

// SubscribeContext подписывается на топик и отписывает при отмене ctx.
// Горутина наблюдения завершается и при прямом вызове Cancel.
func (b *Broker) SubscribeContext(ctx context.Context, topic string) *Subscription {
	sub := b.Subscribe(topic)
	b.watchers.Add(1)
	go func() {
		defer b.watchers.Add(-1)
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.done:
		case <-b.ctx.Done():
		}
	}()
	return sub
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[sub.Topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(b.subs, sub.Topic)
	}
}

// Publish рассылает событие подписчикам топика и, если настроено, в кластер.
// Ошибки кластера только логируются: локальная доставка уже произошла.
func (b *Broker) Publish(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Broker] Ошибка сериализации события %s для %s: %v", event.Type, topic, err)
		return
	}

	b.deliverLocal(topic, data)

	if b.relay == nil {
		return
	}
	msg := ClusterMessage{
		MessageType: clusterMessageEvent,
		Topic:       topic,
		InstanceID:  b.instanceID,
		Payload:     data,
		Timestamp:   time.Now(),
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Broker] Ошибка сериализации кластерного сообщения: %v", err)
		return
	}
	if err := b.relay.Publish(b.relayChan, raw); err != nil {
		log.Printf("[Broker] Ошибка ретрансляции события %s в кластер: %v", event.Type, err)
	}
}

func (b *Broker) deliverLocal(topic string, data []byte) {
	b.mu.RLock()
	var dropped uint64
	for sub := range b.subs[topic] {
		select {
		case sub.ch <- data:
		default:
			dropped++
		}
	}
	b.mu.RUnlock()

	if dropped > 0 {
		b.mu.Lock()
		b.dropped += dropped
		b.mu.Unlock()
		log.Printf("[Broker] Топик %s: %d сообщений отброшено (медленные подписчики)", topic, dropped)
	}
}

// StartRelay начинает приём событий других инстансов. Без провайдера ничего не делает.
func (b *Broker) StartRelay() error {
	if b.relay == nil {
		return nil
	}
	msgCh, err := b.relay.Subscribe(b.ctx, b.relayChan)
	if err != nil {
		return err
	}
	log.Printf("[Broker] Ретрансляция включена, канал %s, инстанс %s", b.relayChan, b.instanceID)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-b.ctx.Done():
				return
			case raw, ok := <-msgCh:
				if !ok {
					log.Println("[Broker] Канал ретрансляции закрыт")
					return
				}
				b.handleClusterMessage(raw)
			}
		}
	}()
	return nil
}

func (b *Broker) handleClusterMessage(raw []byte) {
	var msg ClusterMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("[Broker] Ошибка десериализации кластерного сообщения: %v", err)
		return
	}
	if msg.InstanceID == b.instanceID || msg.MessageType != clusterMessageEvent || msg.Topic == "" {
		return
	}
	b.deliverLocal(msg.Topic, msg.Payload)
}

// SubscriberCount возвращает число подписчиков топика
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// GetMetrics возвращает метрики брокера
func (b *Broker) GetMetrics() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, subs := range b.subs {
		total += len(subs)
	}
	return map[string]interface{}{
		"instance_id":      b.instanceID,
		"topics":           len(b.subs),
		"subscribers":      total,
		"dropped_messages": b.dropped,
		"cluster_relay":    b.relay != nil,
	}
}

// Close закрывает все подписки и останавливает ретрансляцию
func (b *Broker) Close() {
	b.cancel()
	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(b.subs, topic)
	}
	log.Println("[Broker] Остановлен")
}
