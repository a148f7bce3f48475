// Package eventbus decouples the transcription pipeline from its
// observers (recorder, console board, websocket fan-out) through a
// process-wide topic bus.
package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

var (
	instance evbus.Bus
	asyncBus *AsyncEventBus
	once     sync.Once
)

func ensure() {
	once.Do(func() {
		instance = New()
		// One subscriber set: Subscribe sees both Publish and
		// PublishAsync deliveries.
		asyncBus = NewAsyncEventBusWith(instance, 4)
		asyncBus.Start()
	})
}

// Get returns the synchronous bus instance.
func Get() evbus.Bus {
	ensure()
	return instance
}

// GetAsync returns the buffered asynchronous bus instance.
func GetAsync() *AsyncEventBus {
	ensure()
	return asyncBus
}

// New creates a standalone synchronous bus, mainly for tests.
func New() evbus.Bus {
	return evbus.New()
}

// Publish delivers an event synchronously to all subscribers.
func Publish(topic string, args ...interface{}) {
	Get().Publish(topic, args...)
}

// PublishAsync queues an event for worker delivery; drops the event if
// the queue is full rather than blocking the pipeline.
func PublishAsync(topic string, args ...interface{}) {
	GetAsync().PublishAsync(topic, args...)
}

// Subscribe registers fn for synchronous delivery on topic.
func Subscribe(topic string, fn interface{}) error {
	return Get().Subscribe(topic, fn)
}

// SubscribeAsync registers fn on the asynchronous bus.
func SubscribeAsync(topic string, fn interface{}) error {
	return GetAsync().SubscribeAsync(topic, fn)
}

// Unsubscribe removes a previously registered handler.
func Unsubscribe(topic string, fn interface{}) error {
	return Get().Unsubscribe(topic, fn)
}

// Shutdown stops the async workers.
func Shutdown() {
	if asyncBus != nil {
		asyncBus.Stop()
	}
}
