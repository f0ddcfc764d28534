package client

import (
	"sync"
)

// Subscriber is a registration handle. The same handle may only be subscribed to a channel once.
type Subscriber[T any] struct {
	fn func(T)
}

func NewSubscriber[T any](fn func(T)) *Subscriber[T] {
	return &Subscriber[T]{fn: fn}
}

// SubscriberChannel delivers values to its subscribers synchronously, in registration order.
type SubscriberChannel[T any] struct {
	mu          sync.Mutex
	subscribers []*Subscriber[T]
}

// Subscribe registers s and returns the function that removes it again. The unsubscribe function
// fails with ErrAlreadyUnsubscribed when called more than once.
func (c *SubscriberChannel[T]) Subscribe(s *Subscriber[T]) (func() error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.subscribers {
		if existing == s {
			return nil, ErrAlreadySubscribed
		}
	}
	c.subscribers = append(c.subscribers, s)

	unsubscribed := false
	return func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if unsubscribed {
			return ErrAlreadyUnsubscribed
		}
		unsubscribed = true
		for i, existing := range c.subscribers {
			if existing == s {
				c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
				break
			}
		}
		return nil
	}, nil
}

// SubscribeFunc registers fn under a fresh handle.
func (c *SubscriberChannel[T]) SubscribeFunc(fn func(T)) func() error {
	unsubscribe, _ := c.Subscribe(NewSubscriber(fn))
	return unsubscribe
}

func (c *SubscriberChannel[T]) Send(value T) {
	c.mu.Lock()
	snapshot := make([]*Subscriber[T], len(c.subscribers))
	copy(snapshot, c.subscribers)
	c.mu.Unlock()

	for _, s := range snapshot {
		s.fn(value)
	}
}

func (c *SubscriberChannel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}
