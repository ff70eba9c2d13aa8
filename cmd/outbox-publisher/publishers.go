package main

import (
	"context"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// topicCache keeps one batching publisher per topic for the process lifetime.
type topicCache struct {
	mu     sync.Mutex
	client pubSubClient
	byName map[string]*gcppubsub.Publisher
}

func newTopicCache(client pubSubClient) *topicCache {
	return &topicCache{client: client, byName: map[string]*gcppubsub.Publisher{}}
}

func (c *topicCache) get(topic string) *gcppubsub.Publisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.byName[topic]; ok {
		return p
	}
	p := c.client.Publisher(topic)
	if p != nil {
		c.byName[topic] = p
	}
	return p
}

// stopAll flushes pending messages and forgets every publisher.
func (c *topicCache) stopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, p := range c.byName {
		p.Stop()
		delete(c.byName, topic)
	}
}

func (s *Service) cachedPublisher(topic string) publisher {
	p := s.topics.get(topic)
	if p == nil {
		return nil
	}
	return topicPublisher{p}
}

type topicPublisher struct {
	p *gcppubsub.Publisher
}

func (t topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return topicResult{t.p.Publish(ctx, msg)}
}

type topicResult struct {
	r *gcppubsub.PublishResult
}

func (t topicResult) Get(ctx context.Context) (string, error) {
	if t.r == nil {
		return "", errNilResult
	}
	return t.r.Get(ctx)
}
