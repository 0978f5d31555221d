package localstore

import (
	"sync"
)

// changeSubscription receives a signal after every committed write. Signals coalesce: a
// subscriber which is busy re-reading sees at most one pending signal.
type changeSubscription struct {
	C         chan struct{}
	publisher *changePublisher
}

func (sub *changeSubscription) Close() {
	sub.publisher.removeAndCloseSubscription(sub)
}

func (sub *changeSubscription) signal() {
	select {
	case sub.C <- struct{}{}:
	default:
	}
}

type changePublisher struct {
	sync.RWMutex
	subscriptions map[*changeSubscription]bool
	closed        bool
}

func newChangePublisher() *changePublisher {
	return &changePublisher{
		subscriptions: map[*changeSubscription]bool{},
	}
}

func (p *changePublisher) Close() {
	p.Lock()
	defer p.Unlock()
	for sub := range p.subscriptions {
		close(sub.C)
	}
	p.subscriptions = map[*changeSubscription]bool{}
	p.closed = true
}

func (p *changePublisher) Subscribe() *changeSubscription {
	p.Lock()
	defer p.Unlock()
	sub := &changeSubscription{
		C:         make(chan struct{}, 1),
		publisher: p,
	}
	if p.closed {
		close(sub.C)
		return sub
	}
	p.subscriptions[sub] = true
	return sub
}

func (p *changePublisher) removeAndCloseSubscription(sub *changeSubscription) {
	p.Lock()
	defer p.Unlock()
	if _, ok := p.subscriptions[sub]; ok {
		delete(p.subscriptions, sub)
		close(sub.C)
	}
}

func (p *changePublisher) Publish() {
	p.RLock()
	defer p.RUnlock()
	for sub := range p.subscriptions {
		sub.signal()
	}
}

func (p *changePublisher) Len() int {
	p.RLock()
	defer p.RUnlock()
	return len(p.subscriptions)
}
