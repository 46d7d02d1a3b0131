// Package bus provides a lossy broadcast channel for direction commands.
//
// The bus retains only the latest Capacity messages. Publishing never
// blocks: when the ring is full the oldest message is overwritten, and
// a subscriber which hasn't read it yet simply never sees it (the only
// drop policy, DropOldest). With the default capacity of 1 a lagging
// subscriber always observes the most recent message.
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/command"
)

// Options configures a Bus.
type Options struct {
	// Capacity is the number of messages retained for lagging
	// subscribers. Values less than 1 are treated as 1.
	Capacity int
	// MaxSubscribers limits concurrent subscribers, 0 for unlimited.
	MaxSubscribers int
	// MaxPublishers limits concurrent publishers, 0 for unlimited.
	MaxPublishers int
}

// DefaultOptions is the single-slot configuration.
var DefaultOptions = Options{
	Capacity:       1,
	MaxSubscribers: 2,
	MaxPublishers:  2,
}

var (
	// ErrTooManySubscribers indicates MaxSubscribers is reached.
	ErrTooManySubscribers = errors.New("too many subscribers")
	// ErrTooManyPublishers indicates MaxPublishers is reached.
	ErrTooManyPublishers = errors.New("too many publishers")
	// ErrClosed indicates the handle is already closed.
	ErrClosed = errors.New("closed")
)

// Bus broadcasts direction commands to all subscribers.
type Bus struct {
	opts Options

	lock        sync.Mutex
	ring        []command.Direction
	seq         uint64 // sequence of the next message
	wakeCh      chan struct{}
	subscribers int
	publishers  int
}

// New creates a Bus.
func New(opts Options) *Bus {
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}
	return &Bus{
		opts:   opts,
		ring:   make([]command.Direction, opts.Capacity),
		wakeCh: make(chan struct{}),
	}
}

// Options returns the options in effect.
func (b *Bus) Options() Options {
	return b.opts
}

// Publisher acquires a publisher handle.
func (b *Bus) Publisher(name string) (*Publisher, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.opts.MaxPublishers > 0 && b.publishers >= b.opts.MaxPublishers {
		return nil, ErrTooManyPublishers
	}
	b.publishers++
	return &Publisher{bus: b, name: name}, nil
}

// Subscribe acquires a subscriber which receives messages published
// from now on.
func (b *Bus) Subscribe() (*Subscriber, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.opts.MaxSubscribers > 0 && b.subscribers >= b.opts.MaxSubscribers {
		return nil, ErrTooManySubscribers
	}
	b.subscribers++
	return &Subscriber{bus: b, next: b.seq}, nil
}

func (b *Bus) publish(p *Publisher, dir command.Direction) bool {
	b.lock.Lock()
	if p.closed {
		b.lock.Unlock()
		return false
	}
	b.ring[b.seq%uint64(len(b.ring))] = dir
	b.seq++
	close(b.wakeCh)
	b.wakeCh = make(chan struct{})
	b.lock.Unlock()
	return true
}

// oldest returns the sequence of the oldest retained message.
// Must be called with lock held.
func (b *Bus) oldest() uint64 {
	if n := uint64(len(b.ring)); b.seq > n {
		return b.seq - n
	}
	return 0
}

// Publisher publishes messages to the bus.
type Publisher struct {
	bus    *Bus
	name   string
	closed bool
}

// Name returns the name of the publisher.
func (p *Publisher) Name() string {
	return p.name
}

// Publish replaces the oldest retained message and wakes up all
// waiting subscribers. It never blocks. A closed publisher drops the
// message.
func (p *Publisher) Publish(dir command.Direction) {
	if !p.bus.publish(p, dir) {
		glog.Warningf("bus: %s is closed, %s dropped", p.name, dir)
		return
	}
	glog.V(2).Infof("bus: %s publishes %s", p.name, dir)
}

// Close releases the publisher slot.
func (p *Publisher) Close() error {
	p.bus.lock.Lock()
	defer p.bus.lock.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	p.bus.publishers--
	return nil
}

// Subscriber is a read cursor on the bus. A Subscriber must only be
// used by one goroutine.
type Subscriber struct {
	bus    *Bus
	next   uint64
	lagged uint64
	closed bool
}

// TryNext returns the next message if one is available.
func (s *Subscriber) TryNext() (command.Direction, bool) {
	dir, ok, _ := s.tryNext()
	return dir, ok
}

func (s *Subscriber) tryNext() (dir command.Direction, ok bool, wakeCh <-chan struct{}) {
	b := s.bus
	b.lock.Lock()
	defer b.lock.Unlock()
	if s.next >= b.seq {
		return command.Unknown, false, b.wakeCh
	}
	if oldest := b.oldest(); s.next < oldest {
		s.lagged += oldest - s.next
		s.next = oldest
	}
	dir = b.ring[s.next%uint64(len(b.ring))]
	s.next++
	return dir, true, nil
}

// Next waits for the next message. Messages overwritten before being
// read are skipped.
func (s *Subscriber) Next(ctx context.Context) (command.Direction, error) {
	for {
		dir, ok, wakeCh := s.tryNext()
		if ok {
			return dir, nil
		}
		select {
		case <-ctx.Done():
			return command.Unknown, ctx.Err()
		case <-wakeCh:
		}
	}
}

// Lagged returns the number of messages this subscriber missed.
func (s *Subscriber) Lagged() uint64 {
	s.bus.lock.Lock()
	defer s.bus.lock.Unlock()
	return s.lagged
}

// Close releases the subscriber slot.
func (s *Subscriber) Close() error {
	s.bus.lock.Lock()
	defer s.bus.lock.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.bus.subscribers--
	return nil
}
