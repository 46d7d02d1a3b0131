package ranger

import (
	"context"
	"sync"
)

// Samples is a single-slot mailbox. Publish overwrites an unconsumed
// sample and each sample is consumed at most once.
type Samples struct {
	lock    sync.Mutex
	sample  Sample
	present bool
	readyCh chan struct{}
}

// NewSamples creates an empty mailbox.
func NewSamples() *Samples {
	return &Samples{readyCh: make(chan struct{}, 1)}
}

// Publish stores s, replacing any unconsumed sample.
func (s *Samples) Publish(sample Sample) {
	s.lock.Lock()
	s.sample, s.present = sample, true
	s.lock.Unlock()
	select {
	case s.readyCh <- struct{}{}:
	default:
	}
}

// TryNext consumes the sample if present.
func (s *Samples) TryNext() (Sample, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.present {
		return Sample{}, false
	}
	s.present = false
	return s.sample, true
}

// Next waits for and consumes the next sample.
func (s *Samples) Next(ctx context.Context) (Sample, error) {
	for {
		if sample, ok := s.TryNext(); ok {
			return sample, nil
		}
		select {
		case <-s.readyCh:
		case <-ctx.Done():
			return Sample{}, ctx.Err()
		}
	}
}

// Discard drops an unconsumed sample.
func (s *Samples) Discard() {
	s.TryNext()
}
