package stub

import (
	"context"
	"errors"

	"straddle-lab/internal/domain"
)

// StubTickSource replays fixed in-memory ticks for testing.
// Ticks can be intentionally unordered or repeated to test the runner.
// Implements ingestion.TickSource interface.
type StubTickSource struct {
	ticks    []*domain.Tick
	keepOpen bool
	err      error
}

// NewStubTickSource creates a source that sends ticks and then closes its channel.
func NewStubTickSource(ticks []*domain.Tick) *StubTickSource {
	return &StubTickSource{ticks: ticks}
}

// NewOpenStubTickSource creates a source that sends ticks and keeps its
// channel open until the context is cancelled.
func NewOpenStubTickSource(ticks []*domain.Tick) *StubTickSource {
	return &StubTickSource{ticks: ticks, keepOpen: true}
}

// NewFailingStubTickSource creates a source whose Subscribe fails with err.
func NewFailingStubTickSource(err error) *StubTickSource {
	if err == nil {
		err = errors.New("subscribe failed")
	}
	return &StubTickSource{err: err}
}

// Subscribe returns a channel of copies of the configured ticks.
func (s *StubTickSource) Subscribe(ctx context.Context) (<-chan *domain.Tick, error) {
	if s.err != nil {
		return nil, s.err
	}

	ch := make(chan *domain.Tick)
	go func() {
		defer close(ch)
		for _, t := range s.ticks {
			var out *domain.Tick
			if t != nil {
				c := *t
				out = &c
			}
			select {
			case ch <- out:
			case <-ctx.Done():
				return
			}
		}
		if s.keepOpen {
			<-ctx.Done()
		}
	}()
	return ch, nil
}
