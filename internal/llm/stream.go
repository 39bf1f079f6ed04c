package llm

import (
	"context"
	"io"
	"strings"
	"sync"
)

// eventStream adapts a producer function into a Stream. The producer runs
// in its own goroutine and its return value becomes the final Recv error.
type eventStream struct {
	cancel    context.CancelFunc
	events    chan Event
	err       error
	closeOnce sync.Once
}

func newEventStream(ctx context.Context, run func(ctx context.Context, events chan<- Event) error) Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &eventStream{
		cancel: cancel,
		events: make(chan Event, 16),
	}
	go func() {
		defer close(s.events)
		s.err = run(ctx, s.events)
	}()
	return s
}

func (s *eventStream) Recv() (Event, error) {
	event, ok := <-s.events
	if !ok {
		if s.err != nil {
			return Event{}, s.err
		}
		return Event{}, io.EOF
	}
	return event, nil
}

// Close cancels the producer and drains whatever it still sends.
func (s *eventStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		go func() {
			for range s.events {
			}
		}()
	})
	return nil
}

// send delivers event unless ctx is done first.
func send(ctx context.Context, events chan<- Event, event Event) error {
	select {
	case events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CollectText reads stream to the end and returns the concatenated text.
// The text received before an error is returned along with it.
func CollectText(stream Stream) (string, *Usage, error) {
	defer stream.Close()

	var sb strings.Builder
	var usage *Usage
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			return sb.String(), usage, nil
		}
		if err != nil {
			return sb.String(), usage, err
		}
		switch event.Type {
		case EventTextDelta:
			sb.WriteString(event.Text)
		case EventUsage:
			usage = event.Use
		case EventError:
			if event.Err != nil {
				return sb.String(), usage, event.Err
			}
		}
	}
}
