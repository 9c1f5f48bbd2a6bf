package main

import "sync"

type closeRequester interface {
	RequestClose()
}

// shutdown turns an exit signal, delivered on closer's goroutine, into a close
// request the render loop sees on its next iteration. Teardown stays on the
// main thread; the signal side only waits for it to finish before closer
// exits the process.
type shutdown struct {
	mu        sync.Mutex
	window    closeRequester
	requested bool
	finished  bool
	done      chan struct{}
}

func newShutdown() *shutdown {
	return &shutdown{done: make(chan struct{})}
}

// attach hands over the window once it exists. A request that arrived
// earlier is applied immediately.
func (s *shutdown) attach(window closeRequester) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.window = window
	if s.requested {
		window.RequestClose()
	}
}

// request is bound to closer. It returns once the main thread has torn down.
func (s *shutdown) request() {
	s.mu.Lock()
	if !s.finished {
		s.requested = true
		if s.window != nil {
			s.window.RequestClose()
		}
	}
	s.mu.Unlock()
	<-s.done
}

// finish runs teardown once, after which the window is no longer touched.
func (s *shutdown) finish(teardown func()) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.window = nil
	s.mu.Unlock()

	teardown()
	close(s.done)
}
