package client

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Store is the capability every state store shares: callers register to hear
// about changes and re-read the store's snapshot methods.
type Store interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func()) (unsubscribe func())
}

// Notifier shows transient feedback for store operations.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to a logrus logger.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (n LogNotifier) logger() logrus.FieldLogger {
	if n.Logger == nil {
		return logrus.StandardLogger()
	}
	return n.Logger
}

func (n LogNotifier) Success(msg string) {
	n.logger().WithField("notification", "success").Info(msg)
}

func (n LogNotifier) Error(msg string) {
	n.logger().WithField("notification", "error").Warn(msg)
}

// subscribers is embedded by each store. Callbacks run outside the store's lock.
type subscribers struct {
	subMu sync.Mutex
	next  int
	fns   map[int]func()
}

func (s *subscribers) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func())
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.fns, id)
			s.subMu.Unlock()
		})
	}
}

func (s *subscribers) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func notifierOrDefault(n Notifier) Notifier {
	if n == nil {
		return LogNotifier{}
	}
	return n
}
