package stream

import (
	"sync"

	"github.com/google/uuid"
)

// Observer receives values pushed through a Subject. Any of the callbacks may be nil.
type Observer[T any] struct {
	OnNext     func(T)
	OnError    func(error)
	OnComplete func()
}

// Subject fans values out to every attached observer.
// Unlike a reactive subject, an error does not terminate the stream: observers stay
// attached and keep receiving values until they unsubscribe or Complete is called.
type Subject[T any] struct {
	mu        sync.RWMutex
	observers map[string]Observer[T]
	completed bool
	onChange  func(count int)
}

// NewSubject creates an empty subject
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{
		observers: make(map[string]Observer[T]),
	}
}

// OnSubscriberChange registers a hook invoked with the new observer count after every
// subscribe and unsubscribe. It must be set before the subject is shared.
func (s *Subject[T]) OnSubscriberChange(fn func(count int)) {
	s.onChange = fn
}

// Subscribe attaches an observer and returns its subscription.
// Subscribing to a completed subject immediately calls OnComplete and returns a
// subscription that is already closed.
func (s *Subject[T]) Subscribe(observer Observer[T]) *Subscription {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		if observer.OnComplete != nil {
			observer.OnComplete()
		}
		return &Subscription{id: "", unsubscribe: func() {}}
	}

	id := uuid.New().String()
	s.observers[id] = observer
	count := len(s.observers)
	s.mu.Unlock()

	s.notify(count)

	return &Subscription{
		id: id,
		unsubscribe: func() {
			s.remove(id)
		},
	}
}

// SubscribeFunc is shorthand for Subscribe with value and error callbacks
func (s *Subject[T]) SubscribeFunc(onNext func(T), onError func(error)) *Subscription {
	return s.Subscribe(Observer[T]{OnNext: onNext, OnError: onError})
}

func (s *Subject[T]) remove(id string) {
	s.mu.Lock()
	if _, ok := s.observers[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.observers, id)
	count := len(s.observers)
	s.mu.Unlock()

	s.notify(count)
}

func (s *Subject[T]) notify(count int) {
	if s.onChange != nil {
		s.onChange(count)
	}
}

// Count returns the number of attached observers
func (s *Subject[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// Next pushes a value to every attached observer
func (s *Subject[T]) Next(value T) {
	for _, o := range s.snapshot() {
		if o.OnNext != nil {
			o.OnNext(value)
		}
	}
}

// Error pushes an error to every attached observer. Observers remain subscribed.
func (s *Subject[T]) Error(err error) {
	for _, o := range s.snapshot() {
		if o.OnError != nil {
			o.OnError(err)
		}
	}
}

// Complete notifies and detaches every observer. Later subscriptions complete immediately.
func (s *Subject[T]) Complete() {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	s.completed = true
	observers := make([]Observer[T], 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.observers = make(map[string]Observer[T])
	s.mu.Unlock()

	s.notify(0)

	for _, o := range observers {
		if o.OnComplete != nil {
			o.OnComplete()
		}
	}
}

// snapshot copies the observers so delivery happens without holding the lock
func (s *Subject[T]) snapshot() []Observer[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	observers := make([]Observer[T], 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	return observers
}

// Subscription is the handle returned by Subscribe
type Subscription struct {
	id          string
	once        sync.Once
	unsubscribe func()
}

// ID returns the subscription identifier
func (s *Subscription) ID() string {
	return s.id
}

// Unsubscribe detaches the observer. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}
