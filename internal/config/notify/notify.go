// Package notify provides change notification for configuration updates.
//
// Observers subscribe to every change or to a single section and are called
// when a section is written or when scope caches are reloaded.
package notify

import (
	"sync"

	"github.com/dshills/scopecfg/internal/config/tree"
)

// ChangeType represents the type of configuration change.
type ChangeType int

const (
	// ChangeUpdate indicates a section was written to a scope.
	ChangeUpdate ChangeType = iota

	// ChangeReload indicates cached documents were dropped and will be
	// re-read from disk.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeUpdate:
		return "update"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a configuration change event.
type Change struct {
	// Section is the changed section. Empty when every section is affected.
	Section string

	// Scope is the scope that changed. Empty when every scope is affected.
	Scope string

	// Type is the type of change.
	Type ChangeType

	// Value is the section value written, for updates.
	Value *tree.Node

	// Source identifies where the change came from.
	Source string
}

// Observer is called when configuration changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages configuration change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	globalObservers  map[uint64]Observer
	sectionObservers map[string]map[uint64]Observer

	nextID uint64

	async  bool
	buffer chan Change
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous notification delivery.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		globalObservers:  make(map[uint64]Observer),
		sectionObservers: make(map[string]map[uint64]Observer),
		done:             make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}

	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.globalObservers[id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribeSection registers an observer for changes to one section. It
// also receives changes that affect every section.
func (n *Notifier) SubscribeSection(section string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	if n.sectionObservers[section] == nil {
		n.sectionObservers[section] = make(map[uint64]Observer)
	}
	n.sectionObservers[section][id] = observer

	return &Subscription{id: id, notifier: n}
}

// Notify sends a change notification to all relevant observers.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}

	n.deliverChange(change)
}

// NotifyUpdate is a convenience method for section writes.
func (n *Notifier) NotifyUpdate(section, scope string, value *tree.Node, source string) {
	n.Notify(Change{
		Section: section,
		Scope:   scope,
		Type:    ChangeUpdate,
		Value:   value,
		Source:  source,
	})
}

// NotifyReload is a convenience method for reload events. An empty section
// reloads every section.
func (n *Notifier) NotifyReload(section, source string) {
	n.Notify(Change{
		Section: section,
		Type:    ChangeReload,
		Source:  source,
	})
}

// Close shuts down the notifier. It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)

	for section, observers := range n.sectionObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.sectionObservers, section)
		}
	}
}

// deliverChange sends a change to all matching observers.
func (n *Notifier) deliverChange(change Change) {
	n.mu.RLock()

	var observers []Observer
	for _, obs := range n.globalObservers {
		observers = append(observers, obs)
	}

	if change.Section != "" {
		for _, obs := range n.sectionObservers[change.Section] {
			observers = append(observers, obs)
		}
	} else {
		for _, sectionObs := range n.sectionObservers {
			for _, obs := range sectionObs {
				observers = append(observers, obs)
			}
		}
	}

	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		obs(change)
	}
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliverChange(change)
		case <-n.done:
			// Drain remaining buffered changes
			for {
				select {
				case change := <-n.buffer:
					n.deliverChange(change)
				default:
					return
				}
			}
		}
	}
}
