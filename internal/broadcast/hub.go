package broadcast

import (
	"sync"

	"github.com/padsense/vitals/internal/reading"
	logpkg "github.com/padsense/vitals/pkg/log"
)

const defaultSubscriberBuffer = 64

// Hub routes accepted readings to the live subscribers of each patient.
type Hub struct {
	logger logpkg.Logger
	buf    int

	// OnDrop, when set, observes each reading dropped for a slow subscriber.
	OnDrop func(patient string)

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription is one live listener on a patient's channel.
type Subscription struct {
	hub     *Hub
	patient string
	filter  Filter
	ch      chan reading.Reading
	once    sync.Once

	// mu guards sends against a concurrent Close.
	mu     sync.Mutex
	closed bool
}

// NewHub creates a Hub. bufferSize bounds each subscriber's channel; values
// below 1 fall back to the default.
func NewHub(bufferSize int, logger logpkg.Logger) *Hub {
	if bufferSize < 1 {
		bufferSize = defaultSubscriberBuffer
	}
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	return &Hub{
		logger: logger.WithComponent("broadcast"),
		buf:    bufferSize,
		subs:   map[string]map[*Subscription]struct{}{},
	}
}

// Subscribe attaches a listener to the patient's channel.
func (h *Hub) Subscribe(patient string, filter Filter) *Subscription {
	sub := &Subscription{
		hub:     h,
		patient: patient,
		filter:  filter,
		ch:      make(chan reading.Reading, h.buf),
	}
	h.mu.Lock()
	set, ok := h.subs[patient]
	if !ok {
		set = map[*Subscription]struct{}{}
		h.subs[patient] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// C is the subscriber's delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan reading.Reading { return s.ch }

// Close detaches the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.patient]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.patient)
			}
		}
		h.mu.Unlock()
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// offer enqueues without blocking, shedding the oldest buffered reading when
// full. Reports whether the reading was delivered.
func (s *Subscription) offer(r reading.Reading) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- r:
		return true
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- r:
		return true
	default:
		return false
	}
}

// Subscribers reports the live listener count for a patient.
func (h *Hub) Subscribers(patient string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[patient])
}

// Publish delivers a reading to every matching subscriber of its patient.
// Never blocks: when a subscriber's buffer is full, the oldest buffered
// reading is discarded to make room, and failing that the reading is dropped
// for that subscriber.
func (h *Hub) Publish(r reading.Reading) {
	h.mu.Lock()
	targets := make([]*Subscription, 0, len(h.subs[r.PatientID]))
	for sub := range h.subs[r.PatientID] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		if !sub.filter.Eval(r) {
			continue
		}
		if !sub.offer(r) {
			if h.OnDrop != nil {
				h.OnDrop(r.PatientID)
			}
			h.logger.Debug("dropped reading for slow subscriber",
				logpkg.Str("patient", r.PatientID), logpkg.Uint64("id", r.ID))
		}
	}
}
