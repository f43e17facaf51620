// Package notification implements the gateway's notification service:
// push payload handling, subscriber broadcast to the UI event stream, and
// optional outbound delivery.
package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vendora/vendora-edge/internal/errors"
	"github.com/vendora/vendora-edge/internal/logger"
)

// ErrNotificationNotFound is returned when a notification ID is unknown.
var ErrNotificationNotFound = errors.NewStd("notification not found")

const (
	// defaultMaxStored bounds the in-memory notification history.
	defaultMaxStored = 100
	// subscriberBuffer is the per-subscriber channel capacity. Slow
	// subscribers drop notifications rather than block the service.
	subscriberBuffer = 10
)

// Action is a named button attached to a notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is one presented notification.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Icon      string    `json:"icon"`
	Badge     string    `json:"badge"`
	Vibration []int     `json:"vibration"`
	URL       string    `json:"url"`
	Actions   []Action  `json:"actions"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

// ServiceConfig holds presentation defaults and delivery settings.
type ServiceConfig struct {
	DefaultBody  string
	Icon         string
	Badge        string
	Vibration    []int
	ShoutrrrURLs []string
	MaxStored    int
}

// Service stores recent notifications and fans them out to subscribers.
type Service struct {
	config *ServiceConfig
	log    logger.Logger
	sender Sender

	mu          sync.RWMutex
	recent      []*Notification
	subscribers map[int]chan *Notification
	nextSubID   int
}

// NewService creates a notification service. The outbound sender is
// attached separately via SetSender so construction never fails.
func NewService(config *ServiceConfig, log logger.Logger) *Service {
	if config.MaxStored <= 0 {
		config.MaxStored = defaultMaxStored
	}
	return &Service{
		config:      config,
		log:         log,
		subscribers: make(map[int]chan *Notification),
	}
}

// SetSender attaches an outbound delivery sender.
func (s *Service) SetSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// Defaults returns the presentation defaults applied to notifications
// that do not override them.
func (s *Service) Defaults() (icon, badge string, vibration []int) {
	return s.config.Icon, s.config.Badge, s.config.Vibration
}

// CreateAndBroadcast builds a notification with default presentation and
// shows it.
func (s *Service) CreateAndBroadcast(title, message string) error {
	return s.Show(&Notification{Title: title, Body: message})
}

// Show applies defaults, stores the notification, broadcasts it to
// subscribers, and performs best-effort outbound delivery.
func (s *Service) Show(n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Body == "" {
		n.Body = s.config.DefaultBody
	}
	if n.Icon == "" {
		n.Icon = s.config.Icon
	}
	if n.Badge == "" {
		n.Badge = s.config.Badge
	}
	if len(n.Vibration) == 0 {
		n.Vibration = s.config.Vibration
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.recent = append(s.recent, n)
	if len(s.recent) > s.config.MaxStored {
		s.recent = s.recent[len(s.recent)-s.config.MaxStored:]
	}
	subs := make([]chan *Notification, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	sender := s.sender
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- n:
		default:
			// Subscriber is not draining; dropping beats blocking Show.
		}
	}

	if sender != nil {
		if err := sender.Send(n.Title, n.Body); err != nil {
			s.log.Warn("outbound notification delivery failed",
				logger.String("id", n.ID),
				logger.Error(err))
		}
	}
	return nil
}

// Subscribe registers a notification channel. The returned func
// unsubscribes and closes the channel.
func (s *Service) Subscribe() (<-chan *Notification, func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan *Notification, subscriberBuffer)
	s.subscribers[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
		s.mu.Unlock()
	}
}

// List returns recent notifications, newest first.
func (s *Service) List() []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Notification, len(s.recent))
	for i, n := range s.recent {
		out[len(s.recent)-1-i] = n
	}
	return out
}

// Get returns a notification by ID.
func (s *Service) Get(id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.recent {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, ErrNotificationNotFound
}

// Dismiss marks a notification read.
func (s *Service) Dismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.recent {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return ErrNotificationNotFound
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.recent {
		if !n.Read {
			count++
		}
	}
	return count
}
