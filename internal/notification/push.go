package notification

import (
	"encoding/json"

	"github.com/vendora/vendora-edge/internal/logger"
)

// Notification action names.
const (
	ActionView    = "view"
	ActionDismiss = "dismiss"
)

// defaultClickURL is opened when a push payload carries no target.
const defaultClickURL = "/"

// PushData is the data object carried inside a push payload.
type PushData struct {
	URL string `json:"url"`
}

// PushPayload is the wire contract for incoming push messages. Every
// field is optional; defaults are supplied on display.
type PushPayload struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Data  PushData `json:"data"`
}

// HandlePush turns a raw push payload into a displayed notification.
// Payloads that fail to decode still produce a notification with default
// text; a received push is never silently swallowed.
func (s *Service) HandlePush(payload []byte) (*Notification, error) {
	var push PushPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &push); err != nil {
			s.log.Warn("undecodable push payload, using defaults",
				logger.Error(err))
			push = PushPayload{}
		}
	}

	title := push.Title
	if title == "" {
		title = "Vendora"
	}
	n := &Notification{
		Title: title,
		Body:  push.Body,
		URL:   push.Data.URL,
		Actions: []Action{
			{Action: ActionView, Title: "View"},
			{Action: ActionDismiss, Title: "Dismiss"},
		},
	}
	if err := s.Show(n); err != nil {
		return nil, err
	}
	return n, nil
}

// HandleClick resolves a notification click. The notification is always
// dismissed regardless of which action was chosen; "view" (or a plain
// click) additionally yields the URL to open, defaulting to the
// application root.
func (s *Service) HandleClick(id, action string) (string, error) {
	n, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if err := s.Dismiss(id); err != nil {
		return "", err
	}
	if action == ActionDismiss {
		return "", nil
	}
	if n.URL != "" {
		return n.URL, nil
	}
	return defaultClickURL, nil
}
