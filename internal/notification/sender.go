package notification

import (
	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/vendora/vendora-edge/internal/errors"
)

// Sender delivers a notification to an external target.
type Sender interface {
	Send(title, body string) error
}

// shoutrrrSender fans a notification out to every configured shoutrrr URL.
type shoutrrrSender struct {
	router *router.ServiceRouter
}

// NewShoutrrrSender builds a Sender from shoutrrr service URLs. An empty
// URL list yields a nil Sender, meaning outbound delivery is disabled.
func NewShoutrrrSender(urls []string) (Sender, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategoryConfig).
			Context("operation", "create_sender").
			Build()
	}
	return &shoutrrrSender{router: sender}, nil
}

func (s *shoutrrrSender) Send(title, body string) error {
	params := &types.Params{"title": title}
	errs := s.router.Send(body, params)
	for _, err := range errs {
		if err != nil {
			return errors.New(err).
				Component("notification").
				Category(errors.CategoryNotification).
				Build()
		}
	}
	return nil
}
