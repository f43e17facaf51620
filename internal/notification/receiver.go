package notification

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/vendora/vendora-edge/internal/conf"
	"github.com/vendora/vendora-edge/internal/errors"
	"github.com/vendora/vendora-edge/internal/logger"
)

const (
	// connectTimeout bounds the initial broker handshake.
	connectTimeout = 10 * time.Second
	// disconnectQuiesceMs lets in-flight messages drain on shutdown.
	disconnectQuiesceMs = 250
	// pushQoS is at-least-once; duplicate notifications are preferable to
	// dropped ones.
	pushQoS = 1
)

// PushReceiver subscribes to the push topic on an MQTT broker and feeds
// received payloads to the notification service. This is the background
// push channel: the broker wakes the gateway with a payload even when no
// UI is attached.
type PushReceiver struct {
	settings conf.PushSettings
	service  *Service
	log      logger.Logger
	client   mqtt.Client
}

// NewPushReceiver creates a receiver. Start must be called to connect.
func NewPushReceiver(settings conf.PushSettings, service *Service, log logger.Logger) *PushReceiver {
	return &PushReceiver{
		settings: settings,
		service:  service,
		log:      log,
	}
}

// Start connects to the broker and subscribes to the push topic.
func (r *PushReceiver) Start() error {
	opts := mqtt.NewClientOptions().
		AddBroker(r.settings.Broker).
		SetClientID(r.settings.ClientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if r.settings.Username != "" {
		opts.SetUsername(r.settings.Username)
		opts.SetPassword(r.settings.Password)
	}
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		token := client.Subscribe(r.settings.Topic, pushQoS, r.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			r.log.Error("push topic subscription failed",
				logger.String("topic", r.settings.Topic),
				logger.Error(err))
			return
		}
		r.log.Info("push channel subscribed",
			logger.String("topic", r.settings.Topic))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.Newf("push broker connect timed out").
			Component("notification").
			Category(errors.CategoryNetwork).
			Context("broker", r.settings.Broker).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryNetwork).
			Context("broker", r.settings.Broker).
			Build()
	}
	r.client = client
	return nil
}

func (r *PushReceiver) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if _, err := r.service.HandlePush(msg.Payload()); err != nil {
		r.log.Error("failed to handle push payload",
			logger.String("topic", msg.Topic()),
			logger.Error(err))
	}
}

// Stop disconnects from the broker.
func (r *PushReceiver) Stop() {
	if r.client != nil {
		r.client.Disconnect(disconnectQuiesceMs)
		r.client = nil
	}
}
