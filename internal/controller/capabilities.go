package controller

import "github.com/vendora/vendora-edge/internal/conf"

// Capabilities describes which optional platform features are available.
// Computed once at startup and threaded through explicitly, so behavior
// differences across environments are a visible data dependency rather
// than scattered runtime checks.
type Capabilities struct {
	PushSupported          bool
	SyncSupported          bool
	NotificationsSupported bool
}

// DetectCapabilities derives the capability descriptor from settings.
func DetectCapabilities(s *conf.Settings) Capabilities {
	return Capabilities{
		PushSupported:          s.Push.Enabled && s.Push.Broker != "",
		SyncSupported:          s.Sync.Enabled,
		NotificationsSupported: s.Notify.Enabled,
	}
}
