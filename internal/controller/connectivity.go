package controller

// Connectivity ownership: the boolean lives here and is mutated only by
// transport outcomes reported from the worker or by explicit signals
// injected through the admin API. Reads never probe.

// SetOnline applies a connectivity signal. A no-op unless the state
// actually changes; on a transition every registered listener is invoked
// exactly once, in registration order, and a reconnect additionally
// schedules both fixed sync tags.
func (c *Controller) SetOnline(online bool) {
	if !c.online.CompareAndSwap(!online, online) {
		return
	}

	if c.metrics != nil {
		state := "offline"
		if online {
			state = "online"
		}
		c.metrics.ConnectivityTransitions.WithLabelValues(state).Inc()
	}

	c.listenersMu.Lock()
	entries := make([]listenerEntry, len(c.listeners))
	copy(entries, c.listeners)
	c.listenersMu.Unlock()
	for _, entry := range entries {
		entry.cb(online)
	}

	c.events.Publish(Event{
		Type: EventConnectivity,
		Data: map[string]any{"online": online},
	})

	if online {
		c.requestSyncAll()
	}
}

// ReportOutcome implements worker.ConnectivityReporter: every upstream
// transport attempt feeds the connectivity state.
func (c *Controller) ReportOutcome(online bool) {
	c.SetOnline(online)
}
