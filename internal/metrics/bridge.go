package metrics

import "weasel/internal/ime"

// BridgeMetrics counts bridge activity. It implements ime.Observer.
type BridgeMetrics struct {
	SessionsTotal     *Counter
	KeysTotal         *Counter
	KeysHandledTotal  *Counter
	CommitsTotal      *Counter
	DroppedTotal      *Counter
	MaintenanceTotal  *Counter
	ActiveSessions    *Gauge
	MaintenanceActive *Gauge
}

var _ ime.Observer = (*BridgeMetrics)(nil)

// NewBridgeMetrics registers the bridge metrics in r.
func NewBridgeMetrics(r *Registry) *BridgeMetrics {
	return &BridgeMetrics{
		SessionsTotal:     r.Counter("sessions_total", "Sessions created"),
		KeysTotal:         r.Counter("keys_total", "Key events processed"),
		KeysHandledTotal:  r.Counter("keys_handled_total", "Key events consumed by the engine"),
		CommitsTotal:      r.Counter("commits_total", "Responses carrying committed text"),
		DroppedTotal:      r.Counter("responses_dropped_total", "Responses that overflowed the client buffer"),
		MaintenanceTotal:  r.Counter("maintenance_total", "Entries into maintenance"),
		ActiveSessions:    r.Gauge("active_sessions", "Sessions currently open"),
		MaintenanceActive: r.Gauge("maintenance", "1 while the engine is in maintenance"),
	}
}

func (m *BridgeMetrics) SessionAdded(ime.SessionID, string) {
	m.SessionsTotal.Inc()
	m.ActiveSessions.Inc()
}

func (m *BridgeMetrics) SessionRemoved(ime.SessionID) {
	m.ActiveSessions.Dec()
}

func (m *BridgeMetrics) KeyProcessed(_ ime.SessionID, handled, committed bool) {
	m.KeysTotal.Inc()
	if handled {
		m.KeysHandledTotal.Inc()
	}
	if committed {
		m.CommitsTotal.Inc()
	}
}

// MaintenanceChanged zeroes the session gauge on entry because the engine
// drops every session.
func (m *BridgeMetrics) MaintenanceChanged(disabled bool) {
	if !disabled {
		m.MaintenanceActive.Set(0)
		return
	}
	if m.MaintenanceActive.Value() == 0 {
		m.MaintenanceTotal.Inc()
	}
	m.MaintenanceActive.Set(1)
	m.ActiveSessions.Set(0)
}

func (m *BridgeMetrics) ResponseDropped(ime.SessionID) {
	m.DroppedTotal.Inc()
}
