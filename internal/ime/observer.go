package ime

// Observer receives session lifecycle notifications from the Bridge. Calls
// happen on the Bridge's caller goroutine and must not call back into it.
type Observer interface {
	SessionAdded(id SessionID, app string)
	SessionRemoved(id SessionID)
	KeyProcessed(id SessionID, handled, committed bool)
	MaintenanceChanged(disabled bool)
	// ResponseDropped reports a response that did not fit the client's
	// buffer.
	ResponseDropped(id SessionID)
}

type nopObserver struct{}

func (nopObserver) SessionAdded(SessionID, string) {}
func (nopObserver) SessionRemoved(SessionID) {}
func (nopObserver) KeyProcessed(SessionID, bool, bool) {}
func (nopObserver) MaintenanceChanged(bool) {}
func (nopObserver) ResponseDropped(SessionID) {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) SessionAdded(id SessionID, app string) {
	for _, ob := range o {
		ob.SessionAdded(id, app)
	}
}

func (o Observers) SessionRemoved(id SessionID) {
	for _, ob := range o {
		ob.SessionRemoved(id)
	}
}

func (o Observers) KeyProcessed(id SessionID, handled, committed bool) {
	for _, ob := range o {
		ob.KeyProcessed(id, handled, committed)
	}
}

func (o Observers) MaintenanceChanged(disabled bool) {
	for _, ob := range o {
		ob.MaintenanceChanged(disabled)
	}
}

func (o Observers) ResponseDropped(id SessionID) {
	for _, ob := range o {
		ob.ResponseDropped(id)
	}
}
