package modbus

// ServerDiagnostics represents a summary of the server state.
type ServerDiagnostics struct {
	// Messages represents the number of valid requests received, for any unit
	Messages int
	// ServerMessages represents the number of requests addressed to the configured unit
	ServerMessages int
	// CommErrors represents the number of frames rejected while decoding
	CommErrors int
	// Exceptions represents the number of exception responses sent to clients
	Exceptions int
	// Overruns represents the number of requests larger than the max Modbus payload size
	Overruns int
	// EventCounter represents the number of successfully completed requests
	EventCounter int
	// Sessions represents the number of connections accepted since start
	Sessions int
	// ActiveSessions represents the number of connections currently open
	ActiveSessions int
}

type serverDiagnosticManager struct {
	diagnostics ServerDiagnostics
	operation   chan func()
}

func newServerDiagnosticManager() *serverDiagnosticManager {
	dm := &serverDiagnosticManager{}
	dm.operation = make(chan func(), 10)
	go dm.manager()
	return dm
}

func (sdm *serverDiagnosticManager) manager() {
	for fn := range sdm.operation {
		fn()
	}
}

// update runs fn on the manager go-routine and waits for it.
func (sdm *serverDiagnosticManager) update(fn func(d *ServerDiagnostics)) {
	done := make(chan bool)
	sdm.operation <- func() {
		fn(&sdm.diagnostics)
		close(done)
	}
	<-done
}

func (sdm *serverDiagnosticManager) getDiagnostics() ServerDiagnostics {
	var got ServerDiagnostics
	sdm.update(func(d *ServerDiagnostics) {
		got = *d
	})
	return got
}

func (sdm *serverDiagnosticManager) message() {
	sdm.update(func(d *ServerDiagnostics) { d.Messages++ })
}

func (sdm *serverDiagnosticManager) serverMessage() {
	sdm.update(func(d *ServerDiagnostics) { d.ServerMessages++ })
}

func (sdm *serverDiagnosticManager) commError() {
	sdm.update(func(d *ServerDiagnostics) { d.CommErrors++ })
}

func (sdm *serverDiagnosticManager) overrun() {
	sdm.update(func(d *ServerDiagnostics) {
		d.CommErrors++
		d.Overruns++
	})
}

func (sdm *serverDiagnosticManager) exception() {
	sdm.update(func(d *ServerDiagnostics) { d.Exceptions++ })
}

func (sdm *serverDiagnosticManager) eventCounter() {
	sdm.update(func(d *ServerDiagnostics) { d.EventCounter++ })
}

func (sdm *serverDiagnosticManager) sessionOpened() {
	sdm.update(func(d *ServerDiagnostics) {
		d.Sessions++
		d.ActiveSessions++
	})
}

func (sdm *serverDiagnosticManager) sessionClosed() {
	sdm.update(func(d *ServerDiagnostics) { d.ActiveSessions-- })
}

// clear resets the protocol counters. Session counts describe live connections and survive.
func (sdm *serverDiagnosticManager) clear() {
	sdm.update(func(d *ServerDiagnostics) {
		*d = ServerDiagnostics{Sessions: d.Sessions, ActiveSessions: d.ActiveSessions}
	})
}

func (sdm *serverDiagnosticManager) clearOverrun() {
	sdm.update(func(d *ServerDiagnostics) { d.Overruns = 0 })
}
