package dbus

import (
	"log/slog"

	godbus "github.com/godbus/dbus/v5"
)

const (
	logindIface        = "org.freedesktop.login1.Manager"
	prepareForSleep    = logindIface + ".PrepareForSleep"
	prepareForShutdown = logindIface + ".PrepareForShutdown"
)

// SleepMonitor watches systemd-logind for host suspend and resume. While the
// host sleeps the device keeps counting, so the daemon uses the wake signal to
// start new rate windows instead of averaging across the gap.
type SleepMonitor struct {
	conn *godbus.Conn
	done chan struct{}
	wake chan struct{}
	log  *slog.Logger
}

// NewSleepMonitor connects to the system bus and subscribes to logind.
func NewSleepMonitor(logger *slog.Logger) (*SleepMonitor, error) {
	conn, err := godbus.SystemBus()
	if err != nil {
		return nil, err
	}

	for _, member := range []string{"PrepareForSleep", "PrepareForShutdown"} {
		err = conn.AddMatchSignal(
			godbus.WithMatchInterface(logindIface),
			godbus.WithMatchMember(member),
		)
		if err != nil {
			return nil, err
		}
	}

	m := &SleepMonitor{
		conn: conn,
		done: make(chan struct{}),
		wake: make(chan struct{}, 1),
		log:  logger,
	}
	ch := make(chan *godbus.Signal, 16)
	conn.Signal(ch)
	go m.listen(ch)
	return m, nil
}

// Wake receives a value each time the host resumes. Wakes that arrive while
// one is pending are merged.
func (m *SleepMonitor) Wake() <-chan struct{} {
	return m.wake
}

// Close stops the monitor.
func (m *SleepMonitor) Close() {
	close(m.done)
}

func (m *SleepMonitor) listen(ch chan *godbus.Signal) {
	defer m.conn.RemoveSignal(ch)

	for {
		select {
		case sig := <-ch:
			m.handle(sig)
		case <-m.done:
			return
		}
	}
}

func (m *SleepMonitor) handle(sig *godbus.Signal) {
	if sig == nil || len(sig.Body) < 1 {
		return
	}
	active, ok := sig.Body[0].(bool)
	if !ok {
		return
	}

	switch sig.Name {
	case prepareForShutdown:
		if active {
			m.log.Info("host preparing for shutdown")
		}
	case prepareForSleep:
		if active {
			m.log.Info("host going to sleep")
			return
		}
		m.log.Info("host woke up")
		select {
		case m.wake <- struct{}{}:
		default:
		}
	}
}
