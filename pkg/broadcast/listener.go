package broadcast

// how many events a listener may lag behind before events are dropped
const listenerBuffer = 64

// Listener receives session events.
type Listener struct {
	C chan Event
}

func (m *ManagerCtx) Subscribe() *Listener {
	l := &Listener{
		C: make(chan Event, listenerBuffer),
	}

	m.listenersMu.Lock()
	m.listeners[l] = struct{}{}
	m.listenersMu.Unlock()

	return l
}

// Unsubscribe removes the listener and closes its channel.
func (m *ManagerCtx) Unsubscribe(l *Listener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	if _, ok := m.listeners[l]; !ok {
		return
	}

	delete(m.listeners, l)
	close(l.C)
}

// emit never blocks, slow listeners lose events instead of stalling the encoder output.
func (m *ManagerCtx) emit(event Event) {
	m.listenersMu.RLock()
	defer m.listenersMu.RUnlock()

	for l := range m.listeners {
		select {
		case l.C <- event:
		default:
			m.logger.Debug().Str("event", string(event.Type)).Msg("listener too slow, event dropped")
		}
	}
}
