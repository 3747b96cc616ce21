package events

import "sync"

type Published struct {
	Subject string
	Event   RoomEvent
}

// Recorder keeps every published event in memory. Used by tests of the
// registry and rooms, and handy when running without a broker.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) Publish(subject string, ev RoomEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Subject: subject, Event: ev})
	return nil
}

func (r *Recorder) Close() {}

func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}
