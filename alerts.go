package confluo

import (
	"sync"
	"time"
)

// Alert records one trigger firing against one ingested record.
type Alert struct {
	Seq     uint64         `json:"seq"`
	Time    time.Time      `json:"time"`
	Trigger string         `json:"trigger"`
	Offset  int64          `json:"offset"`
	Record  map[string]any `json:"record"`
}

// alertLog keeps fired alerts in order and fans them out to stream
// subscribers. Slow subscribers are dropped rather than allowed to
// block the ingest path.
type alertLog struct {
	mu     sync.Mutex
	alerts []Alert
	nextID uint64
	subs   map[chan Alert]struct{}
}

func newAlertLog() *alertLog {
	return &alertLog{subs: make(map[chan Alert]struct{})}
}

func (al *alertLog) add(a Alert) Alert {
	al.mu.Lock()
	defer al.mu.Unlock()

	al.nextID++
	a.Seq = al.nextID
	al.alerts = append(al.alerts, a)

	for ch := range al.subs {
		select {
		case ch <- a:
		default:
			delete(al.subs, ch)
			close(ch)
		}
	}
	return a
}

// since returns all alerts with Seq greater than seq.
func (al *alertLog) since(seq uint64) []Alert {
	al.mu.Lock()
	defer al.mu.Unlock()

	if seq >= uint64(len(al.alerts)) {
		return nil
	}
	return append([]Alert(nil), al.alerts[seq:]...)
}

// subscribe returns a channel receiving future alerts. The channel is
// closed if the subscriber falls behind or unsubscribe is called.
func (al *alertLog) subscribe() chan Alert {
	ch := make(chan Alert, 64)
	al.mu.Lock()
	al.subs[ch] = struct{}{}
	al.mu.Unlock()
	return ch
}

func (al *alertLog) unsubscribe(ch chan Alert) {
	al.mu.Lock()
	defer al.mu.Unlock()
	if _, ok := al.subs[ch]; ok {
		delete(al.subs, ch)
		close(ch)
	}
}
