package purge

import (
	"errors"
	"time"
)

// Event is the wire format of one purge message. Version orders events for
// the same key so replays and out-of-order delivery cannot resurrect a
// removal.
type Event struct {
	Keys    []string  `json:"keys"`
	Version uint64    `json:"version"`
	TS      time.Time `json:"ts"`
	Op      string    `json:"op,omitempty"`
}

func (e Event) Validate() error {
	if len(e.Keys) == 0 {
		return errors.New("purge event: no keys")
	}
	for _, k := range e.Keys {
		if k == "" {
			return errors.New("purge event: empty key")
		}
	}
	return nil
}
