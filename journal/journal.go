package journal

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// eventKey builds the per-record storage key of an event. Keys sort
// lexicographically in chronological order; the controller is the single
// writer, so its clock gives every event of a record a distinct timestamp.
func eventKey(event interfaces.Event) string {
	return fmt.Sprintf("%020d-%s.json", event.Timestamp.UnixNano(), event.Kind)
}

// recordPrefix is the storage namespace of a record's events.
func recordPrefix(id interfaces.RecordID) string {
	return fmt.Sprintf("records/%d", id)
}

func encodeEvent(event interfaces.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("could not encode event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (interfaces.Event, error) {
	var event interfaces.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return interfaces.Event{}, fmt.Errorf("could not decode event: %w", err)
	}
	return event, nil
}

func sortEventsByKey(keys []string) {
	sort.Strings(keys)
}
