package stream

import (
	"strconv"
	"strings"
)

// Event is one dispatched event-stream event. Data joins the accumulated
// data lines with "\n". RetryMillis is the server's reconnection hint,
// nil when the stream never sent one.
type Event struct {
	Type        string
	Data        string
	ID          string
	RetryMillis *int64
}

// eventStrategy accumulates event-stream fields until a blank line
// dispatches them. The last seen id persists across dispatches until
// overwritten; every other field resets after each dispatch.
type eventStrategy struct {
	eventType string
	dataLines []string
	id        string
	retry     *int64
}

// Events returns an event-stream (text/event-stream) decoding strategy:
// lines starting with ':' are comments, "event:"/"data:"/"id:"/"retry:"
// set fields, and a blank line dispatches one Event if at least one data
// line was accumulated since the last dispatch.
func Events() Strategy[Event] {
	return &eventStrategy{}
}

func (s *eventStrategy) Decode(line string) (Event, bool, error) {
	if line == "" {
		if len(s.dataLines) == 0 {
			s.reset()
			return Event{}, false, nil
		}
		ev := Event{
			Type:        s.eventType,
			Data:        strings.Join(s.dataLines, "\n"),
			ID:          s.id,
			RetryMillis: s.retry,
		}
		s.reset()
		return ev, true, nil
	}

	if strings.HasPrefix(line, ":") {
		return Event{}, false, nil
	}

	field, value := line, ""
	if i := strings.IndexByte(line, ':'); i >= 0 {
		field, value = line[:i], line[i+1:]
		// at most one leading space is trimmed from the value
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "event":
		s.eventType = value
	case "data":
		s.dataLines = append(s.dataLines, value)
	case "id":
		s.id = value
	case "retry":
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
			s.retry = &ms
		}
	}
	return Event{}, false, nil
}

// reset clears everything but the id, which persists until overwritten.
func (s *eventStrategy) reset() {
	s.eventType = ""
	s.dataLines = nil
	s.retry = nil
}
