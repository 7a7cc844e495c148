package wizard

import (
	"log/slog"
	"time"
)

// EventType names a controller transition.
type EventType string

const (
	EventStarted       EventType = "started"
	EventResumed       EventType = "resumed"
	EventPageSubmitted EventType = "page_submitted"
	EventPageInvalid   EventType = "page_invalid"
	EventCompleted     EventType = "completed"
	EventPageCancelled EventType = "page_cancelled"
	EventExited        EventType = "exited"
	EventNavigated     EventType = "navigated"
	EventSubmitted     EventType = "submitted"
	EventSubmitFailed  EventType = "submit_failed"
)

// Event describes one transition. From and To are page indexes.
type Event struct {
	Type      EventType
	Wizard    string
	SessionID string
	Page      string
	From      int
	To        int
	Err       error
	Duration  time.Duration
}

// Observer receives every transition after the controller lock is released.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(event Event) { f(event) }

type multiObserver []Observer

func (m multiObserver) Observe(event Event) {
	for _, obs := range m {
		obs.Observe(event)
	}
}

// Observers fans events out to every non-nil observer.
func Observers(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			out = append(out, obs)
		}
	}
	return out
}

// LogObserver writes transitions to logger. Failures log at WARN, the rest at
// DEBUG.
func LogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return ObserverFunc(func(event Event) {
		attrs := []any{
			"wizard", event.Wizard,
			"session", event.SessionID,
			"page", event.Page,
			"from", event.From,
			"to", event.To,
		}
		if event.Duration > 0 {
			attrs = append(attrs, "duration", event.Duration)
		}
		if event.Err != nil {
			logger.Warn("wizard: "+string(event.Type), append(attrs, "error", event.Err)...)
			return
		}
		logger.Debug("wizard: "+string(event.Type), attrs...)
	})
}
