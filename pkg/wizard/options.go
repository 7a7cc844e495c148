package wizard

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formwizard/pkg/fields"
)

// Option customises a Controller.
type Option func(*Controller)

// WithName sets the wizard name recorded on the session and in events.
func WithName(name string) Option {
	return func(c *Controller) {
		c.name = strings.TrimSpace(name)
	}
}

// WithLogger sets the logger used for configuration errors.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a transition observer.
func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		c.observer = observer
	}
}

// WithFieldRegistry overrides the control registry used to build fields.
func WithFieldRegistry(reg *fields.Registry) Option {
	return func(c *Controller) {
		c.registry = reg
	}
}

// WithSessionID fixes the ID of a new session instead of generating a UUID.
func WithSessionID(id string) Option {
	return func(c *Controller) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			c.newID = func() string { return trimmed }
		}
	}
}

// WithExistingID marks the session as an edit of a stored record.
func WithExistingID(id string) Option {
	return func(c *Controller) {
		c.existingID = strings.TrimSpace(id)
	}
}

// WithParams records host parameters on a new session.
func WithParams(params map[string]string) Option {
	return func(c *Controller) {
		if len(params) == 0 {
			return
		}
		c.params = make(map[string]string, len(params))
		for key, value := range params {
			c.params[key] = value
		}
	}
}

// WithSubmitTransform rewrites the record handed to the Submitter, for
// example to inject host parameters. The session record is not modified.
func WithSubmitTransform(transform func(Record) Record) Option {
	return func(c *Controller) {
		c.transform = transform
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func defaultController() *Controller {
	return &Controller{
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
		observer: Observers(),
	}
}
