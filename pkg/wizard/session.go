package wizard

import "time"

// Session is the persisted state of one wizard run: the accumulated record
// plus the page pointer. Current always indexes the page list; Reached is the
// furthest page unlocked by valid submissions.
type Session struct {
	ID         string `json:"id"`
	Wizard     string `json:"wizard"`
	Record     Record `json:"record"`
	Current    int    `json:"current"`
	Reached    int    `json:"reached"`
	Completed  bool   `json:"completed"`
	ExistingID string `json:"existing_id,omitempty"`
	// Params holds host parameters captured when the session started, such
	// as the owning service member.
	Params    map[string]string `json:"params,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Clone returns a copy that shares no maps with s.
func (s Session) Clone() Session {
	s.Record = s.Record.Clone()
	if s.Params != nil {
		params := make(map[string]string, len(s.Params))
		for key, value := range s.Params {
			params[key] = value
		}
		s.Params = params
	}
	return s
}

func (s *Session) clamp(pageCount int) {
	last := pageCount - 1
	if s.Reached < 0 {
		s.Reached = 0
	}
	if s.Reached > last {
		s.Reached = last
	}
	if s.Current < 0 {
		s.Current = 0
	}
	if s.Current > s.Reached {
		s.Current = s.Reached
	}
	if s.Completed {
		s.Current = last
		s.Reached = last
	}
}
