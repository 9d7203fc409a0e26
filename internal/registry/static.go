// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"time"

	"github.com/windtrace/trackerd/internal/model"
)

// legacyEventID is the sole event id in legacy single-event mode.
const legacyEventID = 1

// Static is the Registry implementation used in legacy single-event mode
// (no --manager-password configured): event id 1 always exists, is never
// archived, and its passwords come from the top-level --admin-password
// and --tracker-password flags rather than from a persisted catalog.
// This mode exists only for backward compatibility with deployments
// predating multi-event support.
type Static struct {
	adminPassword   string
	trackerPassword string
	timezone        string
	now             func() time.Time
}

// NewStatic returns a Registry reporting a single, permanent event 1.
func NewStatic(adminPassword, trackerPassword, timezone string, now func() time.Time) *Static {
	if timezone == "" {
		timezone = "UTC"
	}
	if now == nil {
		now = time.Now
	}
	return &Static{
		adminPassword:   adminPassword,
		trackerPassword: trackerPassword,
		timezone:        timezone,
		now:             now,
	}
}

func (s *Static) event() model.Event {
	ts := s.now()
	return model.Event{
		ID:              legacyEventID,
		Name:            "Default Event",
		Timezone:        s.timezone,
		AdminPassword:   s.adminPassword,
		TrackerPassword: s.trackerPassword,
		Archived:        false,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}

// Get returns event 1 for id == 1, or ErrNotFound otherwise.
func (s *Static) Get(id int) (model.Event, error) {
	if id != legacyEventID {
		return model.Event{}, ErrNotFound
	}
	return s.event(), nil
}

// ListPublic always returns event 1.
func (s *Static) ListPublic() []model.PublicEvent {
	return []model.PublicEvent{s.event().ToPublic()}
}

// ListAll always returns event 1.
func (s *Static) ListAll() []model.Event {
	return []model.Event{s.event()}
}

// Create is unsupported in legacy single-event mode.
func (s *Static) Create(CreateRequest) (int, error) {
	return 0, errLegacyUnsupported
}

// Update is unsupported in legacy single-event mode.
func (s *Static) Update(int, UpdateFields) error {
	return errLegacyUnsupported
}

// ManagerPassword is always empty in legacy single-event mode.
func (s *Static) ManagerPassword() string { return "" }

var errLegacyUnsupported = errNotSupportedInLegacyMode{}

type errNotSupportedInLegacyMode struct{}

func (errNotSupportedInLegacyMode) Error() string {
	return "registry: manager operations are not available in legacy single-event mode"
}

var _ Registry = (*Static)(nil)
var _ Registry = (*Catalog)(nil)
