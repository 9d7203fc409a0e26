// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry implements the Event Registry: the persistent catalog
// of events backing trackerd's multi-event mode, plus a Static
// implementation for legacy single-event deployments.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/windtrace/trackerd/internal/model"
	"github.com/windtrace/trackerd/internal/storage"
)

// ErrNotFound is returned when an event id is not present in the catalog.
var ErrNotFound = errors.New("registry: event not found")

// Registry is the interface the rest of the system depends on, so ingest
// and the admin API are unaware of whether multi-event mode (Catalog) or
// legacy single-event mode (Static) is in play.
type Registry interface {
	Get(id int) (model.Event, error)
	ListPublic() []model.PublicEvent
	ListAll() []model.Event
	Create(req CreateRequest) (int, error)
	Update(id int, fields UpdateFields) error
	ManagerPassword() string
}

// CreateRequest carries the fields accepted by Create.
type CreateRequest struct {
	Name              string
	Description       string
	AdminPassword     string
	TrackerPassword   string
	OwnTracksPassword string
	Timezone          string
	HomeLocation      string
	HomeLat           *float64
	HomeLon           *float64
}

// UpdateFields carries the allow-listed fields accepted by Update. A nil
// pointer leaves the corresponding Event field untouched.
type UpdateFields struct {
	Name              *string
	Description       *string
	Archived          *bool
	AdminPassword     *string
	TrackerPassword   *string
	OwnTracksPassword *string
	Timezone          *string
	HomeLocation      *string
	HomeLat           *float64
	HomeLon           *float64
}

// catalogDoc is the on-disk shape of events.json.
type catalogDoc struct {
	NextEventID     int                  `json:"next_eid"`
	ManagerPassword string               `json:"manager_password"`
	Events          map[string]model.Event `json:"events"`
}

// Catalog is the persistent multi-event Registry implementation.
type Catalog struct {
	mu       sync.Mutex
	path     string
	dataRoot string
	now      func() time.Time
	logger   zerolog.Logger

	nextID          int
	managerPassword string
	events          map[int]model.Event
}

// NewCatalog loads path if it exists, or creates a fresh catalog seeded
// with managerPassword otherwise. dataRoot is the directory under which
// each event's on-disk layout (data/events/<id>/...) is eagerly created.
func NewCatalog(path, dataRoot, managerPassword string, now func() time.Time, logger zerolog.Logger) (*Catalog, error) {
	if now == nil {
		now = time.Now
	}
	c := &Catalog{
		path:     path,
		dataRoot: dataRoot,
		now:      now,
		logger:   logger,
		nextID:   1,
		events:   make(map[int]model.Event),
	}

	var doc catalogDoc
	err := storage.ReadJSON(path, &doc)
	switch {
	case err == nil:
		c.nextID = doc.NextEventID
		c.managerPassword = doc.ManagerPassword
		for _, ev := range doc.Events {
			c.events[ev.ID] = ev
		}
	case os.IsNotExist(err) || errors.Is(err, os.ErrNotExist):
		c.managerPassword = managerPassword
		if c.nextID == 0 {
			c.nextID = 1
		}
		if err := c.saveLocked(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("registry: load catalog: %w", err)
	}
	return c, nil
}

// saveLocked persists the catalog. Must be called with c.mu held.
// Persistence failure is logged but never aborts the in-memory update —
// the next successful save republishes it.
func (c *Catalog) saveLocked() error {
	doc := catalogDoc{
		NextEventID:     c.nextID,
		ManagerPassword: c.managerPassword,
		Events:          make(map[string]model.Event, len(c.events)),
	}
	for id, ev := range c.events {
		doc.Events[fmt.Sprintf("%d", id)] = ev
	}
	if err := storage.WriteJSON(c.path, doc, true); err != nil {
		c.logger.Error().Err(err).Msg("registry: failed to persist catalog, will retry on next mutation")
		return err
	}
	return nil
}

// ManagerPassword returns the catalog's manager password.
func (c *Catalog) ManagerPassword() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.managerPassword
}

// Get returns the event with the given id, or ErrNotFound.
func (c *Catalog) Get(id int) (model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return ev, nil
}

// ListPublic returns non-archived events sorted by name.
func (c *Catalog) ListPublic() []model.PublicEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.PublicEvent, 0, len(c.events))
	for _, ev := range c.events {
		if ev.Archived {
			continue
		}
		out = append(out, ev.ToPublic())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListAll returns every event, including archived ones, sorted by id.
func (c *Catalog) ListAll() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Event, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Create allocates a new event id, persists the catalog, and eagerly
// creates the event's on-disk directory layout.
func (c *Catalog) Create(req CreateRequest) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}

	now := c.now()
	ev := model.Event{
		ID:                id,
		Name:              req.Name,
		Description:       req.Description,
		Timezone:          tz,
		HomeLocation:      req.HomeLocation,
		HomeLat:           req.HomeLat,
		HomeLon:           req.HomeLon,
		AdminPassword:     req.AdminPassword,
		TrackerPassword:   req.TrackerPassword,
		OwnTracksPassword: req.OwnTracksPassword,
		Archived:          false,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	c.events[id] = ev

	if err := c.saveLocked(); err != nil {
		c.logger.Warn().Err(err).Int("event_id", id).Msg("registry: created event but catalog persist failed")
	}

	eventDir := filepath.Join(c.dataRoot, "events", fmt.Sprintf("%d", id))
	if err := os.MkdirAll(filepath.Join(eventDir, "logs"), 0o755); err != nil {
		return id, fmt.Errorf("registry: create event directory layout: %w", err)
	}
	return id, nil
}

// Update applies the allow-listed, non-nil fields to the event with the
// given id, stamps an update timestamp, and persists the catalog.
func (c *Catalog) Update(id int, fields UpdateFields) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.events[id]
	if !ok {
		return ErrNotFound
	}
	if fields.Name != nil {
		ev.Name = *fields.Name
	}
	if fields.Description != nil {
		ev.Description = *fields.Description
	}
	if fields.Archived != nil {
		ev.Archived = *fields.Archived
	}
	if fields.AdminPassword != nil {
		ev.AdminPassword = *fields.AdminPassword
	}
	if fields.TrackerPassword != nil {
		ev.TrackerPassword = *fields.TrackerPassword
	}
	if fields.OwnTracksPassword != nil {
		ev.OwnTracksPassword = *fields.OwnTracksPassword
	}
	if fields.Timezone != nil {
		ev.Timezone = *fields.Timezone
	}
	if fields.HomeLocation != nil {
		ev.HomeLocation = *fields.HomeLocation
	}
	if fields.HomeLat != nil {
		ev.HomeLat = fields.HomeLat
	}
	if fields.HomeLon != nil {
		ev.HomeLon = fields.HomeLon
	}
	ev.UpdatedAt = c.now()
	c.events[id] = ev

	return c.saveLocked()
}

// EventDir returns the on-disk directory for event id under dataRoot.
func EventDir(dataRoot string, id int) string {
	return filepath.Join(dataRoot, "events", fmt.Sprintf("%d", id))
}
