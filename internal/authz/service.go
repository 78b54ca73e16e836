// Package authz holds the role-keyed permission table and answers feature visibility checks.
//
// A role's dashboard permission gates every feature of that role. Writes enforce this by
// clearing the feature flags of a disabled dashboard before the table is stored, so
// re-enabling a dashboard does not bring back the features that were enabled before.
package authz

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/victornm/scholarway/internal/domain"
	"github.com/victornm/scholarway/internal/errors"
	"github.com/victornm/scholarway/internal/event"
	"github.com/victornm/scholarway/internal/storage"
	"github.com/victornm/scholarway/internal/telemetry"
)

const DefaultKey = "permissions"

type Config struct {
	Store    storage.Store
	EventBus event.Publisher
	// Key is the storage key of the permission table. Defaults to DefaultKey.
	Key string
}

type Service struct {
	store storage.Store
	eb    event.Publisher
	key   string

	// wmu serializes writers, including the storage write, so the stored copy
	// always matches the last accepted table.
	wmu sync.Mutex

	mu    sync.RWMutex
	table domain.PermissionTable
}

func NewService(c Config) *Service {
	key := c.Key
	if key == "" {
		key = DefaultKey
	}

	return &Service{
		store: c.Store,
		eb:    c.EventBus,
		key:   key,
		table: normalize(DefaultPermissions()),
	}
}

// Init loads the stored table. When nothing is stored, or the stored copy is unusable,
// the defaults are persisted. A storage failure keeps the in-memory defaults.
func (s *Service) Init(ctx context.Context) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	var t domain.PermissionTable
	err := storage.GetJSON(ctx, s.store, s.key, &t)
	if err == nil {
		err = Validate(t)
	}

	switch {
	case err == nil:
		t = normalize(t)
		s.mu.Lock()
		s.table = t
		s.mu.Unlock()
		slog.InfoContext(ctx, "authz: loaded stored permissions")
		return

	case stderrors.Is(err, storage.ErrNotFound):
		slog.InfoContext(ctx, "authz: no stored permissions, persisting defaults")

	case stderrors.Is(err, storage.ErrMalformed), errors.Is(err, errors.CodeInvalidArgument):
		slog.WarnContext(ctx, "authz: stored permissions are invalid, persisting defaults", "error", err)

	default:
		slog.ErrorContext(ctx, "authz: load permissions failed, using defaults", "error", err)
		return
	}

	s.persist(ctx, s.Permissions())
}

// HasPermission reports whether the session user may see featureID of role.
// A superadmin session is always allowed. Any other session may only query its own role.
func (s *Service) HasPermission(ctx context.Context, role domain.Role, featureID string) bool {
	allowed := s.hasPermission(domain.RoleFromContext(ctx), role, featureID)
	telemetry.PermissionChecks.WithLabelValues(telemetry.Decision(allowed)).Inc()
	return allowed
}

func (s *Service) hasPermission(session, role domain.Role, featureID string) bool {
	if session == domain.RoleSuperadmin {
		return true
	}

	if session != role || !role.Managed() {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.table[role]
	if !ok {
		return false
	}

	if featureID == role.DashboardID() {
		return set.Dashboard.Enabled
	}

	for _, f := range set.Features {
		if f.ID == featureID {
			return f.Enabled && set.Dashboard.Enabled
		}
	}

	return false
}

// Permissions returns a copy of the whole table for administrative screens.
func (s *Service) Permissions() domain.PermissionTable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.table.Clone()
}

// UpdatePermissions replaces the whole table and returns the table as stored.
func (s *Service) UpdatePermissions(ctx context.Context, t domain.PermissionTable) (domain.PermissionTable, error) {
	return s.modify(ctx, func(domain.PermissionTable) (domain.PermissionTable, error) {
		return t.Clone(), nil
	})
}

// SetDashboard switches the dashboard of role. Disabling it clears every feature of the role.
func (s *Service) SetDashboard(ctx context.Context, role domain.Role, enabled bool) (domain.PermissionTable, error) {
	if !role.Managed() {
		return nil, errors.InvalidArgument("unknown role: %q", role)
	}

	return s.modify(ctx, func(t domain.PermissionTable) (domain.PermissionTable, error) {
		set := t[role]
		set.Dashboard.Enabled = enabled
		t[role] = set
		return t, nil
	})
}

// SetFeature switches a single feature of role, identified by its permission id.
// Enabling a feature behind a disabled dashboard has no effect.
func (s *Service) SetFeature(ctx context.Context, role domain.Role, featureID string, enabled bool) (domain.PermissionTable, error) {
	if !role.Managed() {
		return nil, errors.InvalidArgument("unknown role: %q", role)
	}

	return s.modify(ctx, func(t domain.PermissionTable) (domain.PermissionTable, error) {
		set := t[role]
		for k, f := range set.Features {
			if f.ID == featureID {
				f.Enabled = enabled
				set.Features[k] = f
				return t, nil
			}
		}

		return nil, errors.NotFound("feature not found: role=%s feature=%s", role, featureID)
	})
}

func (s *Service) modify(ctx context.Context, fn func(t domain.PermissionTable) (domain.PermissionTable, error)) (domain.PermissionTable, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	t, err := fn(s.Permissions())
	if err != nil {
		return nil, err
	}

	if err := Validate(t); err != nil {
		return nil, err
	}
	t = normalize(t)

	s.mu.Lock()
	s.table = t
	s.mu.Unlock()

	s.persist(ctx, t)
	telemetry.PermissionUpdates.Inc()

	s.eb.Publish(ctx, domain.EventPermissionsUpdated{
		Permissions: t.Clone(),
	})

	return t.Clone(), nil
}

// persist is fire-and-forget: the in-memory table stays authoritative when storage fails.
func (s *Service) persist(ctx context.Context, t domain.PermissionTable) {
	if err := storage.SetJSON(ctx, s.store, s.key, t); err != nil {
		slog.ErrorContext(ctx, "authz: persist permissions failed", "error", err)
	}
}

// Validate checks the structure of a permission table: every managed role is present,
// no other role is, and permission ids are namespaced by their role.
func Validate(t domain.PermissionTable) error {
	if err := validate(t); err != nil {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid permissions: %s", err),
			errors.WithCause(err),
		)
	}

	return nil
}

func validate(t domain.PermissionTable) error {
	for r := range t {
		if !r.Managed() {
			return fmt.Errorf("unexpected role %q", r)
		}
	}

	for _, r := range domain.ManagedRoles {
		set, ok := t[r]
		if !ok {
			return fmt.Errorf("missing role %q", r)
		}

		if set.Dashboard.ID != r.DashboardID() {
			return fmt.Errorf("role %s: dashboard id must be %q, got %q", r, r.DashboardID(), set.Dashboard.ID)
		}

		seen := make(map[string]struct{}, len(set.Features))
		for k, f := range set.Features {
			switch {
			case k == "":
				return fmt.Errorf("role %s: empty feature key", r)
			case !strings.HasPrefix(f.ID, string(r)+"-") || f.ID == r.DashboardID():
				return fmt.Errorf("role %s: feature %s has invalid id %q", r, k, f.ID)
			}

			if _, dup := seen[f.ID]; dup {
				return fmt.Errorf("role %s: duplicate feature id %q", r, f.ID)
			}
			seen[f.ID] = struct{}{}
		}
	}

	return nil
}

func normalize(t domain.PermissionTable) domain.PermissionTable {
	for r, set := range t {
		if set.Dashboard.Enabled {
			continue
		}

		for k, f := range set.Features {
			f.Enabled = false
			set.Features[k] = f
		}
		t[r] = set
	}

	return t
}
