// Package settings manages access levels, resource categories, resources and
// monitored devices.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"era-inventory-panel/internal/backend"
	"era-inventory-panel/internal/models"

	"github.com/go-playground/validator/v10"
)

// Panel identifies one settings panel; the value is its URL segment.
type Panel string

const (
	AccessLevels       Panel = "access-levels"
	ResourceCategories Panel = "resource-categories"
	Resources          Panel = "resources"
	Devices            Panel = "devices"
)

// Panels lists the panels in display order.
var Panels = []Panel{AccessLevels, ResourceCategories, Resources, Devices}

func ParsePanel(s string) (Panel, error) {
	for _, p := range Panels {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown settings panel %q", s)
}

// Noun is the lower-case singular used in warnings.
func (p Panel) Noun() string {
	switch p {
	case AccessLevels:
		return "access level"
	case ResourceCategories:
		return "resource category"
	case Devices:
		return "device"
	default:
		return "resource"
	}
}

func (p Panel) Title() string {
	switch p {
	case AccessLevels:
		return "Access Levels"
	case ResourceCategories:
		return "Resource Categories"
	case Devices:
		return "Devices"
	default:
		return "Resources"
	}
}

// Entity is the backend table behind the panel.
func (p Panel) Entity() string {
	switch p {
	case AccessLevels:
		return backend.EntityAccessLevel
	case ResourceCategories:
		return backend.EntityResourceCategory
	case Devices:
		return backend.EntityDevice
	default:
		return backend.EntityResource
	}
}

var (
	ErrNameRequired        = errors.New("please enter a name")
	ErrAlreadyActive       = errors.New("already exists and is active")
	ErrDuplicate           = errors.New("already exists")
	ErrCategoryRequired    = errors.New("please select a resource category for this resource")
	ErrAccessLevelRequired = errors.New("please select an access level for this resource")
	ErrAddressRequired     = errors.New("please enter a valid IPv4 address")
	ErrNotFound            = errors.New("not found")
)

// Warning renders an error as the message shown under a panel.
func Warning(p Panel, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyActive), errors.Is(err, ErrDuplicate):
		return fmt.Sprintf("This %s %s", p.Noun(), err)
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("This %s no longer exists", p.Noun())
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrCategoryRequired), errors.Is(err, ErrAccessLevelRequired),
		errors.Is(err, ErrAddressRequired):
		s := err.Error()
		return strings.ToUpper(s[:1]) + s[1:]
	default:
		return fmt.Sprintf("Error saving the %s", p.Noun())
	}
}

// Named is the shared shape of access levels and resource categories.
type Named struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active int    `json:"active"`
}

// Store is the part of the backend client settings need.
type Store interface {
	AccessLevels(ctx context.Context) ([]models.AccessLevel, error)
	ResourceCategories(ctx context.Context) ([]models.ResourceCategory, error)
	Resources(ctx context.Context) ([]models.Resource, error)
	Devices(ctx context.Context) ([]models.Device, error)
	Create(ctx context.Context, entity string, body any) error
	Update(ctx context.Context, entity, id string, body any) error
	Delete(ctx context.Context, entity, id string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Outcome says what an add did.
type Outcome string

const (
	Added       Outcome = "added"
	Reactivated Outcome = "reactivated"
)

// All returns every access level or resource category, active or not.
func (s *Service) All(ctx context.Context, p Panel) ([]Named, error) {
	var out []Named
	switch p {
	case AccessLevels:
		levels, err := s.store.AccessLevels(ctx)
		if err != nil {
			return nil, err
		}
		for _, l := range levels {
			out = append(out, Named(l))
		}
	case ResourceCategories:
		cats, err := s.store.ResourceCategories(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range cats {
			out = append(out, Named(c))
		}
	default:
		return nil, fmt.Errorf("panel %s has no active flag", p)
	}
	return out, nil
}

// Active returns the active entries sorted by name.
func (s *Service) Active(ctx context.Context, p Panel) ([]Named, error) {
	all, err := s.All(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make([]Named, 0, len(all))
	for _, n := range all {
		if n.Active == 1 {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// AddNamed adds an access level or resource category. An inactive entry with
// the same name is reactivated instead of duplicated.
func (s *Service) AddNamed(ctx context.Context, p Panel, name string) (Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	all, err := s.All(ctx, p)
	if err != nil {
		return "", err
	}
	for _, n := range all {
		if !sameName(n.Name, name) {
			continue
		}
		if n.Active == 1 {
			return "", ErrAlreadyActive
		}
		n.Active = 1
		if err := s.store.Update(ctx, p.Entity(), strconv.Itoa(n.ID), n); err != nil {
			return "", fmt.Errorf("reactivate %s %d: %w", p.Noun(), n.ID, err)
		}
		return Reactivated, nil
	}
	if err := s.store.Create(ctx, p.Entity(), Named{Name: name, Active: 1}); err != nil {
		return "", fmt.Errorf("create %s: %w", p.Noun(), err)
	}
	return Added, nil
}

// RemoveNamed soft-deletes an access level or resource category.
func (s *Service) RemoveNamed(ctx context.Context, p Panel, id int) (Named, error) {
	all, err := s.All(ctx, p)
	if err != nil {
		return Named{}, err
	}
	for _, n := range all {
		if n.ID != id {
			continue
		}
		n.Active = 0
		if err := s.store.Update(ctx, p.Entity(), strconv.Itoa(id), n); err != nil {
			return Named{}, fmt.Errorf("deactivate %s %d: %w", p.Noun(), id, err)
		}
		return n, nil
	}
	return Named{}, ErrNotFound
}

// AddResource creates a resource in a category at an access level.
func (s *Service) AddResource(ctx context.Context, name string, categoryID, accessLevelID int) error {
	name = strings.TrimSpace(name)
	if categoryID == 0 {
		return ErrCategoryRequired
	}
	if accessLevelID == 0 {
		return ErrAccessLevelRequired
	}
	if name == "" {
		return ErrNameRequired
	}
	existing, err := s.store.Resources(ctx)
	if err != nil {
		return err
	}
	for _, r := range existing {
		if sameName(r.Name, name) {
			return ErrDuplicate
		}
	}
	r := models.Resource{Name: name, CategoryID: categoryID, AccessLevelID: accessLevelID}
	if err := s.store.Create(ctx, backend.EntityResource, r); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// RemoveResource hard-deletes a resource.
func (s *Service) RemoveResource(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, backend.EntityResource, strconv.Itoa(id)); err != nil {
		if backend.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete resource %d: %w", id, err)
	}
	return nil
}

// Group is the resources of one active category.
type Group struct {
	Category  Named
	Resources []models.Resource
}

// ResourcesByCategory groups resources under their active category, both
// sorted by name.
func (s *Service) ResourcesByCategory(ctx context.Context) ([]Group, error) {
	cats, err := s.Active(ctx, ResourceCategories)
	if err != nil {
		return nil, err
	}
	resources, err := s.store.Resources(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(resources, func(i, j int) bool {
		return strings.ToLower(resources[i].Name) < strings.ToLower(resources[j].Name)
	})

	groups := make([]Group, 0, len(cats))
	for _, c := range cats {
		g := Group{Category: c}
		for _, r := range resources {
			if r.CategoryID == c.ID {
				g.Resources = append(g.Resources, r)
			}
		}
		groups = append(groups, g)
	}
	return groups, nil
}

var validate = validator.New()

// Devices returns the monitored devices sorted by name.
func (s *Service) Devices(ctx context.Context) ([]models.Device, error) {
	devices, err := s.store.Devices(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(devices, func(i, j int) bool {
		return strings.ToLower(devices[i].Name) < strings.ToLower(devices[j].Name)
	})
	return devices, nil
}

// AddDevice registers a device by name and dotted-quad IPv4 address. Names
// and addresses are unique.
func (s *Service) AddDevice(ctx context.Context, name, address string) error {
	d := models.Device{Name: strings.TrimSpace(name), IPv4: strings.TrimSpace(address)}
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			if fe.Field() == "Name" {
				return ErrNameRequired
			}
		}
		return ErrAddressRequired
	}
	// validator accepts IPv4-mapped IPv6 forms; only dotted quads are allowed.
	if strings.Contains(d.IPv4, ":") {
		return ErrAddressRequired
	}

	existing, err := s.store.Devices(ctx)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if sameName(e.Name, d.Name) || e.IPv4 == d.IPv4 {
			return ErrDuplicate
		}
	}
	if err := s.store.Create(ctx, backend.EntityDevice, d); err != nil {
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

// RemoveDevice hard-deletes a device.
func (s *Service) RemoveDevice(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, backend.EntityDevice, strconv.Itoa(id)); err != nil {
		if backend.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete device %d: %w", id, err)
	}
	return nil
}
