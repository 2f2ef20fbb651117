// Package access tracks staged grant/revoke changes for an employee and
// turns them into backend association writes.
package access

import (
	"fmt"
	"sort"
	"time"

	"era-inventory-panel/internal/models"
)

type Action string

const (
	Grant  Action = "grant"
	Revoke Action = "revoke"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case Grant, Revoke:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown access action %q", s)
}

func (a Action) opposite() Action {
	if a == Grant {
		return Revoke
	}
	return Grant
}

// Pending maps resource id to the staged action. It is kept apart from the
// associations the backend confirmed.
type Pending map[int]Action

// Stage records an action. Staging the opposite of an already staged action
// removes the entry so grant-then-revoke leaves nothing to save.
func (p Pending) Stage(resourceID int, a Action) {
	if cur, ok := p[resourceID]; ok && cur == a.opposite() {
		delete(p, resourceID)
		return
	}
	p[resourceID] = a
}

func (p Pending) Clear() {
	for k := range p {
		delete(p, k)
	}
}

// Latest returns the newest association for a resource.
func Latest(resourceID int, assocs []models.ResourceAssociation) (models.ResourceAssociation, bool) {
	var (
		best  models.ResourceAssociation
		found bool
	)
	for _, a := range assocs {
		if a.ResourceID != resourceID {
			continue
		}
		if !found || a.ID > best.ID {
			best, found = a, true
		}
	}
	return best, found
}

// Effective reports whether the resource shows as granted once pending
// changes are taken into account.
func Effective(resourceID int, assocs []models.ResourceAssociation, pending Pending) bool {
	if a, ok := pending[resourceID]; ok {
		return a == Grant
	}
	cur, ok := Latest(resourceID, assocs)
	return ok && cur.InEffect()
}

type ChangeKind string

const (
	Create ChangeKind = "create"
	Update ChangeKind = "update"
)

// Change is one association write produced by Plan.
type Change struct {
	Kind        ChangeKind
	Action      Action
	Association models.ResourceAssociation
}

// Plan diffs pending actions against the existing associations. A grant with
// no prior association creates one; otherwise the existing association's
// timestamps are updated. Changes that would not alter anything are dropped.
func Plan(employeeID int, assocs []models.ResourceAssociation, pending Pending, now time.Time) []Change {
	ids := make([]int, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	ts := models.NewTimestamp(now)
	var out []Change
	for _, rid := range ids {
		action := pending[rid]
		cur, exists := Latest(rid, assocs)

		switch {
		case action == Grant && !exists:
			out = append(out, Change{Kind: Create, Action: Grant, Association: models.ResourceAssociation{
				ResourceID: rid,
				EmployeeID: employeeID,
				Granted:    ts,
				Created:    ts,
			}})
		case action == Grant && !cur.InEffect():
			cur.Granted = ts
			cur.Revoked = nil
			out = append(out, Change{Kind: Update, Action: Grant, Association: cur})
		case action == Revoke && exists && cur.InEffect():
			cur.Revoked = ts
			out = append(out, Change{Kind: Update, Action: Revoke, Association: cur})
		}
	}
	return out
}
