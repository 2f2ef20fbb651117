package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"era-inventory-panel/internal/models"

	"github.com/go-playground/validator/v10"
)

// DiffEmployee lists the editable fields that differ between the snapshot
// taken when the employee was selected and the edited copy.
func DiffEmployee(original, edited models.Employee) []string {
	var changed []string
	cmp := func(name, a, b string) {
		if strings.TrimSpace(a) != strings.TrimSpace(b) {
			changed = append(changed, name)
		}
	}
	cmp("first", original.First, edited.First)
	cmp("last", original.Last, edited.Last)
	cmp("branch", original.Branch, edited.Branch)
	cmp("jobTitle", original.JobTitle, edited.JobTitle)
	cmp("startDate", models.InputDate(original.StartDate), models.InputDate(edited.StartDate))
	cmp("endDate", models.InputDate(original.EndDateValue()), models.InputDate(edited.EndDateValue()))
	return changed
}

// AfterSave selects what the page does once a save succeeds.
type AfterSave string

const (
	AfterSaveClear  AfterSave = "clear"
	AfterSaveReview AfterSave = "review"
)

func ParseAfterSave(s string) AfterSave {
	if AfterSave(s) == AfterSaveReview {
		return AfterSaveReview
	}
	return AfterSaveClear
}

// Store is the part of the backend client a commit needs.
type Store interface {
	CreateAssociation(ctx context.Context, a models.ResourceAssociation) error
	UpdateAssociation(ctx context.Context, a models.ResourceAssociation) error
	UpdateEmployee(ctx context.Context, e models.Employee) error
}

// Result summarises a commit.
type Result struct {
	Created         int
	Updated         int
	EmployeeUpdated bool
}

// Empty reports whether nothing was written.
func (r Result) Empty() bool {
	return r.Created == 0 && r.Updated == 0 && !r.EmployeeUpdated
}

// Commit writes the employee PUT (when fields changed) and every planned
// association change. It keeps going after a failure and returns all errors.
func Commit(ctx context.Context, store Store, original, edited models.Employee, changes []Change) (Result, error) {
	var (
		res  Result
		errs []error
	)

	if len(DiffEmployee(original, edited)) > 0 {
		if err := ValidateEmployee(edited); err != nil {
			errs = append(errs, err)
		} else if err := store.UpdateEmployee(ctx, edited); err != nil {
			errs = append(errs, fmt.Errorf("update employee %d: %w", edited.ID, err))
		} else {
			res.EmployeeUpdated = true
		}
	}

	for _, c := range changes {
		var err error
		switch c.Kind {
		case Create:
			err = store.CreateAssociation(ctx, c.Association)
		case Update:
			err = store.UpdateAssociation(ctx, c.Association)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s resource %d: %w", c.Action, c.Association.ResourceID, err))
			continue
		}
		if c.Kind == Create {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res, errors.Join(errs...)
}

var validate = validator.New()

// ValidateEmployee checks the required employee fields.
func ValidateEmployee(e models.Employee) error {
	e.First = strings.TrimSpace(e.First)
	e.Last = strings.TrimSpace(e.Last)
	e.Branch = strings.TrimSpace(e.Branch)
	e.JobTitle = strings.TrimSpace(e.JobTitle)
	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			names := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				names = append(names, fe.Field())
			}
			return fmt.Errorf("missing required employee fields: %s", strings.Join(names, ", "))
		}
		return err
	}
	return nil
}

// EmployeeForm is the submitted employee form.
type EmployeeForm struct {
	First     string
	Last      string
	Branch    string
	JobTitle  string
	StartDate string
	EndDate   string
}

// Apply copies form values onto an employee. An empty end date means the
// employee is active.
func (f EmployeeForm) Apply(e models.Employee) models.Employee {
	e.First = strings.TrimSpace(f.First)
	e.Last = strings.TrimSpace(f.Last)
	e.Branch = strings.TrimSpace(f.Branch)
	e.JobTitle = strings.TrimSpace(f.JobTitle)
	if iso := models.ISODate(f.StartDate); iso != "" {
		e.StartDate = iso
	}
	if iso := models.ISODate(f.EndDate); iso != "" {
		e.EndDate = &iso
	} else {
		e.EndDate = nil
	}
	return e
}

// NewEmployee builds a new employee from the form. The start date defaults
// to now and created is stamped with now.
func NewEmployee(f EmployeeForm, now time.Time) (models.Employee, error) {
	e := f.Apply(models.Employee{})
	stamp := now.UTC().Format(time.RFC3339)
	if e.StartDate == "" {
		e.StartDate = stamp
	}
	e.Created = stamp
	if err := ValidateEmployee(e); err != nil {
		return models.Employee{}, err
	}
	return e, nil
}
