// Package draft holds the unsaved project an account is composing.
package draft

import (
	"context"
	"errors"
	"fmt"

	"github.com/maxldruck/printcalc/types"
)

// ErrIndexOutOfRange is returned when an item index does not exist.
var ErrIndexOutOfRange = errors.New("item index out of range")

// Draft is the transient editing state: project-level fields plus an
// ordered list of priced items. It is never written to a ledger until saved.
type Draft struct {
	ProjectName         string              `json:"project_name"`
	CustomerName        string              `json:"customer_name"`
	WorkHours           float64             `json:"work_hours"`
	WorkRate            float64             `json:"work_rate"`
	FailedFilamentGrams float64             `json:"failed_filament_grams"`
	FailedMaterialName  string              `json:"failed_material_name"`
	Items               []types.ProjectItem `json:"items"`

	// EditingProjectID is set when the draft was loaded from a saved
	// project. Saving replaces that project.
	EditingProjectID *int64 `json:"editing_project_id,omitempty"`
}

// Store keeps one draft per owner.
type Store interface {
	// Get returns the owner's draft, or an empty draft if none exists.
	Get(ctx context.Context, owner string) (Draft, error)
	Put(ctx context.Context, owner string, d Draft) error
	Delete(ctx context.Context, owner string) error
}

// Empty reports whether the draft has no items.
func (d *Draft) Empty() bool {
	return len(d.Items) == 0
}

// Add appends an item.
func (d *Draft) Add(item types.ProjectItem) {
	d.Items = append(d.Items, item)
}

// Remove deletes the item at index and returns it.
func (d *Draft) Remove(index int) (types.ProjectItem, error) {
	if err := d.checkIndex(index); err != nil {
		return types.ProjectItem{}, err
	}
	removed := d.Items[index]
	d.Items = append(d.Items[:index], d.Items[index+1:]...)
	return removed, nil
}

// Replace swaps the item at index.
func (d *Draft) Replace(index int, item types.ProjectItem) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.Items[index] = item
	return nil
}

// Reset returns the draft to the empty state.
func (d *Draft) Reset() {
	*d = Draft{}
}

// Load builds a draft from a saved project, remembering its identity.
func Load(p types.Project) Draft {
	id := p.ID
	items := make([]types.ProjectItem, 0, len(p.Items))
	for _, item := range p.Items {
		item.ID = 0
		item.ProjectID = 0
		items = append(items, item)
	}
	return Draft{
		ProjectName:         p.Name,
		CustomerName:        p.CustomerName,
		WorkHours:           p.WorkHours,
		WorkRate:            p.WorkRate,
		FailedFilamentGrams: p.FailedFilamentGrams,
		FailedMaterialName:  p.FailedMaterialName,
		Items:               items,
		EditingProjectID:    &id,
	}
}

// Project converts the draft into an unsaved project.
func (d *Draft) Project(createdAt string) types.Project {
	items := make([]types.ProjectItem, len(d.Items))
	copy(items, d.Items)
	return types.Project{
		Name:                d.ProjectName,
		CustomerName:        d.CustomerName,
		CreatedAt:           createdAt,
		WorkHours:           d.WorkHours,
		WorkRate:            d.WorkRate,
		FailedFilamentGrams: d.FailedFilamentGrams,
		FailedMaterialName:  d.FailedMaterialName,
		Items:               items,
	}
}

func (d *Draft) checkIndex(index int) error {
	if index < 0 || index >= len(d.Items) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(d.Items))
	}
	return nil
}

func clone(d Draft) Draft {
	out := d
	if d.Items != nil {
		out.Items = make([]types.ProjectItem, len(d.Items))
		copy(out.Items, d.Items)
	}
	if d.EditingProjectID != nil {
		id := *d.EditingProjectID
		out.EditingProjectID = &id
	}
	return out
}
