package types

// ItemType distinguishes printed parts from bought-in accessories.
type ItemType string

const (
	ItemPrintedPart ItemType = "printed_part"
	ItemAccessory   ItemType = "accessory"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemPrintedPart || t == ItemAccessory
}

// Project is a saved quote with its line items.
type Project struct {
	// ID is assigned by the owning ledger on save.
	ID int64 `json:"id"`

	Name string `json:"name"`

	// CustomerName is optional; empty means not set.
	CustomerName string `json:"customer_name,omitempty"`

	// CreatedAt is the human-readable creation date, e.g. "16. October 2026".
	CreatedAt string `json:"created_at"`

	// WorkHours and WorkRate describe manual labour. They are shown on
	// quotes but never included in the total.
	WorkHours float64 `json:"work_hours"`
	WorkRate  float64 `json:"work_rate"`

	// FailedFilamentGrams and FailedMaterialName describe wasted filament.
	// Shown on quotes, never included in the total.
	FailedFilamentGrams float64 `json:"failed_filament_grams"`
	FailedMaterialName  string  `json:"failed_material_name,omitempty"`

	Items []ProjectItem `json:"items"`

	// Total is the sum of item costs, filled in when the project is read.
	Total float64 `json:"total"`
}

// ProjectItem is one priced line of a project.
type ProjectItem struct {
	ID        int64    `json:"id,omitempty"`
	ProjectID int64    `json:"project_id,omitempty"`
	Type      ItemType `json:"type"`
	Name      string   `json:"name"`

	// WeightGrams is zero for accessories.
	WeightGrams float64 `json:"weight_grams"`

	// Cost is computed once when the item is created and never re-derived.
	Cost float64 `json:"cost"`

	// Details is free text: the material name for printed parts,
	// "<n> Stk" for accessories.
	Details string `json:"details"`
}

// Stats aggregates all ledgers.
type Stats struct {
	Revenue  float64 `json:"revenue"`
	Projects int     `json:"projects"`
	Items    int     `json:"items"`
	Ledgers  int     `json:"ledgers"`
}
