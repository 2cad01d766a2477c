package types

// Material is a filament entry in the shared catalog.
type Material struct {
	ID int64 `json:"id" db:"id"`

	// Name is unique across the catalog; upserts are keyed on it.
	Name string `json:"name" db:"name"`

	// PricePerKg is the filament price in EUR per kilogram.
	PricePerKg float64 `json:"price_per_kg" db:"price_per_kg"`
}

// Printer is a machine entry in the shared catalog.
type Printer struct {
	ID int64 `json:"id" db:"id"`

	// Name is unique across the catalog; upserts are keyed on it.
	Name string `json:"name" db:"name"`

	// CostPerHour is the machine cost in EUR per print hour.
	CostPerHour float64 `json:"cost_per_hour" db:"cost_per_hour"`
}

// CatalogSeed is the document shape accepted by catalog imports.
type CatalogSeed struct {
	Materials []Material `json:"materials" yaml:"materials"`
	Printers  []Printer  `json:"printers" yaml:"printers"`
}
