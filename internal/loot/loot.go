// Package loot defines the per-map loot catalog and the stochastic
// generator that decides how many new items appear on a map each tick.
package loot

// Type describes one entry of a map's loot catalog. Everything except
// Value is presentation data passed through to clients untouched; Value
// is the score credited when the item is deposited at an office.
type Type struct {
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Kind     string   `json:"type"`
	Rotation *int64   `json:"rotation,omitempty"`
	Color    *string  `json:"color,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
	Value    *int     `json:"value,omitempty"`
}

// ScoreValue returns the deposit value, zero when the catalog entry has
// none.
func (t Type) ScoreValue() int {
	if t.Value == nil {
		return 0
	}
	return *t.Value
}

// Catalog is the ordered loot type list of one map. Loot item types are
// indexes into it.
type Catalog []Type
