package world

import (
	"encoding/json"
	"fmt"

	"github.com/dogpark/server/internal/geom"
)

// Direction a dog is facing. Movement is always along exactly one axis.
type Direction int

const (
	North Direction = iota
	South
	West
	East
	NoDirection
)

// String returns the single-letter wire form ("" for NoDirection).
func (d Direction) String() string {
	switch d {
	case North:
		return "U"
	case South:
		return "D"
	case West:
		return "L"
	case East:
		return "R"
	case NoDirection:
		return ""
	}
	return "?"
}

func (d Direction) MarshalJSON() ([]byte, error) {
	if s := d.String(); s != "?" {
		return json.Marshal(s)
	}
	return nil, fmt.Errorf("unknown direction %d", int(d))
}

func (d *Direction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dir, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = dir
	return nil
}

// ParseDirection maps the wire form back; the empty string means "stop".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "U":
		return North, nil
	case "D":
		return South, nil
	case "L":
		return West, nil
	case "R":
		return East, nil
	case "":
		return NoDirection, nil
	}
	return NoDirection, fmt.Errorf("unknown direction %q", s)
}

// CargoItem is one picked-up loot item riding in a dog's bag. Type
// indexes the map's loot catalog.
type CargoItem struct {
	ID   uint64 `json:"id"`
	Type int    `json:"type"`
}

// Dog is a player's in-world avatar. The bag is ordered and bounded by
// BagCapacity; PutToBag refuses overflow rather than truncating.
type Dog struct {
	ID          uint64
	Name        string
	Pos         geom.Point
	Speed       geom.Vec
	Dir         Direction
	BagCapacity int
	Score       int
	PlayTimeMs  float64
	IdleTimeMs  float64

	bag []CargoItem
}

// NewDog places a dog at pos facing north with an empty bag.
func NewDog(id uint64, name string, pos geom.Point, bagCapacity int) *Dog {
	return &Dog{
		ID:          id,
		Name:        name,
		Pos:         pos,
		Dir:         North,
		BagCapacity: bagCapacity,
		bag:         make([]CargoItem, 0, bagCapacity),
	}
}

// BagFull reports whether another item would overflow the bag.
func (d *Dog) BagFull() bool {
	return len(d.bag) >= d.BagCapacity
}

// PutToBag appends the item, reporting false when the bag is full.
func (d *Dog) PutToBag(item CargoItem) bool {
	if d.BagFull() {
		return false
	}
	d.bag = append(d.bag, item)
	return true
}

// EmptyBag drops everything and returns how many items were dropped.
func (d *Dog) EmptyBag() int {
	n := len(d.bag)
	d.bag = d.bag[:0]
	return n
}

// Bag returns a copy of the bag contents in pickup order.
func (d *Dog) Bag() []CargoItem {
	out := make([]CargoItem, len(d.bag))
	copy(out, d.bag)
	return out
}
