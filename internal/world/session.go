package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dogpark/server/internal/collision"
	"github.com/dogpark/server/internal/data"
	"github.com/dogpark/server/internal/geom"
	"github.com/dogpark/server/internal/loot"
)

// Collision body widths (half-widths of the swept circles).
const (
	dogWidth    = 0.6 / 2.0
	lootWidth   = 0.0
	officeWidth = 0.5 / 2.0
)

// officeItemID marks deposit points in the per-tick item list. Loot ids
// start at 1, so 0 never collides with a real item.
const officeItemID = 0

const msecPerSec = 1000.0

var (
	// ErrDogNotFound reports an operation on a dog id the session does
	// not hold.
	ErrDogNotFound = errors.New("world: dog not found in session")
	// ErrOffRoad means a dog's position is outside every road rectangle.
	// Unreachable while the movement invariant holds.
	ErrOffRoad = errors.New("world: dog is not on any road")
)

// LootItem is a spawned item lying on the map, waiting for pickup.
type LootItem struct {
	ID   uint64
	Type int
	Pos  geom.Point
}

// Session is one live instance of a map. It owns its dogs and loot
// items exclusively; everything static (roads, offices, speeds, the
// loot catalog) is consulted through the owning Game passed into each
// operation, so sessions hold no back reference.
type Session struct {
	id        uint64
	mapID     string
	dogs      []*Dog
	loots     map[uint64]LootItem
	lootMaxID uint64
	catalog   loot.Catalog
}

// NewSession binds a fresh session to a map. The loot catalog is
// captured once; it never changes at runtime.
func NewSession(id uint64, mapID string, catalog loot.Catalog) *Session {
	return &Session{
		id:      id,
		mapID:   mapID,
		loots:   make(map[uint64]LootItem),
		catalog: catalog,
	}
}

func (s *Session) ID() uint64    { return s.id }
func (s *Session) MapID() string { return s.mapID }

// Dogs returns the live dog list in join order. The slice is shared;
// callers on the strand must not mutate it.
func (s *Session) Dogs() []*Dog { return s.dogs }

// Dog returns the dog with the given id, or nil.
func (s *Session) Dog(id uint64) *Dog {
	for _, d := range s.dogs {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Loots returns the live loot items keyed by id.
func (s *Session) Loots() map[uint64]LootItem { return s.loots }

// SetLoots replaces the loot set wholesale (restore path) and advances
// the id counter past the highest restored id.
func (s *Session) SetLoots(loots map[uint64]LootItem) {
	s.loots = make(map[uint64]LootItem, len(loots))
	for id, item := range loots {
		s.loots[id] = item
		if id > s.lootMaxID {
			s.lootMaxID = id
		}
	}
}

// AddDog joins a new dog at a spawn position on the session's map.
func (s *Session) AddDog(g *Game, id uint64, name string) error {
	m := g.FindMap(s.mapID)
	if m == nil {
		return fmt.Errorf("session %d: %w: %s", s.id, ErrUnknownMap, s.mapID)
	}
	s.dogs = append(s.dogs, NewDog(id, name, g.SpawnPosition(m), m.BagCapacity))
	return nil
}

// AddRestoredDog inserts a dog rebuilt from a snapshot as-is.
func (s *Session) AddRestoredDog(d *Dog) {
	s.dogs = append(s.dogs, d)
}

// RemoveDog drops the dog from the session. Unknown ids are ignored:
// the retirement sweep may race a restore in tests.
func (s *Session) RemoveDog(id uint64) {
	for i, d := range s.dogs {
		if d.ID == id {
			s.dogs = append(s.dogs[:i], s.dogs[i+1:]...)
			return
		}
	}
}

// SetDogDirection points a dog and sets its axis velocity at the map's
// dog speed. The empty direction stops the dog without turning it.
func (s *Session) SetDogDirection(g *Game, id uint64, dir Direction) error {
	d := s.Dog(id)
	if d == nil {
		return fmt.Errorf("%w: %d", ErrDogNotFound, id)
	}
	if dir == NoDirection {
		d.Speed = geom.Vec{}
		return nil
	}
	m := g.FindMap(s.mapID)
	if m == nil {
		return fmt.Errorf("session %d: %w: %s", s.id, ErrUnknownMap, s.mapID)
	}
	d.Dir = dir
	speed := m.DogSpeed
	switch dir {
	case North:
		d.Speed = geom.Vec{DX: 0, DY: -speed}
	case South:
		d.Speed = geom.Vec{DX: 0, DY: speed}
	case West:
		d.Speed = geom.Vec{DX: -speed, DY: 0}
	case East:
		d.Speed = geom.Vec{DX: speed, DY: 0}
	default:
		return fmt.Errorf("unknown direction %d", int(dir))
	}
	return nil
}

// Tick advances the session by deltaMs: move every dog, resolve pickup
// and deposit events along the swept paths in time order, then ask the
// loot generator for new spawns.
func (s *Session) Tick(g *Game, deltaMs float64) error {
	m := g.FindMap(s.mapID)
	if m == nil {
		return fmt.Errorf("session %d: %w: %s", s.id, ErrUnknownMap, s.mapID)
	}

	gatherers := make([]collision.Gatherer, len(s.dogs))
	for i, d := range s.dogs {
		gatherers[i] = collision.Gatherer{
			ID:    uint64(i),
			Start: d.Pos,
			Width: dogWidth,
		}
	}

	for _, d := range s.dogs {
		if err := s.moveDog(m, d, deltaMs); err != nil {
			return err
		}
	}

	for i, d := range s.dogs {
		gatherers[i].End = d.Pos
	}

	items := make([]collision.Item, 0, len(s.loots)+len(m.Offices))
	lootIDs := make([]uint64, 0, len(s.loots))
	for id := range s.loots {
		lootIDs = append(lootIDs, id)
	}
	sort.Slice(lootIDs, func(i, j int) bool { return lootIDs[i] < lootIDs[j] })
	for _, id := range lootIDs {
		items = append(items, collision.Item{
			ID:       id,
			Position: s.loots[id].Pos,
			Width:    lootWidth,
		})
	}
	for _, office := range m.Offices {
		items = append(items, collision.Item{
			ID:       officeItemID,
			Position: office.Position(),
			Width:    officeWidth,
		})
	}

	provider := collision.Slice{ItemList: items, GathererList: gatherers}
	for _, ev := range collision.FindSortedGatherEvents(provider) {
		dog := s.dogs[ev.GathererID]
		if ev.ItemID != officeItemID {
			item, alive := s.loots[ev.ItemID]
			if !alive {
				continue // picked up earlier this tick
			}
			if dog.PutToBag(CargoItem{ID: item.ID, Type: item.Type}) {
				delete(s.loots, ev.ItemID)
			}
		} else {
			for _, cargo := range dog.Bag() {
				dog.Score += s.lootValue(cargo.Type)
			}
			dog.EmptyBag()
		}
	}

	count := g.lootGen.Generate(deltaMs, len(s.loots), len(s.dogs))
	s.spawnLoots(g, m, count)
	return nil
}

func (s *Session) lootValue(lootType int) int {
	if lootType < 0 || lootType >= len(s.catalog) {
		return 0
	}
	return s.catalog[lootType].ScoreValue()
}

// moveDog steps one dog along its velocity, clamped to the road graph.
// A step that leaves the current road may continue onto any road that
// contains the exit point; if none accepts the destination the dog
// stops at the last reachable border.
func (s *Session) moveDog(m *data.Map, d *Dog, deltaMs float64) error {
	d.PlayTimeMs += deltaMs

	desired := d.Pos.Add(d.Speed.Scaled(deltaMs / msecPerSec))
	if desired == d.Pos || deltaMs == 0 {
		d.IdleTimeMs += deltaMs
		return nil
	}

	roads := m.Roads
	startIdx := -1
	for i := range roads {
		if roads[i].Bounds.Contains(d.Pos) {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return fmt.Errorf("%w: dog %d at (%g, %g) on map %s",
			ErrOffRoad, d.ID, d.Pos.X, d.Pos.Y, m.ID)
	}

	if roads[startIdx].Bounds.Contains(desired) {
		d.Pos = desired
		d.IdleTimeMs = 0
		return nil
	}

	border, err := roads[startIdx].Bounds.LeavingPoint(geom.Segment{Start: d.Pos, End: desired})
	if err != nil {
		return err
	}
	for i := 0; i < len(roads); i++ {
		if i == startIdx || !roads[i].Bounds.Contains(border) {
			continue
		}
		if roads[i].Bounds.Contains(desired) {
			d.Pos = desired
			d.IdleTimeMs = 0
			return nil
		}
		border, err = roads[i].Bounds.LeavingPoint(geom.Segment{Start: d.Pos, End: desired})
		if err != nil {
			return err
		}
	}

	// Dead end: stop at the last border reached.
	d.Pos = border
	d.IdleTimeMs = 0
	d.Speed = geom.Vec{}
	return nil
}

// spawnLoots places count new items at spawn positions with uniformly
// random catalog types.
func (s *Session) spawnLoots(g *Game, m *data.Map, count int) {
	if len(s.catalog) == 0 {
		return
	}
	for i := 0; i < count; i++ {
		s.lootMaxID++
		s.loots[s.lootMaxID] = LootItem{
			ID:   s.lootMaxID,
			Type: g.rng.Intn(len(s.catalog)),
			Pos:  g.SpawnPosition(m),
		}
	}
}
