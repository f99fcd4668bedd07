package world

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/dogpark/server/internal/data"
	"github.com/dogpark/server/internal/geom"
	"github.com/dogpark/server/internal/loot"
)

var (
	// ErrDuplicateMap reports a second AddMap with the same id.
	ErrDuplicateMap = errors.New("world: map already exists")
	// ErrUnknownMap reports an operation against a map id the game
	// never loaded.
	ErrUnknownMap = errors.New("world: unknown map")
)

// TickHandler is invoked after every completed external tick.
type TickHandler func(deltaMs float64)

// Game owns the map roster and every live session. All mutating calls
// must run on the API strand; Game itself does no locking.
type Game struct {
	maps         []*data.Map
	mapIndex     map[string]int
	sessions     map[uint64]*Session
	catalogs     map[string]loot.Catalog
	lootGen      *loot.Generator
	randomSpawn  bool
	retirementMs float64

	subscribers map[int]TickHandler
	nextSubID   int

	rng *rand.Rand
}

const defaultRetirementMs = 60_000

// NewGame creates an empty game with the given loot generator.
func NewGame(lootGen *loot.Generator) *Game {
	return &Game{
		mapIndex:     make(map[string]int),
		sessions:     make(map[uint64]*Session),
		catalogs:     make(map[string]loot.Catalog),
		lootGen:      lootGen,
		retirementMs: defaultRetirementMs,
		subscribers:  make(map[int]TickHandler),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AddMap registers a map and its loot catalog.
func (g *Game) AddMap(m *data.Map, catalog loot.Catalog) error {
	if _, dup := g.mapIndex[m.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateMap, m.ID)
	}
	g.mapIndex[m.ID] = len(g.maps)
	g.maps = append(g.maps, m)
	g.catalogs[m.ID] = catalog
	return nil
}

// FindMap returns the map with the given id, or nil.
func (g *Game) FindMap(id string) *data.Map {
	if i, ok := g.mapIndex[id]; ok {
		return g.maps[i]
	}
	return nil
}

// Maps returns the roster in load order.
func (g *Game) Maps() []*data.Map { return g.maps }

// LootCatalog returns the catalog of a map (nil for unknown ids).
func (g *Game) LootCatalog(mapID string) loot.Catalog { return g.catalogs[mapID] }

// GetSession returns the live session for the map, creating one when
// the map has none yet. Exactly one session exists per map id.
func (g *Game) GetSession(mapID string) (*Session, error) {
	if _, ok := g.mapIndex[mapID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMap, mapID)
	}
	for _, s := range g.sessions {
		if s.MapID() == mapID {
			return s, nil
		}
	}
	var nextID uint64
	for id := range g.sessions {
		if id+1 > nextID {
			nextID = id + 1
		}
	}
	s := NewSession(nextID, mapID, g.catalogs[mapID])
	g.sessions[nextID] = s
	return s, nil
}

// Session returns the session with the given id, or nil.
func (g *Game) Session(id uint64) *Session { return g.sessions[id] }

// Sessions returns all live sessions ordered by id.
func (g *Game) Sessions() []*Session {
	out := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// AddSession inserts a session rebuilt from a snapshot.
func (g *Game) AddSession(s *Session) {
	g.sessions[s.ID()] = s
}

// ExternalTick advances every session by deltaMs and then fans the tick
// out to subscribers. Sessions tick in id order so a run is
// reproducible for a fixed random source.
func (g *Game) ExternalTick(deltaMs float64) error {
	for _, s := range g.Sessions() {
		if err := s.Tick(g, deltaMs); err != nil {
			return err
		}
	}
	for _, h := range g.handlers() {
		h(deltaMs)
	}
	return nil
}

func (g *Game) handlers() []TickHandler {
	ids := make([]int, 0, len(g.subscribers))
	for id := range g.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]TickHandler, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.subscribers[id])
	}
	return out
}

// DoOnTick subscribes to the tick-completion signal. The returned func
// removes the subscription; calling it twice is harmless.
func (g *Game) DoOnTick(h TickHandler) (unsubscribe func()) {
	id := g.nextSubID
	g.nextSubID++
	g.subscribers[id] = h
	return func() { delete(g.subscribers, id) }
}

// SetRandomSpawn switches between random road positions and the start
// of road zero for dog and loot placement.
func (g *Game) SetRandomSpawn(enabled bool) { g.randomSpawn = enabled }

// HasRandomSpawn reports the current spawn policy.
func (g *Game) HasRandomSpawn() bool { return g.randomSpawn }

// SetRetirementTime stores the idle cutoff, truncated to whole seconds.
func (g *Game) SetRetirementTime(seconds float64) {
	g.retirementMs = math.Floor(seconds) * 1000
}

// RetirementMs returns the idle cutoff in milliseconds.
func (g *Game) RetirementMs() float64 { return g.retirementMs }

// SpawnPosition picks a position on the map's road graph: a uniformly
// random point on a uniformly random road when random spawn is on,
// otherwise the start of road zero.
func (g *Game) SpawnPosition(m *data.Map) geom.Point {
	roads := m.Roads
	if g.randomSpawn {
		r := roads[g.rng.Intn(len(roads))]
		minX := math.Min(float64(r.Start.X), float64(r.End.X))
		maxX := math.Max(float64(r.Start.X), float64(r.End.X))
		minY := math.Min(float64(r.Start.Y), float64(r.End.Y))
		maxY := math.Max(float64(r.Start.Y), float64(r.End.Y))
		return geom.Point{
			X: minX + g.rng.Float64()*(maxX-minX),
			Y: minY + g.rng.Float64()*(maxY-minY),
		}
	}
	return geom.Point{X: float64(roads[0].Start.X), Y: float64(roads[0].Start.Y)}
}
