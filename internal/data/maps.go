// Package data loads the static game data: the map roster with roads,
// buildings, offices and loot catalogs, read once at startup from the
// JSON config file.
package data

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dogpark/server/internal/geom"
	"github.com/dogpark/server/internal/loot"
)

// roadHalfWidth pads every road segment into a walkable rectangle.
const roadHalfWidth = 0.4

// GridPoint is an integer map-grid coordinate.
type GridPoint struct {
	X int
	Y int
}

// Road is an axis-aligned segment of the road graph together with its
// padded bounds. Horizontal iff the y coordinates match.
type Road struct {
	Start  GridPoint
	End    GridPoint
	Bounds geom.Rect
}

// NewRoad derives the padded bounds from the endpoints.
func NewRoad(start, end GridPoint) Road {
	return Road{
		Start: start,
		End:   end,
		Bounds: geom.Rect{
			Min: geom.Point{
				X: float64(min(start.X, end.X)) - roadHalfWidth,
				Y: float64(min(start.Y, end.Y)) - roadHalfWidth,
			},
			Max: geom.Point{
				X: float64(max(start.X, end.X)) + roadHalfWidth,
				Y: float64(max(start.Y, end.Y)) + roadHalfWidth,
			},
		},
	}
}

// IsHorizontal reports whether the road runs along the x axis.
func (r Road) IsHorizontal() bool {
	return r.Start.Y == r.End.Y
}

// Roads serialize in the shorthand the client expects: horizontal roads
// carry x1, vertical ones y1, the other coordinate is implied.
func (r Road) MarshalJSON() ([]byte, error) {
	if r.IsHorizontal() {
		return json.Marshal(struct {
			X0 int `json:"x0"`
			Y0 int `json:"y0"`
			X1 int `json:"x1"`
		}{r.Start.X, r.Start.Y, r.End.X})
	}
	return json.Marshal(struct {
		X0 int `json:"x0"`
		Y0 int `json:"y0"`
		Y1 int `json:"y1"`
	}{r.Start.X, r.Start.Y, r.End.Y})
}

func (r *Road) UnmarshalJSON(data []byte) error {
	var raw struct {
		X0 int  `json:"x0"`
		Y0 int  `json:"y0"`
		X1 *int `json:"x1"`
		Y1 *int `json:"y1"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start := GridPoint{raw.X0, raw.Y0}
	switch {
	case raw.X1 != nil:
		*r = NewRoad(start, GridPoint{*raw.X1, raw.Y0})
	case raw.Y1 != nil:
		*r = NewRoad(start, GridPoint{raw.X0, *raw.Y1})
	default:
		return fmt.Errorf("road at (%d, %d) has neither x1 nor y1", raw.X0, raw.Y0)
	}
	return nil
}

// Building is decorative geometry; dogs never interact with it.
type Building struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Office is a deposit point where bag contents convert to score.
type Office struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

// Position returns the office centre on the map plane.
func (o Office) Position() geom.Point {
	return geom.Point{X: float64(o.X), Y: float64(o.Y)}
}

// Map is one playable map: road graph, buildings, offices, per-map dog
// speed and bag capacity (already resolved against the config defaults).
type Map struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Roads     []Road     `json:"roads"`
	Buildings []Building `json:"buildings"`
	Offices   []Office   `json:"offices"`

	DogSpeed    float64 `json:"-"`
	BagCapacity int     `json:"-"`
}

// GameConfig is the parsed map config file.
type GameConfig struct {
	DefaultDogSpeed    float64
	DefaultBagCapacity int
	RetirementSeconds  float64
	LootPeriodSeconds  float64
	LootProbability    float64
	Maps               []*Map
	LootCatalogs       map[string]loot.Catalog
}

type rawConfig struct {
	DefaultDogSpeed    float64  `json:"defaultDogSpeed"`
	DefaultBagCapacity *int     `json:"defaultBagCapacity"`
	DogRetirementTime  float64  `json:"dogRetirementTime"`
	LootGenerator      struct {
		Period      float64 `json:"period"`
		Probability float64 `json:"probability"`
	} `json:"lootGeneratorConfig"`
	Maps []rawMap `json:"maps"`
}

type rawMap struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Roads       []Road       `json:"roads"`
	Buildings   []Building   `json:"buildings"`
	Offices     []Office     `json:"offices"`
	LootTypes   loot.Catalog `json:"lootTypes"`
	DogSpeed    *float64     `json:"dogSpeed"`
	BagCapacity *int         `json:"defaultBagCapacity"`
}

const defaultBagCapacity = 3

// LoadGameConfig reads and resolves the JSON map config.
func LoadGameConfig(path string) (*GameConfig, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game config %s: %w", path, err)
	}
	return ParseGameConfig(payload)
}

// ParseGameConfig resolves per-map overrides against the global defaults
// and checks the structural invariants the simulation relies on.
func ParseGameConfig(payload []byte) (*GameConfig, error) {
	var raw rawConfig
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse game config: %w", err)
	}

	cfg := &GameConfig{
		DefaultDogSpeed:    raw.DefaultDogSpeed,
		DefaultBagCapacity: defaultBagCapacity,
		RetirementSeconds:  raw.DogRetirementTime,
		LootPeriodSeconds:  raw.LootGenerator.Period,
		LootProbability:    raw.LootGenerator.Probability,
		LootCatalogs:       make(map[string]loot.Catalog, len(raw.Maps)),
	}
	if raw.DefaultBagCapacity != nil {
		cfg.DefaultBagCapacity = *raw.DefaultBagCapacity
	}

	for _, rm := range raw.Maps {
		m := &Map{
			ID:          rm.ID,
			Name:        rm.Name,
			Roads:       rm.Roads,
			Buildings:   rm.Buildings,
			Offices:     rm.Offices,
			DogSpeed:    cfg.DefaultDogSpeed,
			BagCapacity: cfg.DefaultBagCapacity,
		}
		if rm.DogSpeed != nil {
			m.DogSpeed = *rm.DogSpeed
		}
		if rm.BagCapacity != nil {
			m.BagCapacity = *rm.BagCapacity
		}
		if err := validateMap(m); err != nil {
			return nil, err
		}
		cfg.Maps = append(cfg.Maps, m)
		cfg.LootCatalogs[m.ID] = rm.LootTypes
	}
	return cfg, nil
}

func validateMap(m *Map) error {
	if len(m.Roads) == 0 {
		return fmt.Errorf("map %s: no roads", m.ID)
	}
	for _, r := range m.Roads {
		if r.Start.X != r.End.X && r.Start.Y != r.End.Y {
			return fmt.Errorf("map %s: road (%d,%d)-(%d,%d) is not axis-aligned",
				m.ID, r.Start.X, r.Start.Y, r.End.X, r.End.Y)
		}
	}
	seen := make(map[string]struct{}, len(m.Offices))
	for _, o := range m.Offices {
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("map %s: duplicate office %s", m.ID, o.ID)
		}
		seen[o.ID] = struct{}{}
	}
	return nil
}
