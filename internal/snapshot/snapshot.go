// Package snapshot serializes the full application state (sessions,
// dogs, loot, players) to a JSON file and rebuilds it on startup, so a
// restart is invisible to connected clients.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dogpark/server/internal/app"
	"github.com/dogpark/server/internal/geom"
	"github.com/dogpark/server/internal/world"
)

type pointRepr struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type speedRepr struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type dogRepr struct {
	ID          uint64            `json:"id"`
	Name        string            `json:"name"`
	Pos         pointRepr         `json:"pos"`
	Speed       speedRepr         `json:"speed"`
	Dir         world.Direction   `json:"dir"`
	BagCapacity int               `json:"bagCapacity"`
	Score       int               `json:"score"`
	PlayTimeMs  float64           `json:"playTime"`
	IdleTimeMs  float64           `json:"idleTime"`
	Bag         []world.CargoItem `json:"bag"`
}

type lootRepr struct {
	ID   uint64    `json:"id"`
	Type int       `json:"type"`
	Pos  pointRepr `json:"pos"`
}

type sessionRepr struct {
	ID    uint64     `json:"id"`
	MapID string     `json:"mapId"`
	Dogs  []dogRepr  `json:"dogs"`
	Loots []lootRepr `json:"lostObjects"`
}

type playerRepr struct {
	ID        uint64 `json:"id"`
	SessionID uint64 `json:"sessionId"`
	Name      string `json:"name"`
	Token     string `json:"token"`
}

type appRepr struct {
	Sessions []sessionRepr `json:"sessions"`
	Players  []playerRepr  `json:"players"`
}

func snapshotApp(a *app.App) appRepr {
	var repr appRepr
	for _, s := range a.Game().Sessions() {
		sr := sessionRepr{
			ID:    s.ID(),
			MapID: s.MapID(),
			Dogs:  make([]dogRepr, 0, len(s.Dogs())),
			Loots: make([]lootRepr, 0, len(s.Loots())),
		}
		for _, d := range s.Dogs() {
			sr.Dogs = append(sr.Dogs, dogRepr{
				ID:          d.ID,
				Name:        d.Name,
				Pos:         pointRepr{X: d.Pos.X, Y: d.Pos.Y},
				Speed:       speedRepr{DX: d.Speed.DX, DY: d.Speed.DY},
				Dir:         d.Dir,
				BagCapacity: d.BagCapacity,
				Score:       d.Score,
				PlayTimeMs:  d.PlayTimeMs,
				IdleTimeMs:  d.IdleTimeMs,
				Bag:         d.Bag(),
			})
		}
		ids := make([]uint64, 0, len(s.Loots()))
		for id := range s.Loots() {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			item := s.Loots()[id]
			sr.Loots = append(sr.Loots, lootRepr{
				ID:   item.ID,
				Type: item.Type,
				Pos:  pointRepr{X: item.Pos.X, Y: item.Pos.Y},
			})
		}
		repr.Sessions = append(repr.Sessions, sr)
	}
	for _, p := range a.Players().All() {
		repr.Players = append(repr.Players, playerRepr{
			ID:        p.ID,
			SessionID: p.SessionID,
			Name:      p.Name,
			Token:     p.Token,
		})
	}
	return repr
}

// restoreApp stages every session and the player directory before
// touching the live application, so a malformed snapshot leaves the
// game in its empty starting state.
func restoreApp(a *app.App, repr appRepr) error {
	game := a.Game()
	sessions := make([]*world.Session, 0, len(repr.Sessions))
	for _, sr := range repr.Sessions {
		if game.FindMap(sr.MapID) == nil {
			return fmt.Errorf("restore session %d: %w: %s", sr.ID, world.ErrUnknownMap, sr.MapID)
		}
		session := world.NewSession(sr.ID, sr.MapID, game.LootCatalog(sr.MapID))
		loots := make(map[uint64]world.LootItem, len(sr.Loots))
		for _, lr := range sr.Loots {
			loots[lr.ID] = world.LootItem{
				ID:   lr.ID,
				Type: lr.Type,
				Pos:  geom.Point{X: lr.Pos.X, Y: lr.Pos.Y},
			}
		}
		session.SetLoots(loots)
		for _, dr := range sr.Dogs {
			dog := world.NewDog(dr.ID, dr.Name, geom.Point{X: dr.Pos.X, Y: dr.Pos.Y}, dr.BagCapacity)
			dog.Speed = geom.Vec{DX: dr.Speed.DX, DY: dr.Speed.DY}
			dog.Dir = dr.Dir
			dog.Score = dr.Score
			dog.PlayTimeMs = dr.PlayTimeMs
			dog.IdleTimeMs = dr.IdleTimeMs
			for _, cargo := range dr.Bag {
				if !dog.PutToBag(cargo) {
					return fmt.Errorf("restore dog %d: bag overflow", dr.ID)
				}
			}
			session.AddRestoredDog(dog)
		}
		sessions = append(sessions, session)
	}

	players := app.NewPlayers()
	for _, pr := range repr.Players {
		if _, err := players.Restore(pr.ID, pr.SessionID, pr.Name, pr.Token); err != nil {
			return fmt.Errorf("restore player %d: %w", pr.ID, err)
		}
	}

	for _, s := range sessions {
		game.AddSession(s)
	}
	a.RestorePlayers(players)
	return nil
}

// Save writes the application state to path atomically: the payload
// goes to a sibling temp file first and replaces the target by rename.
func Save(a *app.App, path string) error {
	payload, err := json.Marshal(snapshotApp(a))
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Restore loads the state file into the application. A missing file is
// not an error: the server starts empty.
func Restore(a *app.App, path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read state file: %w", err)
	}
	var repr appRepr
	if err := json.Unmarshal(payload, &repr); err != nil {
		return fmt.Errorf("parse state file: %w", err)
	}
	return restoreApp(a, repr)
}
