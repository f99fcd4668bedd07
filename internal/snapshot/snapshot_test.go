package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/dogpark/server/internal/app"
	"github.com/dogpark/server/internal/data"
	"github.com/dogpark/server/internal/geom"
	"github.com/dogpark/server/internal/loot"
	"github.com/dogpark/server/internal/world"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	m := &data.Map{
		ID:   "m1",
		Name: "Test",
		Roads: []data.Road{
			data.NewRoad(data.GridPoint{X: 0, Y: 0}, data.GridPoint{X: 0, Y: 10}),
		},
		DogSpeed:    1.0,
		BagCapacity: 3,
	}
	game := world.NewGame(loot.NewGenerator(1000, 0, nil))
	if err := game.AddMap(m, nil); err != nil {
		t.Fatalf("AddMap: %v", err)
	}
	return app.New(game, nil, zap.NewNop())
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	src := newTestApp(t)
	id, token, err := src.JoinGame("Rex", "m1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}

	session := src.Game().Session(0)
	dog := session.Dog(id)
	dog.Score = 17
	dog.PlayTimeMs = 1234
	dog.IdleTimeMs = 56
	dog.Dir = world.East
	dog.Speed = geom.Vec{DX: 1.5, DY: 0}
	if !dog.PutToBag(world.CargoItem{ID: 4, Type: 1}) {
		t.Fatal("PutToBag refused")
	}
	session.SetLoots(map[uint64]world.LootItem{
		7: {ID: 7, Type: 0, Pos: geom.Point{X: 0, Y: 3}},
	})

	path := filepath.Join(t.TempDir(), "state.json")
	if err := Save(src, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := newTestApp(t)
	if err := Restore(dst, path); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	rs := dst.Game().Session(0)
	if rs == nil {
		t.Fatal("session missing after restore")
	}
	if rs.MapID() != "m1" {
		t.Errorf("mapID = %s, want m1", rs.MapID())
	}

	rd := rs.Dog(id)
	if rd == nil {
		t.Fatal("dog missing after restore")
	}
	if rd.Name != "Rex" || rd.Score != 17 || rd.PlayTimeMs != 1234 || rd.IdleTimeMs != 56 {
		t.Errorf("dog = %+v", rd)
	}
	if rd.Dir != world.East || rd.Speed != (geom.Vec{DX: 1.5, DY: 0}) {
		t.Errorf("dir/speed = %v/%+v", rd.Dir, rd.Speed)
	}
	if bag := rd.Bag(); len(bag) != 1 || bag[0] != (world.CargoItem{ID: 4, Type: 1}) {
		t.Errorf("bag = %v", bag)
	}

	if item, ok := rs.Loots()[7]; !ok || item.Type != 0 || item.Pos != (geom.Point{X: 0, Y: 3}) {
		t.Errorf("loot 7 = %+v, ok=%v", item, ok)
	}

	p, ok := dst.PlayerByToken(token)
	if !ok {
		t.Fatal("player token missing after restore")
	}
	if p.ID != id || p.SessionID != 0 || p.Name != "Rex" {
		t.Errorf("player = %+v", p)
	}

	// Restored state stays usable: the original token still commands the
	// dog and a new joiner gets a fresh id past the restored ones.
	if err := dst.MoveDog(token, world.South); err != nil {
		t.Errorf("MoveDog after restore: %v", err)
	}
	nid, _, err := dst.JoinGame("Luna", "m1")
	if err != nil {
		t.Fatalf("JoinGame after restore: %v", err)
	}
	if nid != id+1 {
		t.Errorf("next id = %d, want %d", nid, id+1)
	}
}

func TestRestoreMissingFile(t *testing.T) {
	a := newTestApp(t)
	if err := Restore(a, filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Errorf("missing state file should not be an error, got %v", err)
	}
	if got := a.Game().Sessions(); len(got) != 0 {
		t.Errorf("sessions = %d, want 0", len(got))
	}
}

func TestRestoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Restore(newTestApp(t), path); err == nil {
		t.Error("corrupt state file must fail restore")
	}
}

func TestRestoreUnknownMap(t *testing.T) {
	src := newTestApp(t)
	if _, _, err := src.JoinGame("Rex", "m1"); err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	path := filepath.Join(t.TempDir(), "state.json")
	if err := Save(src, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A target game without the session's map cannot host the session.
	game := world.NewGame(loot.NewGenerator(1000, 0, nil))
	dst := app.New(game, nil, zap.NewNop())
	if err := Restore(dst, path); err == nil {
		t.Error("restoring a session of an unloaded map must fail")
	}
}

func TestAutosaverPeriod(t *testing.T) {
	a := newTestApp(t)
	path := filepath.Join(t.TempDir(), "state.json")
	saver := NewAutosaver(a, path, 1000, zap.NewNop())

	saver.OnTick(400)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no save expected before the period elapses")
	}

	saver.OnTick(700)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("save expected once the period elapsed: %v", err)
	}

	// The overshoot carries into the next period.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	saver.OnTick(900)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("100ms carry plus 900ms should reach the period: %v", err)
	}
}

func TestAutosaverDisabled(t *testing.T) {
	a := newTestApp(t)
	path := filepath.Join(t.TempDir(), "state.json")
	saver := NewAutosaver(a, path, 0, zap.NewNop())

	saver.OnTick(1e9)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("zero period must never autosave")
	}
}
