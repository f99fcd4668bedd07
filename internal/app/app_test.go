package app

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"go.uber.org/zap"

	"github.com/dogpark/server/internal/data"
	"github.com/dogpark/server/internal/loot"
	"github.com/dogpark/server/internal/world"
)

// memoryRecords is an in-process RecordStore for tests.
type memoryRecords struct {
	saved   []world.RetiredDog
	saveErr error
}

func (m *memoryRecords) SaveRetiredDog(_ context.Context, dog world.RetiredDog) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, dog)
	return nil
}

func (m *memoryRecords) RetiredDogs(_ context.Context, start, maxItems int) ([]world.RetiredDog, error) {
	if start >= len(m.saved) {
		return nil, nil
	}
	out := m.saved[start:]
	if maxItems > 0 && maxItems < len(out) {
		out = out[:maxItems]
	}
	return out, nil
}

func newTestApp(t *testing.T, records RecordStore) *App {
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
	return New(game, records, zap.NewNop())
}

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestJoinGame(t *testing.T) {
	a := newTestApp(t, &memoryRecords{})

	id, token, err := a.JoinGame("Rex", "m1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	if id != 0 {
		t.Errorf("first player id = %d, want 0", id)
	}
	if !tokenPattern.MatchString(token) {
		t.Errorf("token %q is not 32 lowercase hex chars", token)
	}

	id2, token2, err := a.JoinGame("Luna", "m1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	if id2 != 1 {
		t.Errorf("second player id = %d, want 1", id2)
	}
	if token2 == token {
		t.Error("tokens must be unique across live players")
	}

	// Both dogs live in the single session of the map.
	s, err := a.Game().GetSession("m1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(s.Dogs()) != 2 {
		t.Errorf("dogs in session = %d, want 2", len(s.Dogs()))
	}
}

func TestJoinGameUnknownMap(t *testing.T) {
	a := newTestApp(t, &memoryRecords{})
	_, _, err := a.JoinGame("Rex", "nope")
	if !errors.Is(err, world.ErrUnknownMap) {
		t.Errorf("err = %v, want ErrUnknownMap", err)
	}
	if got := a.PlayersInfo(); len(got) != 0 {
		t.Errorf("players after failed join = %v, want none", got)
	}
}

func TestGetGameState(t *testing.T) {
	a := newTestApp(t, &memoryRecords{})
	_, token, err := a.JoinGame("Rex", "m1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}

	state, err := a.GetGameState(token)
	if err != nil {
		t.Fatalf("GetGameState: %v", err)
	}
	if len(state.Dogs) != 1 || state.Dogs[0].Name != "Rex" {
		t.Errorf("state dogs = %v, want just Rex", state.Dogs)
	}

	if _, err := a.GetGameState("ffffffffffffffffffffffffffffffff"); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("unknown token err = %v, want ErrUnknownToken", err)
	}
}

func TestMoveDog(t *testing.T) {
	a := newTestApp(t, &memoryRecords{})
	_, token, err := a.JoinGame("Rex", "m1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}

	if err := a.MoveDog(token, world.South); err != nil {
		t.Fatalf("MoveDog: %v", err)
	}
	state, _ := a.GetGameState(token)
	if state.Dogs[0].Dir != world.South {
		t.Errorf("dir = %v, want South", state.Dogs[0].Dir)
	}

	if err := a.MoveDog("ffffffffffffffffffffffffffffffff", world.South); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("unknown token err = %v, want ErrUnknownToken", err)
	}
}

func TestRetireDogs(t *testing.T) {
	records := &memoryRecords{}
	a := newTestApp(t, records)
	a.Game().SetRetirementTime(1)

	id, token, err := a.JoinGame("Rex", "m1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	s := a.Game().Session(0)
	s.Dog(id).Score = 42
	s.Dog(id).IdleTimeMs = 1000
	s.Dog(id).PlayTimeMs = 5000

	a.RetireDogs(context.Background())

	if len(records.saved) != 1 {
		t.Fatalf("saved records = %d, want 1", len(records.saved))
	}
	rec := records.saved[0]
	if rec.Name != "Rex" || rec.Score != 42 || rec.PlayTimeMs != 5000 {
		t.Errorf("record = %+v, want {Rex 42 5000}", rec)
	}
	if s.Dog(id) != nil {
		t.Error("dog should be removed from the session")
	}
	if _, ok := a.PlayerByToken(token); ok {
		t.Error("player should be removed from the directory")
	}
}

func TestRetireDogsKeepsDogOnSaveFailure(t *testing.T) {
	records := &memoryRecords{saveErr: errors.New("db down")}
	a := newTestApp(t, records)
	a.Game().SetRetirementTime(1)

	id, token, err := a.JoinGame("Rex", "m1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	s := a.Game().Session(0)
	s.Dog(id).IdleTimeMs = 5000

	a.RetireDogs(context.Background())
	if s.Dog(id) == nil {
		t.Error("dog must stay when the save fails, for a retry next tick")
	}
	if _, ok := a.PlayerByToken(token); !ok {
		t.Error("player must stay when the save fails")
	}

	// Once the store recovers the sweep succeeds.
	records.saveErr = nil
	a.RetireDogs(context.Background())
	if s.Dog(id) != nil {
		t.Error("dog should retire after the store recovers")
	}
}

func TestRetireDogsIgnoresActiveDogs(t *testing.T) {
	records := &memoryRecords{}
	a := newTestApp(t, records)
	a.Game().SetRetirementTime(60)

	id, _, err := a.JoinGame("Rex", "m1")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	a.Game().Session(0).Dog(id).IdleTimeMs = 59999

	a.RetireDogs(context.Background())
	if len(records.saved) != 0 {
		t.Errorf("saved = %v, want none below the cutoff", records.saved)
	}
}
