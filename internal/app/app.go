package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dogpark/server/internal/world"
)

// ErrUnknownToken reports a well-formed token with no live player.
var ErrUnknownToken = errors.New("app: unknown token")

// RecordStore persists retired-dog records. Implemented by
// persist.RecordRepo; tests swap in a memory fake.
type RecordStore interface {
	SaveRetiredDog(ctx context.Context, dog world.RetiredDog) error
	RetiredDogs(ctx context.Context, start, maxItems int) ([]world.RetiredDog, error)
}

// App wires the game model, the player directory and the record store
// into the use-cases the API layer calls. Every method must run on the
// API strand.
type App struct {
	game    *world.Game
	players *Players
	records RecordStore
	log     *zap.Logger
}

func New(game *world.Game, records RecordStore, log *zap.Logger) *App {
	return &App{
		game:    game,
		players: NewPlayers(),
		records: records,
		log:     log,
	}
}

// Game exposes the owned model for the API layer and the snapshot
// codec.
func (a *App) Game() *world.Game { return a.game }

// Players exposes the directory for the snapshot codec.
func (a *App) Players() *Players { return a.players }

// RestorePlayers swaps in a directory rebuilt from a snapshot.
func (a *App) RestorePlayers(ps *Players) { a.players = ps }

// JoinGame creates a player and its dog in the session of the given
// map, returning the new player id and authentication token.
func (a *App) JoinGame(username, mapID string) (uint64, string, error) {
	session, err := a.game.GetSession(mapID)
	if err != nil {
		return 0, "", err
	}
	player, err := a.players.Add(username, session.ID())
	if err != nil {
		return 0, "", err
	}
	if err := session.AddDog(a.game, player.ID, username); err != nil {
		a.players.Delete(player.ID)
		return 0, "", err
	}
	return player.ID, player.Token, nil
}

// PlayerByToken resolves a token to its live player.
func (a *App) PlayerByToken(token string) (*Player, bool) {
	return a.players.ByToken(token)
}

// PlayersInfo lists every live player's dog name keyed by player id.
func (a *App) PlayersInfo() map[uint64]string {
	out := make(map[uint64]string, len(a.players.byID))
	for _, p := range a.players.All() {
		out[p.ID] = p.Name
	}
	return out
}

// GameState is the session view returned to a polling client.
type GameState struct {
	Dogs  []*world.Dog
	Loots map[uint64]world.LootItem
}

// GetGameState returns the state of the session the token belongs to.
func (a *App) GetGameState(token string) (GameState, error) {
	player, ok := a.players.ByToken(token)
	if !ok {
		return GameState{}, ErrUnknownToken
	}
	session := a.game.Session(player.SessionID)
	if session == nil {
		return GameState{}, ErrUnknownToken
	}
	return GameState{Dogs: session.Dogs(), Loots: session.Loots()}, nil
}

// MoveDog applies a direction command from the player owning the token.
func (a *App) MoveDog(token string, dir world.Direction) error {
	player, ok := a.players.ByToken(token)
	if !ok {
		return ErrUnknownToken
	}
	session := a.game.Session(player.SessionID)
	if session == nil {
		return ErrUnknownToken
	}
	return session.SetDogDirection(a.game, player.ID, dir)
}

// RetireDogs sweeps every session for dogs idle past the retirement
// cutoff: the record is persisted, then the dog and its player are
// removed. A failed save keeps the dog in place so the sweep retries
// on the next tick.
func (a *App) RetireDogs(ctx context.Context) {
	cutoff := a.game.RetirementMs()
	for _, session := range a.game.Sessions() {
		var retired []uint64
		for _, dog := range session.Dogs() {
			if dog.IdleTimeMs < cutoff {
				continue
			}
			record := world.RetiredDog{
				Name:       dog.Name,
				Score:      dog.Score,
				PlayTimeMs: int64(dog.PlayTimeMs),
			}
			if err := a.records.SaveRetiredDog(ctx, record); err != nil {
				a.log.Error("retire save failed",
					zap.String("name", dog.Name), zap.Error(err))
				continue
			}
			retired = append(retired, dog.ID)
		}
		for _, id := range retired {
			session.RemoveDog(id)
			a.players.Delete(id)
		}
	}
}

// RetiredDogs pages through the leaderboard records.
func (a *App) RetiredDogs(ctx context.Context, start, maxItems int) ([]world.RetiredDog, error) {
	return a.records.RetiredDogs(ctx, start, maxItems)
}
