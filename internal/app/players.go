// Package app is the use-case facade over the world model: joining,
// state queries, the retirement sweep and the player/token directory.
package app

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// TokenLength is the wire length of an authentication token.
const TokenLength = 32

// ErrTokenTaken reports a restore that collides with a live token.
var ErrTokenTaken = errors.New("app: token already in use")

// Player binds an authentication token to a dog id and its session.
// The session reference is by id only; the directory owns no dogs.
type Player struct {
	ID        uint64
	SessionID uint64
	Name      string
	Token     string
}

// Players is the token<->player directory. Both indexes are kept
// consistent under every mutation.
type Players struct {
	byID    map[uint64]*Player
	byToken map[string]*Player
}

func NewPlayers() *Players {
	return &Players{
		byID:    make(map[uint64]*Player),
		byToken: make(map[string]*Player),
	}
}

// Add registers a new player with a fresh token. The id is one past the
// highest live id, starting at zero.
func (ps *Players) Add(name string, sessionID uint64) (*Player, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	var id uint64
	for existing := range ps.byID {
		if existing+1 > id {
			id = existing + 1
		}
	}
	return ps.insert(&Player{ID: id, SessionID: sessionID, Name: name, Token: token})
}

// Restore re-registers a player from a snapshot with its original id
// and token so the id->dog correspondence survives a restart.
func (ps *Players) Restore(id, sessionID uint64, name, token string) (*Player, error) {
	return ps.insert(&Player{ID: id, SessionID: sessionID, Name: name, Token: token})
}

func (ps *Players) insert(p *Player) (*Player, error) {
	if _, taken := ps.byToken[p.Token]; taken {
		return nil, fmt.Errorf("%w: player %d", ErrTokenTaken, p.ID)
	}
	ps.byID[p.ID] = p
	ps.byToken[p.Token] = p
	return p, nil
}

// ByToken resolves an authentication token.
func (ps *Players) ByToken(token string) (*Player, bool) {
	p, ok := ps.byToken[token]
	return p, ok
}

// Delete removes the player from both indexes. Unknown ids are a no-op.
func (ps *Players) Delete(id uint64) {
	p, ok := ps.byID[id]
	if !ok {
		return
	}
	delete(ps.byToken, p.Token)
	delete(ps.byID, id)
}

// All returns the live players ordered by id.
func (ps *Players) All() []*Player {
	out := make([]*Player, 0, len(ps.byID))
	for _, p := range ps.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// generateToken draws two 64-bit values from the OS CSPRNG and formats
// them as 32 lowercase hex characters.
func generateToken() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	hi := binary.BigEndian.Uint64(buf[:8])
	lo := binary.BigEndian.Uint64(buf[8:])
	return fmt.Sprintf("%016x%016x", hi, lo), nil
}
