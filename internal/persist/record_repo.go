package persist

import (
	"context"
	"fmt"

	"github.com/dogpark/server/internal/world"
)

// RecordRepo is the retired-player record store. Rows are append-only;
// the leaderboard query orders by score, then shorter careers, then
// name.
type RecordRepo struct {
	db *DB
}

func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// SaveRetiredDog appends one retirement record.
func (r *RecordRepo) SaveRetiredDog(ctx context.Context, dog world.RetiredDog) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO retired_players (name, score, play_time_ms) VALUES ($1, $2, $3)`,
		dog.Name, dog.Score, dog.PlayTimeMs,
	)
	if err != nil {
		return fmt.Errorf("save retired dog: %w", err)
	}
	return nil
}

// RetiredDogs returns one leaderboard page. start offsets the ranked
// list; maxItems <= 0 means no limit (the API layer caps requests at
// 100 before they reach here).
func (r *RecordRepo) RetiredDogs(ctx context.Context, start, maxItems int) ([]world.RetiredDog, error) {
	q := `SELECT name, score, play_time_ms
	      FROM retired_players
	      ORDER BY score DESC, play_time_ms ASC, name ASC
	      OFFSET $1`
	args := []any{start}
	if maxItems > 0 {
		q += ` LIMIT $2`
		args = append(args, maxItems)
	}

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query retired dogs: %w", err)
	}
	defer rows.Close()

	var result []world.RetiredDog
	for rows.Next() {
		var d world.RetiredDog
		if err := rows.Scan(&d.Name, &d.Score, &d.PlayTimeMs); err != nil {
			return nil, fmt.Errorf("scan retired dog: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
