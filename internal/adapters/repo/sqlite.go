package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tg-anime-bot/internal/domain"
)

// AnimeRepository stores uploaded series metadata in SQLite. Episode lists are
// kept as a JSON column, they are always read and written whole.
type AnimeRepository struct {
	db *sql.DB
}

// NewAnimeRepository creates the repository.
func NewAnimeRepository(db *sql.DB) *AnimeRepository {
	return &AnimeRepository{db: db}
}

// GetByName fetches one series by its exact name.
func (r *AnimeRepository) GetByName(ctx context.Context, name string) (domain.Anime, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT anime_id, name, is_movie, episodes, added_at FROM anime WHERE name = ?`, name)
	anime, err := scanAnime(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Anime{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Anime{}, fmt.Errorf("get anime %q: %w", name, err)
	}
	return anime, nil
}

// Upsert inserts the series or replaces its episode list and movie flag.
func (r *AnimeRepository) Upsert(ctx context.Context, anime domain.Anime) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	episodes, err := json.Marshal(anime.Episodes)
	if err != nil {
		return fmt.Errorf("marshal episodes: %w", err)
	}
	if anime.AddedAt.IsZero() {
		anime.AddedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO anime (anime_id, name, is_movie, episodes, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			is_movie = excluded.is_movie,
			episodes = excluded.episodes`,
		anime.AnimeID, anime.Name, anime.IsMovie, string(episodes), anime.AddedAt)
	if err != nil {
		return fmt.Errorf("upsert anime %q: %w", anime.Name, err)
	}
	return nil
}

// List returns every stored series, oldest first.
func (r *AnimeRepository) List(ctx context.Context) ([]domain.Anime, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT anime_id, name, is_movie, episodes, added_at FROM anime ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("list anime: %w", err)
	}
	defer rows.Close()

	var out []domain.Anime
	for rows.Next() {
		anime, err := scanAnime(rows)
		if err != nil {
			return nil, fmt.Errorf("scan anime: %w", err)
		}
		out = append(out, anime)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnime(row rowScanner) (domain.Anime, error) {
	var anime domain.Anime
	var episodes string
	if err := row.Scan(&anime.AnimeID, &anime.Name, &anime.IsMovie, &episodes, &anime.AddedAt); err != nil {
		return domain.Anime{}, err
	}
	if episodes != "" {
		if err := json.Unmarshal([]byte(episodes), &anime.Episodes); err != nil {
			return domain.Anime{}, fmt.Errorf("parse episodes: %w", err)
		}
	}
	return anime, nil
}
