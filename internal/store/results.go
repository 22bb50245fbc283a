package store

import (
	"context"
	"database/sql"
	"fmt"

	"vidresume/internal/intervals"
	"vidresume/internal/objects"
	"vidresume/internal/scenes"
	"vidresume/internal/subtitles"
)

// SaveScenes replaces the scene list of videoPath.
func (s *Store) SaveScenes(ctx context.Context, videoPath string, list []scenes.Scene) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM scenes WHERE video_path = ?", videoPath); err != nil {
			return fmt.Errorf("clear scenes: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO scenes (video_path, idx, start_ms, end_ms) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare scenes: %w", err)
		}
		defer stmt.Close()
		for i, sc := range list {
			if _, err := stmt.ExecContext(ctx, videoPath, i, sc.Start, sc.End); err != nil {
				return fmt.Errorf("insert scene %d: %w", i, err)
			}
		}
		return nil
	})
}

// Scenes returns the stored scene list of videoPath in order.
func (s *Store) Scenes(ctx context.Context, videoPath string) ([]scenes.Scene, error) {
	return s.loadIntervals(ctx, "scenes", videoPath)
}

// SaveResume replaces the resume intervals of videoPath.
func (s *Store) SaveResume(ctx context.Context, videoPath string, list []intervals.Interval) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM resume_intervals WHERE video_path = ?", videoPath); err != nil {
			return fmt.Errorf("clear resume: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO resume_intervals (video_path, idx, start_ms, end_ms) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare resume: %w", err)
		}
		defer stmt.Close()
		for i, iv := range list {
			if _, err := stmt.ExecContext(ctx, videoPath, i, iv.Start, iv.End); err != nil {
				return fmt.Errorf("insert resume interval %d: %w", i, err)
			}
		}
		return nil
	})
}

// Resume returns the stored resume intervals of videoPath in order.
func (s *Store) Resume(ctx context.Context, videoPath string) ([]intervals.Interval, error) {
	return s.loadIntervals(ctx, "resume_intervals", videoPath)
}

func (s *Store) loadIntervals(ctx context.Context, table, videoPath string) ([]intervals.Interval, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT start_ms, end_ms FROM "+table+" WHERE video_path = ? ORDER BY idx", videoPath) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	out := []intervals.Interval{}
	for rows.Next() {
		var iv intervals.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// SaveObjects replaces the object index of videoPath.
func (s *Store) SaveObjects(ctx context.Context, videoPath string, index *objects.Index) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM object_occurrences WHERE video_path = ?", videoPath); err != nil {
			return fmt.Errorf("clear objects: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO object_occurrences (video_path, label, label_order, seq, timestamp_ms) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare objects: %w", err)
		}
		defer stmt.Close()
		for order, entry := range index.Entries() {
			for seq, ms := range entry.Occurrences {
				if _, err := stmt.ExecContext(ctx, videoPath, entry.Label, order, seq, ms); err != nil {
					return fmt.Errorf("insert occurrence %s/%d: %w", entry.Label, seq, err)
				}
			}
		}
		return nil
	})
}

// Objects returns the stored object index of videoPath.
func (s *Store) Objects(ctx context.Context, videoPath string) (*objects.Index, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT label, timestamp_ms FROM object_occurrences WHERE video_path = ? ORDER BY label_order, seq", videoPath)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()
	index := objects.NewIndex()
	for rows.Next() {
		var (
			label string
			ms    int64
		)
		if err := rows.Scan(&label, &ms); err != nil {
			return nil, fmt.Errorf("scan objects: %w", err)
		}
		index.Add(label, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return index, nil
}

// SaveSubtitles replaces the sentence list of videoPath.
func (s *Store) SaveSubtitles(ctx context.Context, videoPath string, sentences []*subtitles.Cue) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM subtitles WHERE video_path = ?", videoPath); err != nil {
			return fmt.Errorf("clear subtitles: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO subtitles (video_path, idx, text, start_ms, end_ms, score) VALUES (?, ?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare subtitles: %w", err)
		}
		defer stmt.Close()
		idx := 0
		for _, c := range sentences {
			if c == nil {
				continue
			}
			if _, err := stmt.ExecContext(ctx, videoPath, idx,
				nullable(c.Text), nullable(c.Start), nullable(c.End), nullable(c.Score)); err != nil {
				return fmt.Errorf("insert sentence %d: %w", idx, err)
			}
			idx++
		}
		return nil
	})
}

// Subtitles returns the stored sentence list of videoPath in order.
func (s *Store) Subtitles(ctx context.Context, videoPath string) ([]*subtitles.Cue, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT text, start_ms, end_ms, score FROM subtitles WHERE video_path = ? ORDER BY idx", videoPath)
	if err != nil {
		return nil, fmt.Errorf("query subtitles: %w", err)
	}
	defer rows.Close()
	out := []*subtitles.Cue{}
	for rows.Next() {
		var (
			text       sql.NullString
			start, end sql.NullInt64
			score      sql.NullInt64
		)
		if err := rows.Scan(&text, &start, &end, &score); err != nil {
			return nil, fmt.Errorf("scan subtitles: %w", err)
		}
		c := &subtitles.Cue{}
		if text.Valid {
			c.Text = subtitles.Ptr(text.String)
		}
		if start.Valid {
			c.Start = subtitles.Ptr(start.Int64)
		}
		if end.Valid {
			c.End = subtitles.Ptr(end.Int64)
		}
		if score.Valid {
			c.Score = subtitles.Ptr(int(score.Int64))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtitles: %w", err)
	}
	return out, nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
