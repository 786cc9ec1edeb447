package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/SkillMap/internal/models"
)

// SQLProgressRepository stores goals. List-valued fields are kept as JSON
// text so the same schema works on postgres and sqlite.
type SQLProgressRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewSQLProgressRepository creates a new SQLProgressRepository using the provided *sql.DB.
func NewSQLProgressRepository(db *sql.DB) *SQLProgressRepository {
	return &SQLProgressRepository{DB: db}
}

const progressColumns = `id, username, goal, skills, roadmap, completed_steps,
	cv_assessment, skill_gaps, learning_path, cv_tips, updated_at`

// ListByUser returns the user's goals, most recently updated first.
func (s *SQLProgressRepository) ListByUser(ctx context.Context, username string) ([]models.Progress, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+progressColumns+` FROM progress
		WHERE username = $1
		ORDER BY updated_at DESC, id DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := []models.Progress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return out, nil
}

// Get returns the goal with id, or ErrNotFound.
func (s *SQLProgressRepository) Get(ctx context.Context, id int64) (*models.Progress, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+progressColumns+` FROM progress WHERE id = $1`, id)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// FindByGoal returns the user's goal with the given title, or ErrNotFound.
func (s *SQLProgressRepository) FindByGoal(ctx context.Context, username, goal string) (*models.Progress, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+progressColumns+` FROM progress
		WHERE username = $1 AND goal = $2
		ORDER BY id
		LIMIT 1
	`, username, goal)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Insert stores p under a newly assigned id, which is written back to p.
func (s *SQLProgressRepository) Insert(ctx context.Context, p *models.Progress) error {
	cols, err := encodeProgress(p)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM progress`).Scan(&id); err != nil {
		return fmt.Errorf("next id: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO progress (`+progressColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, p.Username, p.Goal, cols.skills, cols.roadmap, cols.completed,
		p.CVAssessment, cols.gaps, cols.path, cols.tips, p.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	p.ID = id
	return nil
}

// Update overwrites every field of the stored goal with p's.
func (s *SQLProgressRepository) Update(ctx context.Context, p *models.Progress) error {
	cols, err := encodeProgress(p)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `
		UPDATE progress SET
			goal = $2, skills = $3, roadmap = $4, completed_steps = $5,
			cv_assessment = $6, skill_gaps = $7, learning_path = $8, cv_tips = $9,
			updated_at = $10
		WHERE id = $1
	`, p.ID, p.Goal, cols.skills, cols.roadmap, cols.completed,
		p.CVAssessment, cols.gaps, cols.path, cols.tips, p.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the goal with id.
func (s *SQLProgressRepository) Delete(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM progress WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(sc scanner) (*models.Progress, error) {
	var p models.Progress
	var skills, road, completed, gaps, path, tips string
	var updated int64
	err := sc.Scan(&p.ID, &p.Username, &p.Goal, &skills, &road, &completed,
		&p.CVAssessment, &gaps, &path, &tips, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan: %w", err)
	}
	for _, f := range []struct {
		src string
		dst any
	}{
		{skills, &p.Skills},
		{road, &p.Roadmap},
		{completed, &p.CompletedSteps},
		{gaps, &p.SkillGaps},
		{path, &p.LearningPath},
		{tips, &p.CVTips},
	} {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decode progress %d: %w", p.ID, err)
		}
	}
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

type encodedProgress struct {
	skills, roadmap, completed, gaps, path, tips string
}

func encodeProgress(p *models.Progress) (encodedProgress, error) {
	var (
		out encodedProgress
		err error
	)
	enc := func(v any) string {
		if err != nil {
			return ""
		}
		var b []byte
		b, err = json.Marshal(v)
		return string(b)
	}
	out.skills = enc(nonNil(p.Skills))
	out.roadmap = enc(nonNil(p.Roadmap))
	if p.CompletedSteps == nil {
		out.completed = "[]"
	} else {
		out.completed = enc(p.CompletedSteps)
	}
	out.gaps = enc(nonNil(p.SkillGaps))
	out.path = enc(nonNil(p.LearningPath))
	out.tips = enc(nonNil(p.CVTips))
	if err != nil {
		return encodedProgress{}, fmt.Errorf("encode progress: %w", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
