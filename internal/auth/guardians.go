package auth

import (
	"context"
	"database/sql"
)

// Guardians maps parent accounts to the students whose attempts and
// results they may read. Links are provisioned alongside users via the
// bulk upsert endpoint.
type Guardians struct {
	DB *sql.DB
}

func (g *Guardians) Oversees(ctx context.Context, parentID, studentID string) (bool, error) {
	var n int
	err := g.DB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM guardians WHERE parent_id=$1 AND student_id=$2`,
		parentID, studentID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *Guardians) StudentIDs(ctx context.Context, parentID string) ([]string, error) {
	rows, err := g.DB.QueryContext(ctx,
		`SELECT student_id FROM guardians WHERE parent_id=$1 ORDER BY student_id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Link replaces the student set for one parent.
func (g *Guardians) Link(ctx context.Context, parentID string, studentIDs []string) error {
	tx, err := g.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM guardians WHERE parent_id=$1`, parentID); err != nil {
		return err
	}
	for _, sid := range studentIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO guardians (parent_id, student_id) VALUES ($1,$2)
			 ON CONFLICT (parent_id, student_id) DO NOTHING`, parentID, sid); err != nil {
			return err
		}
	}
	return tx.Commit()
}
