package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// Service bundles the one-off data repair operations that used to be
// run by hand against the database: duplicate lead cleanup, operator
// password resets and schema diagnostics. All queries are plain SQL so
// their effect can be reviewed before --apply is passed.
type Service struct {
	db         *sqlx.DB
	logger     *slog.Logger
	bcryptCost int
}

func NewService(db *sqlx.DB, logger *slog.Logger, bcryptCost int) *Service {
	return &Service{
		db:         db,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// DuplicateGroup is a set of leads sharing the same company and contact.
type DuplicateGroup struct {
	Company     string `db:"company"`
	ContactName string `db:"contact_name"`
	Count       int    `db:"cnt"`
	KeepID      int64  `db:"keep_id"`
}

// FindDuplicateLeads reports groups of live leads that share a company
// and contact name, case-insensitively. The lowest id in each group is
// the survivor.
func (s *Service) FindDuplicateLeads(ctx context.Context) ([]DuplicateGroup, error) {
	query := `
		SELECT lower(company) AS company, lower(contact_name) AS contact_name,
		       COUNT(*) AS cnt, MIN(id) AS keep_id
		FROM leads
		WHERE deleted_at IS NULL
		GROUP BY lower(company), lower(contact_name)
		HAVING COUNT(*) > 1
		ORDER BY cnt DESC`

	var groups []DuplicateGroup
	if err := s.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("find duplicate leads: %w", err)
	}
	return groups, nil
}

// DedupeLeads soft-deletes every duplicate except the oldest lead in
// each group. With apply=false it only reports what would happen.
func (s *Service) DedupeLeads(ctx context.Context, apply bool) (int64, error) {
	groups, err := s.FindDuplicateLeads(ctx)
	if err != nil {
		return 0, err
	}
	if len(groups) == 0 {
		s.logger.Info("no duplicate leads found")
		return 0, nil
	}

	for _, g := range groups {
		s.logger.Info("duplicate lead group",
			"company", g.Company,
			"contact_name", g.ContactName,
			"count", g.Count,
			"keep_id", g.KeepID)
	}

	if !apply {
		s.logger.Info("dry run, pass apply to remove duplicates", "groups", len(groups))
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin dedupe tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE leads SET deleted_at = $1, updated_at = $1
		WHERE deleted_at IS NULL
		  AND id NOT IN (
			SELECT MIN(id) FROM leads
			WHERE deleted_at IS NULL
			GROUP BY lower(company), lower(contact_name)
		  )
		  AND (lower(company), lower(contact_name)) IN (
			SELECT lower(company), lower(contact_name) FROM leads
			WHERE deleted_at IS NULL
			GROUP BY lower(company), lower(contact_name)
			HAVING COUNT(*) > 1
		  )`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("dedupe leads: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit dedupe tx: %w", err)
	}

	s.logger.Info("duplicate leads removed", "count", removed)
	return removed, nil
}

// ResetPassword replaces the stored hash for the operator with the
// given email. Used when someone is locked out and no admin session is
// reachable.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE lower(email) = lower($3)`,
		string(hash), time.Now(), email)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no user with email %s", email)
	}

	s.logger.Info("password reset", "email", email)
	return nil
}

// Diagnosis summarizes table health for support escalations.
type Diagnosis struct {
	TotalLeads      int64            `json:"total_leads"`
	DeletedLeads    int64            `json:"deleted_leads"`
	OrphanedLeads   int64            `json:"orphaned_leads"`
	InactiveUsers   int64            `json:"inactive_users"`
	LeadsPerStage   map[int]int64    `json:"leads_per_stage"`
	DuplicateGroups []DuplicateGroup `json:"duplicate_groups"`
}

// Diagnose runs the read-only health queries and returns a summary.
func (s *Service) Diagnose(ctx context.Context) (*Diagnosis, error) {
	d := &Diagnosis{LeadsPerStage: make(map[int]int64)}

	if err := s.db.GetContext(ctx, &d.TotalLeads,
		`SELECT COUNT(*) FROM leads WHERE deleted_at IS NULL`); err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}

	if err := s.db.GetContext(ctx, &d.DeletedLeads,
		`SELECT COUNT(*) FROM leads WHERE deleted_at IS NOT NULL`); err != nil {
		return nil, fmt.Errorf("count deleted leads: %w", err)
	}

	// Leads assigned to users that no longer exist or are inactive.
	if err := s.db.GetContext(ctx, &d.OrphanedLeads, `
		SELECT COUNT(*) FROM leads l
		WHERE l.deleted_at IS NULL
		  AND l.assigned_user_id IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM users u
			WHERE u.id = l.assigned_user_id AND u.status = 'active'
		  )`); err != nil {
		return nil, fmt.Errorf("count orphaned leads: %w", err)
	}

	if err := s.db.GetContext(ctx, &d.InactiveUsers,
		`SELECT COUNT(*) FROM users WHERE status <> 'active'`); err != nil {
		return nil, fmt.Errorf("count inactive users: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT stage_id, COUNT(*) AS cnt FROM leads
		WHERE deleted_at IS NULL
		GROUP BY stage_id ORDER BY stage_id`)
	if err != nil {
		return nil, fmt.Errorf("count leads per stage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stageID int
		var count int64
		if err := rows.Scan(&stageID, &count); err != nil {
			return nil, err
		}
		d.LeadsPerStage[stageID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups, err := s.FindDuplicateLeads(ctx)
	if err != nil {
		return nil, err
	}
	d.DuplicateGroups = groups

	return d, nil
}
