package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"lintel.app/tracker/internal/issue"
)

type issueStore struct {
	db DBTX
}

func newIssueStore(db DBTX) IssueStore {
	return &issueStore{db: db}
}

const issueColumns = `key, project_key, component_key, rule_key, status, severity,
	message, line, gap, effort_minutes,
	creation_date, update_date, close_date, selected_at,
	tags, code_variants,
	is_on_changed_line, is_new_code_reference_issue,
	is_no_longer_new_code_reference_issue, is_quick_fix_available,
	anticipated_transition_uuid, comments, changes`

func (s *issueStore) GetByKey(ctx context.Context, key string) (*issue.Issue, error) {
	row := s.db.QueryRow(ctx, `SELECT `+issueColumns+` FROM issues WHERE key = $1`, key)
	record, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *issueStore) Upsert(ctx context.Context, record *issue.Issue) error {
	snap := record.Snapshot()

	commentsJSON, err := json.Marshal(snap.Comments)
	if err != nil {
		return fmt.Errorf("marshaling comments: %w", err)
	}
	changesJSON, err := json.Marshal(snap.Changes)
	if err != nil {
		return fmt.Errorf("marshaling changes: %w", err)
	}

	const q = `
		INSERT INTO issues (` + issueColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		ON CONFLICT (key) DO UPDATE SET
			project_key=EXCLUDED.project_key,
			component_key=EXCLUDED.component_key,
			rule_key=EXCLUDED.rule_key,
			status=EXCLUDED.status,
			severity=EXCLUDED.severity,
			message=EXCLUDED.message,
			line=EXCLUDED.line,
			gap=EXCLUDED.gap,
			effort_minutes=EXCLUDED.effort_minutes,
			creation_date=EXCLUDED.creation_date,
			update_date=EXCLUDED.update_date,
			close_date=EXCLUDED.close_date,
			selected_at=EXCLUDED.selected_at,
			tags=EXCLUDED.tags,
			code_variants=EXCLUDED.code_variants,
			is_on_changed_line=EXCLUDED.is_on_changed_line,
			is_new_code_reference_issue=EXCLUDED.is_new_code_reference_issue,
			is_no_longer_new_code_reference_issue=EXCLUDED.is_no_longer_new_code_reference_issue,
			is_quick_fix_available=EXCLUDED.is_quick_fix_available,
			anticipated_transition_uuid=EXCLUDED.anticipated_transition_uuid,
			comments=EXCLUDED.comments,
			changes=EXCLUDED.changes`

	_, err = s.db.Exec(ctx, q,
		snap.Key, snap.ProjectKey, snap.ComponentKey, snap.RuleKey,
		nullableString(snap.Status), severityToString(snap.Severity),
		snap.Message, snap.Line, snap.Gap, record.EffortInMinutes(),
		snap.CreationDate, snap.UpdateDate, snap.CloseDate, snap.SelectedAt,
		snap.Tags, snap.CodeVariants,
		snap.IsOnChangedLine, snap.IsNewCodeReferenceIssue,
		snap.IsNoLongerNewCodeReferenceIssue, snap.IsQuickFixAvailable,
		snap.AnticipatedTransitionUUID, commentsJSON, changesJSON,
	)
	return err
}

func (s *issueStore) Delete(ctx context.Context, key string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM issues WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *issueStore) ListByProject(ctx context.Context, projectKey string) ([]*issue.Issue, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE project_key = $1 ORDER BY key`, projectKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*issue.Issue
	for rows.Next() {
		record, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanIssue(row pgx.Row) (*issue.Issue, error) {
	var (
		snap          issue.Snapshot
		status        *string
		severity      *string
		effortMinutes *int64
		commentsJSON  []byte
		changesJSON   []byte
	)

	err := row.Scan(
		&snap.Key, &snap.ProjectKey, &snap.ComponentKey, &snap.RuleKey,
		&status, &severity,
		&snap.Message, &snap.Line, &snap.Gap, &effortMinutes,
		&snap.CreationDate, &snap.UpdateDate, &snap.CloseDate, &snap.SelectedAt,
		&snap.Tags, &snap.CodeVariants,
		&snap.IsOnChangedLine, &snap.IsNewCodeReferenceIssue,
		&snap.IsNoLongerNewCodeReferenceIssue, &snap.IsQuickFixAvailable,
		&snap.AnticipatedTransitionUUID, &commentsJSON, &changesJSON,
	)
	if err != nil {
		return nil, err
	}

	if status != nil {
		snap.Status = *status
	}
	if severity != nil {
		s := issue.Severity(*severity)
		snap.Severity = &s
	}
	if effortMinutes != nil {
		effort := time.Duration(*effortMinutes) * time.Minute
		snap.Effort = &effort
	}

	if len(commentsJSON) > 0 {
		if err := json.Unmarshal(commentsJSON, &snap.Comments); err != nil {
			return nil, fmt.Errorf("unmarshaling comments: %w", err)
		}
	}
	if len(changesJSON) > 0 {
		if err := json.Unmarshal(changesJSON, &snap.Changes); err != nil {
			return nil, fmt.Errorf("unmarshaling changes: %w", err)
		}
	}

	return issue.Restore(snap), nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func severityToString(s *issue.Severity) *string {
	if s == nil {
		return nil
	}
	str := string(*s)
	return &str
}
