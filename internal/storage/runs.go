package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/adoption-forecast/internal/common"
	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/google/uuid"
)

// SaveRun stores a run with all its scenarios and statistics in one
// transaction. A missing ID or creation time is filled in.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	inputsJSON, err := json.Marshal(run.Inputs)
	if err != nil {
		return fmt.Errorf("failed to encode inputs: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, label, created_at, horizon, initial_ownership, inputs_json,
			neutral_baseline, neutral_after_positive, neutral_after_negative)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Label, run.CreatedAt, run.Inputs.Horizon, run.Inputs.InitialOwnership, string(inputsJSON),
		run.Coefficients.Baseline, run.Coefficients.AfterPositive, run.Coefficients.AfterNegative)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("run %s: %w", run.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}

	scenarioStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scenarios (run_id, name, event_type, event_year, new_purchases_json, cumulative_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare scenario statement: %w", err)
	}
	defer func() {
		_ = scenarioStmt.Close()
	}()

	for _, sc := range run.Scenarios {
		newJSON, err := json.Marshal(sc.NewPurchases)
		if err != nil {
			return fmt.Errorf("failed to encode scenario %s: %w", sc.Name(), err)
		}
		cumJSON, err := json.Marshal(sc.Cumulative)
		if err != nil {
			return fmt.Errorf("failed to encode scenario %s: %w", sc.Name(), err)
		}
		if _, err := scenarioStmt.ExecContext(ctx,
			run.ID, sc.Name(), sc.Key.Type.String(), sc.Key.Year, string(newJSON), string(cumJSON),
		); err != nil {
			return fmt.Errorf("failed to insert scenario %s: %w", sc.Name(), err)
		}
	}

	for _, st := range run.Statistics {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO statistics (run_id, year, mean, min, max, std)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, st.Year, st.Mean, st.Min, st.Max, st.Std); err != nil {
			return fmt.Errorf("failed to insert statistics for year %d: %w", st.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun loads a run by ID or unique ID prefix.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	run := &model.Run{}
	var inputsJSON string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, label, created_at, inputs_json,
			neutral_baseline, neutral_after_positive, neutral_after_negative
		FROM runs
		WHERE id = ?
	`, fullID).Scan(
		&run.ID,
		&run.Label,
		&run.CreatedAt,
		&inputsJSON,
		&run.Coefficients.Baseline,
		&run.Coefficients.AfterPositive,
		&run.Coefficients.AfterNegative,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Inputs = &model.Inputs{}
	if err := json.Unmarshal([]byte(inputsJSON), run.Inputs); err != nil {
		return nil, fmt.Errorf("%w: run %s inputs: %v", common.ErrDatabaseCorrupted, run.ID, err)
	}

	if run.Scenarios, err = s.getScenarios(ctx, s.db, run.ID); err != nil {
		return nil, err
	}
	if run.Statistics, err = s.getStatistics(ctx, s.db, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStorage) getScenarios(ctx context.Context, q queryable, runID string) ([]model.Scenario, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT event_type, event_year, new_purchases_json, cumulative_json
		FROM scenarios
		WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var scenarios []model.Scenario
	for rows.Next() {
		var typ, newJSON, cumJSON string
		var sc model.Scenario
		if err := rows.Scan(&typ, &sc.Key.Year, &newJSON, &cumJSON); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		if sc.Key.Type, err = model.ParseEventType(typ); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrDatabaseCorrupted, err)
		}
		if err := json.Unmarshal([]byte(newJSON), &sc.NewPurchases); err != nil {
			return nil, fmt.Errorf("%w: scenario %s: %v", common.ErrDatabaseCorrupted, sc.Name(), err)
		}
		if err := json.Unmarshal([]byte(cumJSON), &sc.Cumulative); err != nil {
			return nil, fmt.Errorf("%w: scenario %s: %v", common.ErrDatabaseCorrupted, sc.Name(), err)
		}
		scenarios = append(scenarios, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scenarios: %w", err)
	}

	sortScenarios(scenarios)
	return scenarios, nil
}

func (s *SQLiteStorage) getStatistics(ctx context.Context, q queryable, runID string) ([]model.StatRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT year, mean, min, max, std
		FROM statistics
		WHERE run_id = ?
		ORDER BY year
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var stats []model.StatRow
	for rows.Next() {
		var st model.StatRow
		if err := rows.Scan(&st.Year, &st.Mean, &st.Min, &st.Max, &st.Std); err != nil {
			return nil, fmt.Errorf("failed to scan statistics: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statistics: %w", err)
	}
	return stats, nil
}

// ListRuns returns run summaries, newest first. A limit below 1 returns all runs.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.label, r.created_at, r.horizon, r.initial_ownership,
			(SELECT COUNT(*) FROM scenarios sc WHERE sc.run_id = r.id)
		FROM runs r
		ORDER BY r.created_at DESC, r.id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		if err := rows.Scan(&r.ID, &r.Label, &r.CreatedAt, &r.Horizon, &r.InitialOwnership, &r.ScenarioCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its tables.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, fullID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// resolveID expands a unique ID prefix to the full run ID.
func (s *SQLiteStorage) resolveID(ctx context.Context, prefix string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\'
	`, prefix, escapeLike(prefix)+"%")
	if err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		if id == prefix {
			return id, nil
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate run ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("run %s: %w", prefix, common.ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: run id prefix %q is ambiguous", common.ErrInvalidInput, prefix)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func sortScenarios(scenarios []model.Scenario) {
	sort.SliceStable(scenarios, func(i, j int) bool {
		return scenarios[i].Key.Less(scenarios[j].Key)
	})
}
