package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lldcore/engine/pkg/models"
	_ "modernc.org/sqlite"
)

// SQLite is a modernc.org/sqlite-backed catalog implementation for
// production deployments.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if necessary) a SQLite database at path and
// ensures its schema exists.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: enabling foreign keys: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rules (
			id            TEXT PRIMARY KEY,
			host_id       TEXT NOT NULL,
			key           TEXT NOT NULL,
			state         TEXT NOT NULL DEFAULT 'normal',
			eval_type     TEXT NOT NULL DEFAULT 'and_or',
			formula       TEXT NOT NULL DEFAULT '',
			last_error    TEXT NOT NULL DEFAULT '',
			lifetime_spec TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conditions (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			rule_id   TEXT NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
			macro     TEXT NOT NULL,
			value     TEXT NOT NULL,
			operator  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conditions_rule_id ON conditions(rule_id)`,
		`CREATE TABLE IF NOT EXISTS macro_paths (
			rule_id TEXT NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
			macro   TEXT NOT NULL,
			path    TEXT NOT NULL,
			PRIMARY KEY (rule_id, macro)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt, err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// CreateRule inserts a new rule row, generating an ID when the caller did
// not supply one.
func (s *SQLite) CreateRule(ctx context.Context, rule models.Rule) (models.Rule, error) {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (id, host_id, key, state, eval_type, formula, last_error, lifetime_spec, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.HostID, rule.Key, rule.State.String(), rule.EvalType.String(),
		rule.Formula, rule.LastError, rule.LifetimeSpec, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return models.Rule{}, fmt.Errorf("catalog: inserting rule: %w", err)
	}
	return rule, nil
}

// Rule implements catalog.RuleReader.
func (s *SQLite) Rule(ctx context.Context, ruleID string) (models.Rule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, host_id, key, state, eval_type, formula, last_error, lifetime_spec, created_at, updated_at
		 FROM rules WHERE id = ?`, ruleID)

	var rule models.Rule
	var state, evalType string
	if err := row.Scan(&rule.ID, &rule.HostID, &rule.Key, &state, &evalType,
		&rule.Formula, &rule.LastError, &rule.LifetimeSpec, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return models.Rule{}, ErrRuleNotFound
		}
		return models.Rule{}, fmt.Errorf("catalog: scanning rule: %w", err)
	}

	parsedState, ok := parseRuleState(state)
	if !ok {
		return models.Rule{}, fmt.Errorf("catalog: rule %s has unknown state %q", ruleID, state)
	}
	rule.State = parsedState

	parsedEval, ok := models.ParseEvalType(evalType)
	if !ok {
		return models.Rule{}, fmt.Errorf("catalog: rule %s has unknown evaltype %q", ruleID, evalType)
	}
	rule.EvalType = parsedEval

	return rule, nil
}

// GetRule is an alias for Rule, for parity with the admin CRUD surface.
func (s *SQLite) GetRule(ctx context.Context, ruleID string) (models.Rule, error) {
	return s.Rule(ctx, ruleID)
}

func parseRuleState(s string) (models.RuleState, bool) {
	switch s {
	case "normal":
		return models.StateNormal, true
	case "not_supported":
		return models.StateNotSupported, true
	default:
		return 0, false
	}
}

// Conditions implements catalog.ConditionReader.
func (s *SQLite) Conditions(ctx context.Context, ruleID string) ([]models.Condition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rule_id, macro, value, operator FROM conditions WHERE rule_id = ? ORDER BY id`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("catalog: querying conditions: %w", err)
	}
	defer rows.Close()

	var out []models.Condition
	for rows.Next() {
		var c models.Condition
		var op string
		if err := rows.Scan(&c.ID, &c.RuleID, &c.Macro, &c.Value, &op); err != nil {
			return nil, fmt.Errorf("catalog: scanning condition: %w", err)
		}
		parsedOp, ok := models.ParseOperator(op)
		if !ok {
			return nil, fmt.Errorf("catalog: condition %d has unknown operator %q", c.ID, op)
		}
		c.Operator = parsedOp
		out = append(out, c)
	}
	return out, rows.Err()
}

// PutConditions replaces all conditions for a rule within a transaction.
func (s *SQLite) PutConditions(ctx context.Context, ruleID string, conds []models.Condition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM conditions WHERE rule_id = ?`, ruleID); err != nil {
		return fmt.Errorf("catalog: clearing conditions: %w", err)
	}
	for _, c := range conds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conditions (rule_id, macro, value, operator) VALUES (?, ?, ?, ?)`,
			ruleID, c.Macro, c.Value, c.Operator.String()); err != nil {
			return fmt.Errorf("catalog: inserting condition: %w", err)
		}
	}
	return tx.Commit()
}

// MacroPaths implements catalog.MacroPathReader, returning rows sorted
// by macro ascending.
func (s *SQLite) MacroPaths(ctx context.Context, ruleID string) ([]models.MacroPath, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, macro, path FROM macro_paths WHERE rule_id = ? ORDER BY macro ASC`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("catalog: querying macro paths: %w", err)
	}
	defer rows.Close()

	var out []models.MacroPath
	for rows.Next() {
		var p models.MacroPath
		if err := rows.Scan(&p.RuleID, &p.Macro, &p.Path); err != nil {
			return nil, fmt.Errorf("catalog: scanning macro path: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PutMacroPaths replaces all macro-path mappings for a rule.
func (s *SQLite) PutMacroPaths(ctx context.Context, ruleID string, paths []models.MacroPath) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM macro_paths WHERE rule_id = ?`, ruleID); err != nil {
		return fmt.Errorf("catalog: clearing macro paths: %w", err)
	}
	for _, p := range paths {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO macro_paths (rule_id, macro, path) VALUES (?, ?, ?)`, ruleID, p.Macro, p.Path); err != nil {
			return fmt.Errorf("catalog: inserting macro path: %w", err)
		}
	}
	return tx.Commit()
}

// ListRules returns every rule in the catalog, for the admin API.
func (s *SQLite) ListRules(ctx context.Context) ([]models.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, host_id, key, state, eval_type, formula, last_error, lifetime_spec, created_at, updated_at FROM rules`)
	if err != nil {
		return nil, fmt.Errorf("catalog: listing rules: %w", err)
	}
	defer rows.Close()

	var out []models.Rule
	for rows.Next() {
		var rule models.Rule
		var state, evalType string
		if err := rows.Scan(&rule.ID, &rule.HostID, &rule.Key, &state, &evalType,
			&rule.Formula, &rule.LastError, &rule.LifetimeSpec, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scanning rule: %w", err)
		}
		parsedState, ok := parseRuleState(state)
		if !ok {
			return nil, fmt.Errorf("catalog: rule %s has unknown state %q", rule.ID, state)
		}
		rule.State = parsedState
		parsedEval, ok := models.ParseEvalType(evalType)
		if !ok {
			return nil, fmt.Errorf("catalog: rule %s has unknown evaltype %q", rule.ID, evalType)
		}
		rule.EvalType = parsedEval
		out = append(out, rule)
	}
	return out, rows.Err()
}

// UpdateRule replaces a rule's editable metadata, for the admin API.
func (s *SQLite) UpdateRule(ctx context.Context, ruleID string, rule models.Rule) (models.Rule, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET host_id = ?, key = ?, eval_type = ?, formula = ?, lifetime_spec = ?, updated_at = ? WHERE id = ?`,
		rule.HostID, rule.Key, rule.EvalType.String(), rule.Formula, rule.LifetimeSpec, time.Now(), ruleID)
	if err != nil {
		return models.Rule{}, fmt.Errorf("catalog: updating rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Rule{}, fmt.Errorf("catalog: checking rows affected: %w", err)
	}
	if n == 0 {
		return models.Rule{}, ErrRuleNotFound
	}
	return s.Rule(ctx, ruleID)
}

// DeleteRule removes a rule and, via ON DELETE CASCADE, its conditions
// and macro paths.
func (s *SQLite) DeleteRule(ctx context.Context, ruleID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, ruleID)
	if err != nil {
		return fmt.Errorf("catalog: deleting rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// UpdateRuleState implements catalog.RuleWriter.
func (s *SQLite) UpdateRuleState(ctx context.Context, ruleID string, state models.RuleState, errText string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET state = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		state.String(), errText, time.Now(), ruleID)
	if err != nil {
		return fmt.Errorf("catalog: updating rule state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}
