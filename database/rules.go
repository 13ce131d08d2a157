package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"coolbot/models"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicate is returned when a rule name is already taken.
var ErrDuplicate = errors.New("already exists")

type ruleTable struct {
	name string
	text string
}

var ruleTables = map[models.RuleKind]ruleTable{
	models.RuleAutoResponse: {name: "autoresponses", text: "response"},
	models.RuleAutomod:      {name: "automod_rules", text: "reason"},
}

func tableFor(kind models.RuleKind) (ruleTable, error) {
	t, ok := ruleTables[kind]
	if !ok {
		return ruleTable{}, fmt.Errorf("unknown rule kind %q", kind)
	}
	return t, nil
}

// AddRule appends a rule and returns its id.
func (s *Store) AddRule(ctx context.Context, kind models.RuleKind, r models.Rule) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`INSERT INTO %s (name, regex, %s) VALUES (?, ?, ?)`, t.name, t.text)
	res, err := s.db.ExecContext(ctx, query, r.Name, r.Regex, r.Text)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, fmt.Errorf("%s rule %q: %w", kind, r.Name, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to add %s rule %q: %w", kind, r.Name, err)
	}
	return res.LastInsertId()
}

// SeedRule inserts a rule unless one with the same name exists.
func (s *Store) SeedRule(ctx context.Context, kind models.RuleKind, r models.Rule) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (name, regex, %s) VALUES (?, ?, ?)`, t.name, t.text)
	res, err := s.db.ExecContext(ctx, query, r.Name, r.Regex, r.Text)
	if err != nil {
		return false, fmt.Errorf("failed to seed %s rule %q: %w", kind, r.Name, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Rules returns every rule of a kind in insertion order.
func (s *Store) Rules(ctx context.Context, kind models.RuleKind) ([]models.Rule, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, name, regex, %s FROM %s ORDER BY id`, t.text, t.name))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s rules: %w", kind, err)
	}
	defer rows.Close()

	var rules []models.Rule
	for rows.Next() {
		var r models.Rule
		if err := rows.Scan(&r.ID, &r.Name, &r.Regex, &r.Text); err != nil {
			return nil, fmt.Errorf("failed to scan %s rule: %w", kind, err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteRule removes a rule by name, falling back to its numeric id when
// no rule has that name. It returns the removed rule or ErrNotFound.
func (s *Store) DeleteRule(ctx context.Context, kind models.RuleKind, identifier string) (models.Rule, error) {
	t, err := tableFor(kind)
	if err != nil {
		return models.Rule{}, err
	}
	rules, err := s.Rules(ctx, kind)
	if err != nil {
		return models.Rule{}, err
	}

	target, ok := findRule(rules, identifier)
	if !ok {
		return models.Rule{}, fmt.Errorf("%s rule %q: %w", kind, identifier, ErrNotFound)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.name), target.ID); err != nil {
		return models.Rule{}, fmt.Errorf("failed to delete %s rule %q: %w", kind, identifier, err)
	}
	return target, nil
}

func findRule(rules []models.Rule, identifier string) (models.Rule, bool) {
	for _, r := range rules {
		if r.Name == identifier {
			return r, true
		}
	}
	id, err := strconv.ParseInt(identifier, 10, 64)
	if err != nil {
		return models.Rule{}, false
	}
	for _, r := range rules {
		if r.ID == id {
			return r, true
		}
	}
	return models.Rule{}, false
}
