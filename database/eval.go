package database

import (
	"context"
	"fmt"
	"strings"
)

// EvalResult is the outcome of a raw operator statement.
type EvalResult struct {
	Columns      []string
	Rows         [][]string
	IsQuery      bool
	RowsAffected int64
}

// Eval executes an arbitrary statement. SELECT and PRAGMA statements are
// run as queries and their rows rendered as strings; anything else is
// executed and committed.
//
// This is an operator escape hatch. Callers must gate it behind the admin
// role.
func (s *Store) Eval(ctx context.Context, statement string) (EvalResult, error) {
	if !isQuery(statement) {
		res, err := s.db.ExecContext(ctx, statement)
		if err != nil {
			return EvalResult{}, err
		}
		n, _ := res.RowsAffected()
		return EvalResult{RowsAffected: n}, nil
	}

	rows, err := s.db.QueryContext(ctx, statement)
	if err != nil {
		return EvalResult{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return EvalResult{}, err
	}
	result := EvalResult{Columns: cols, IsQuery: true}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return EvalResult{}, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatCell(v)
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

func isQuery(statement string) bool {
	s := strings.ToUpper(strings.TrimSpace(statement))
	return strings.HasPrefix(s, "SELECT") || strings.HasPrefix(s, "PRAGMA")
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// Format renders the result as a monospace table for display.
func (r EvalResult) Format() string {
	if !r.IsQuery {
		return "Command executed successfully."
	}
	if len(r.Rows) == 0 {
		return "No results found."
	}

	var b strings.Builder
	b.WriteString("```\n")
	b.WriteString(strings.Join(r.Columns, " | "))
	b.WriteString("\n")
	width := -1
	for _, c := range r.Columns {
		width += len(c) + 3
	}
	b.WriteString(strings.Repeat("-", max(width, 0)))
	b.WriteString("\n")
	for _, row := range r.Rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
	b.WriteString("```")
	return b.String()
}
