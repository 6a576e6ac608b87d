package repository

import (
	"fmt"
	"strings"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// predicates accumulates parameterized WHERE clauses. Column names always come
// from code, never from request input.
type predicates struct {
	clauses []string
	args    []any
}

func (p *predicates) add(column, op string, value any) {
	p.args = append(p.args, value)
	p.clauses = append(p.clauses, fmt.Sprintf("%s %s $%d", column, op, len(p.args)))
}

func (p *predicates) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// page appends LIMIT/OFFSET placeholders, clamping the limit.
func (p *predicates) page(limit, offset int) string {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	p.args = append(p.args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(p.args)-1, len(p.args))
}
