package db

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
}

// SearchTerms splits a free-text query into lowercase terms.
// Stopwords and words shorter than 3 chars are dropped, punctuation is trimmed.
func SearchTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(query) {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if len(trimmed) < 3 {
			continue
		}
		lower := strings.ToLower(trimmed)
		if stopwords[lower] {
			continue
		}
		terms = append(terms, lower)
	}
	return terms
}

// SearchWorkflows returns workflows whose name or node types contain any
// query term. Returns an empty slice when the query has no usable terms.
func (d *DB) SearchWorkflows(query string) ([]Workflow, error) {
	terms := SearchTerms(query)
	if len(terms) == 0 {
		return []Workflow{}, nil
	}

	var conds []string
	var args []any
	for _, t := range terms {
		conds = append(conds, `(LOWER(w.name) LIKE ? OR EXISTS (
			SELECT 1 FROM nodes n WHERE n.workflow_id = w.id AND LOWER(n.type) LIKE ?))`)
		pat := "%" + t + "%"
		args = append(args, pat, pat)
	}

	rows, err := d.conn.Query(`
		SELECT w.id, w.name, w.created_at, w.updated_at,
		       (SELECT COUNT(*) FROM nodes n WHERE n.workflow_id = w.id),
		       (SELECT COUNT(*) FROM edges e WHERE e.workflow_id = w.id)
		FROM workflows w
		WHERE `+strings.Join(conds, " OR ")+`
		ORDER BY w.updated_at DESC, w.id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Workflow{}
	for rows.Next() {
		var w Workflow
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt, &w.UpdatedAt, &w.NodeCount, &w.EdgeCount); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// SearchByIDPrefix returns up to limit workflows whose id starts with prefix
func (d *DB) SearchByIDPrefix(prefix string, limit int) ([]Workflow, error) {
	rows, err := d.conn.Query(`
		SELECT w.id, w.name, w.created_at, w.updated_at,
		       (SELECT COUNT(*) FROM nodes n WHERE n.workflow_id = w.id),
		       (SELECT COUNT(*) FROM edges e WHERE e.workflow_id = w.id)
		FROM workflows w
		WHERE w.id LIKE ? ESCAPE '\'
		ORDER BY w.id LIMIT ?
	`, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Workflow{}
	for rows.Next() {
		var w Workflow
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt, &w.UpdatedAt, &w.NodeCount, &w.EdgeCount); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
