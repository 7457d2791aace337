package store

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/gosuda/cardvault/internal/domain"
)

// Statement is a query written with neutral ? placeholders and its values in
// placeholder order. A literal question mark outside quotes is written as ??;
// inside a quoted literal a single ? is already literal.
type Statement struct {
	SQL  string
	Args []any
}

func NewStatement(sql string, args ...any) Statement {
	return Statement{SQL: sql, Args: args}
}

// Build renders a squirrel builder into a neutral Statement.
func Build(b sq.Sqlizer) (Statement, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return Statement{}, &domain.StatementError{Reason: err.Error()}
	}
	return Statement{SQL: query, Args: args}, nil
}

// CountPlaceholders returns the number of ? placeholders in query. ?? is an
// escaped literal, and a ? inside quotes or a comment is never a placeholder.
func CountPlaceholders(query string) int {
	_, n := canonical(query)
	return n
}

// canonical rewrites query so every placeholder is a single ? and every
// literal question mark is ??, the form squirrel's positional formats expect.
// It also returns the number of placeholders.
func canonical(query string) (string, int) {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0

	// literal copies query[i:end], doubling question marks and keeping ?? as
	// one escaped mark.
	literal := func(i, end int) {
		for ; i < end; i++ {
			if query[i] != '?' {
				b.WriteByte(query[i])
				continue
			}
			b.WriteString("??")
			if i+1 < end && query[i+1] == '?' {
				i++
			}
		}
	}

	for i := 0; i < len(query); {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"':
			j := i + 1
			for j < len(query) {
				if query[j] == ch {
					if j+1 < len(query) && query[j+1] == ch {
						j += 2
						continue
					}
					break
				}
				j++
			}
			end := min(j+1, len(query))
			literal(i, end)
			i = end
		case ch == '-' && i+1 < len(query) && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query)
			} else {
				end += i
			}
			literal(i, end)
			i = end
		case ch == '/' && i+1 < len(query) && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				end = len(query)
			} else {
				end += i + 4
			}
			literal(i, end)
			i = end
		case ch == '?' && i+1 < len(query) && query[i+1] == '?':
			b.WriteString("??")
			i += 2
		case ch == '?':
			b.WriteByte('?')
			n++
			i++
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String(), n
}

// Validate fails fast when the number of placeholders and values disagree.
func (s Statement) Validate() error {
	if n := CountPlaceholders(s.SQL); n != len(s.Args) {
		return &domain.StatementError{
			Query:  s.SQL,
			Reason: fmt.Sprintf("%d placeholders but %d values", n, len(s.Args)),
		}
	}
	return nil
}

// Rebind renders the statement for a placeholder format, numbering
// placeholders in declaration order for positional formats. Every format
// receives ?? as a single literal question mark.
func (s Statement) Rebind(format sq.PlaceholderFormat) (string, error) {
	query, n := canonical(s.SQL)
	if n != len(s.Args) {
		return "", &domain.StatementError{
			Query:  s.SQL,
			Reason: fmt.Sprintf("%d placeholders but %d values", n, len(s.Args)),
		}
	}
	if format == sq.Question {
		// squirrel leaves the question format untouched, escapes included.
		return strings.ReplaceAll(query, "??", "?"), nil
	}
	query, err := format.ReplacePlaceholders(query)
	if err != nil {
		return "", &domain.StatementError{Query: s.SQL, Reason: err.Error()}
	}
	return query, nil
}

// Verb returns the lower-cased leading keyword, used as a metrics label.
func (s Statement) Verb() string {
	q := strings.TrimSpace(s.SQL)
	if i := strings.IndexAny(q, " \t\r\n("); i > 0 {
		q = q[:i]
	}
	return strings.ToLower(q)
}
