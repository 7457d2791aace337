package tenancy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
)

// TenantColumn is the owner column on every tenant-owned table.
const TenantColumn = "tenant_id"

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPlaceholder
	tokOpen
	tokClose
	tokComma
	tokOther
)

// token is a lexical unit of a neutral statement. depth is the parenthesis
// depth the token sits at; a matching pair of parentheses shares a depth.
type token struct {
	kind  tokenKind
	upper string
	start int
	end   int
	depth int
}

// lex splits query into tokens, skipping string literals, quoted identifiers
// and comments. Identifiers keep their dots, so c.tenant_id is one word.
func lex(query string) ([]token, error) {
	var toks []token
	depth := 0

	for i := 0; i < len(query); {
		ch := query[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '\'' || ch == '"':
			j := i + 1
			for {
				if j >= len(query) {
					return nil, fmt.Errorf("unterminated quote at offset %d", i)
				}
				if query[j] == ch {
					if j+1 < len(query) && query[j+1] == ch {
						j += 2
						continue
					}
					break
				}
				j++
			}
			kind := tokOther
			if ch == '"' {
				kind = tokWord
			}
			toks = append(toks, token{kind: kind, upper: strings.ToUpper(query[i : j+1]), start: i, end: j + 1, depth: depth})
			i = j + 1
		case ch == '-' && i+1 < len(query) && query[i+1] == '-':
			for i < len(query) && query[i] != '\n' {
				i++
			}
		case ch == '/' && i+1 < len(query) && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment at offset %d", i)
			}
			i += end + 4
		case ch == '?':
			if i+1 < len(query) && query[i+1] == '?' {
				toks = append(toks, token{kind: tokOther, upper: "??", start: i, end: i + 2, depth: depth})
				i += 2
				continue
			}
			toks = append(toks, token{kind: tokPlaceholder, upper: "?", start: i, end: i + 1, depth: depth})
			i++
		case ch == '(':
			toks = append(toks, token{kind: tokOpen, upper: "(", start: i, end: i + 1, depth: depth})
			depth++
			i++
		case ch == ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parenthesis at offset %d", i)
			}
			toks = append(toks, token{kind: tokClose, upper: ")", start: i, end: i + 1, depth: depth})
			i++
		case ch == ',':
			toks = append(toks, token{kind: tokComma, upper: ",", start: i, end: i + 1, depth: depth})
			i++
		case isWordByte(ch):
			j := i
			for j < len(query) && isWordByte(query[j]) {
				j++
			}
			toks = append(toks, token{kind: tokWord, upper: strings.ToUpper(query[i:j]), start: i, end: j, depth: depth})
			i = j
		default:
			toks = append(toks, token{kind: tokOther, upper: string(ch), start: i, end: i + 1, depth: depth})
			i++
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parenthesis")
	}
	return toks, nil
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// clauseKeywords end a WHERE clause or mark where a new one must go.
var clauseKeywords = []string{"GROUP", "ORDER", "LIMIT", "OFFSET", "HAVING", "RETURNING", "UNION", "EXCEPT", "INTERSECT", "FOR", "WINDOW"}

// setOperators combine query blocks; each block would need its own scope.
var setOperators = []string{"UNION", "EXCEPT", "INTERSECT"}

// joinWords start a join in a FROM clause.
var joinWords = []string{"JOIN", "LEFT", "RIGHT", "INNER", "OUTER", "FULL", "CROSS", "NATURAL"}

// aliasStop are words that can follow a table name but are not an alias.
var aliasStop = []string{
	"WHERE", "JOIN", "LEFT", "RIGHT", "INNER", "OUTER", "FULL", "CROSS", "NATURAL", "ON", "USING",
	"SET", "VALUES", "DEFAULT", "SELECT", "GROUP", "ORDER", "LIMIT", "OFFSET", "HAVING", "RETURNING",
	"UNION", "EXCEPT", "INTERSECT", "FOR", "WINDOW",
}

// rewrite confines a neutral statement to tenantID. owned reports whether a
// table is tenant-owned.
//
// Every table reference is scoped, at any nesting level: the primary table
// and comma-joined tables get a predicate in their block's WHERE clause, a
// JOIN target gets one in its ON clause, and subqueries are scoped as blocks
// of their own. A reference that cannot be scoped that way fails the whole
// statement.
func rewrite(stmt store.Statement, tenantID string, owned func(string) bool) (store.Statement, error) {
	fail := func(format string, a ...any) (store.Statement, error) {
		return store.Statement{}, &domain.StatementError{Query: stmt.SQL, Reason: fmt.Sprintf(format, a...)}
	}

	if err := stmt.Validate(); err != nil {
		return store.Statement{}, err
	}

	query := strings.TrimRight(strings.TrimSpace(stmt.SQL), ";")
	toks, err := lex(query)
	if err != nil {
		return fail("%v", err)
	}
	if len(toks) == 0 || toks[0].kind != tokWord {
		return fail("empty statement")
	}

	s := &rewriter{query: query, toks: toks, args: stmt.Args, tenantID: tenantID, owned: owned}

	switch toks[0].upper {
	case "SELECT":
		if s.findAt("FROM", 1, len(toks), 0) < 0 {
			return fail("select without FROM cannot be scoped")
		}
		err = s.scopeSelect(0, len(toks))
	case "DELETE":
		err = s.scopeDelete()
	case "UPDATE":
		err = s.scopeUpdate()
	case "INSERT":
		err = s.scopeInsert()
	default:
		return fail("%s statements cannot be scoped to a tenant", toks[0].upper)
	}
	if err != nil {
		return fail("%v", err)
	}
	return s.apply(), nil
}

// edit is a splice into the original query. args is the number of tenant
// values its text introduces; open marks an opening parenthesis, which goes
// after any closing splice at the same offset.
type edit struct {
	at   int
	text string
	args int
	open bool
}

type rewriter struct {
	query    string
	toks     []token
	args     []any
	tenantID string
	owned    func(string) bool
	edits    []edit
}

// findAt returns the index of the first word kw at depth d in toks[from:hi],
// or -1.
func (s *rewriter) findAt(kw string, from, hi, d int) int {
	for i := from; i < hi; i++ {
		if s.toks[i].depth == d && s.toks[i].kind == tokWord && s.toks[i].upper == kw {
			return i
		}
	}
	return -1
}

// clauseAt returns the index of the first clause keyword at depth d in
// toks[from:hi], or hi.
func (s *rewriter) clauseAt(from, hi, d int) int {
	for i := from; i < hi; i++ {
		t := s.toks[i]
		if t.depth == d && t.kind == tokWord && slices.Contains(clauseKeywords, t.upper) {
			return i
		}
	}
	return hi
}

// placeholdersBefore counts placeholders that start before offset.
func (s *rewriter) placeholdersBefore(offset int) int {
	n := 0
	for _, t := range s.toks {
		if t.start >= offset {
			break
		}
		if t.kind == tokPlaceholder {
			n++
		}
	}
	return n
}

func predicate(qualifier string) string {
	return qualifier + "." + TenantColumn + " = ?"
}

// tableRef reads the table reference at toks[i], bounded by end. It returns
// the name used to qualify columns (alias when present), the bare table name
// and the index after the reference. A derived table has an empty name; its
// subquery is scoped on its own.
func (s *rewriter) tableRef(i, end int) (qualifier, name string, next int, err error) {
	if i >= end {
		return "", "", i, fmt.Errorf("missing table reference")
	}
	t := s.toks[i]
	d := t.depth

	switch t.kind {
	case tokOpen:
		c := s.matching(i)
		if c < 0 || c >= end {
			return "", "", i, fmt.Errorf("unterminated table reference")
		}
		if i+1 >= c || s.toks[i+1].upper != "SELECT" {
			return "", "", i, fmt.Errorf("parenthesized joins cannot be scoped")
		}
		next = c + 1
	case tokWord:
		if i+1 < end && s.toks[i+1].kind == tokOpen {
			return "", "", i, fmt.Errorf("table function %s cannot be scoped", t.upper)
		}
		raw := s.query[t.start:t.end]
		name = strings.ToLower(strings.Trim(raw[strings.LastIndexByte(raw, '.')+1:], `"`))
		if !s.owned(name) {
			return "", "", i, fmt.Errorf("table %q is not tenant-owned", name)
		}
		qualifier = raw
		next = i + 1
	default:
		return "", "", i, fmt.Errorf("unexpected %q in table reference", t.upper)
	}

	if next < end && s.toks[next].upper == "AS" {
		next++
	}
	if next < end && s.toks[next].kind == tokWord && s.toks[next].depth == d && !slices.Contains(aliasStop, s.toks[next].upper) {
		qualifier = s.query[s.toks[next].start:s.toks[next].end]
		next++
	}
	return qualifier, name, next, nil
}

// scopeSelect scopes the SELECT block toks[lo:hi] and every block nested in
// it.
func (s *rewriter) scopeSelect(lo, hi int) error {
	d := s.toks[lo].depth
	for i := lo + 1; i < hi; i++ {
		t := s.toks[i]
		if t.depth == d && t.kind == tokWord && slices.Contains(setOperators, t.upper) {
			return fmt.Errorf("%s cannot be scoped", t.upper)
		}
	}

	from := s.findAt("FROM", lo+1, hi, d)
	if from >= 0 {
		end := s.clauseAt(from+1, hi, d)
		if w := s.findAt("WHERE", from+1, end, d); w >= 0 {
			end = w
		}
		preds, err := s.scopeFrom(from+1, end, d)
		if err != nil {
			return err
		}
		if err = s.addWhere(end, hi, d, preds); err != nil {
			return err
		}
	}
	return s.scopeNested(lo+1, hi, d)
}

// scopeFrom walks the FROM list toks[i:end]. JOIN targets are scoped in
// their ON clause; the predicates for the other tables are returned for the
// WHERE clause.
func (s *rewriter) scopeFrom(i, end, d int) ([]string, error) {
	var preds []string
	for first := true; i < end; first = false {
		join := false
		if !first {
			t := s.toks[i]
			switch {
			case t.kind == tokComma:
				i++
			case t.kind == tokWord && slices.Contains(joinWords, t.upper):
				join = true
				for ; i < end && s.toks[i].upper != "JOIN"; i++ {
					switch s.toks[i].upper {
					case "LEFT", "INNER", "OUTER":
					case "CROSS":
						join = false
					default:
						return nil, fmt.Errorf("%s JOIN cannot be scoped", s.toks[i].upper)
					}
				}
				if i >= end {
					return nil, fmt.Errorf("join without JOIN keyword")
				}
				i++
			default:
				return nil, fmt.Errorf("unexpected %q in FROM clause", t.upper)
			}
		}

		qualifier, name, next, err := s.tableRef(i, end)
		if err != nil {
			return nil, err
		}
		i = next

		if !join {
			if name != "" {
				preds = append(preds, predicate(qualifier))
			}
			continue
		}

		if i >= end || s.toks[i].upper != "ON" {
			return nil, fmt.Errorf("join needs an ON clause to be scoped")
		}
		on := i + 1
		i = s.onEnd(on, end, d)
		if i == on {
			return nil, fmt.Errorf("empty ON clause")
		}
		if name != "" {
			s.edits = append(s.edits,
				edit{at: s.toks[on].start, text: "(", open: true},
				edit{at: s.toks[i-1].end, text: ") AND " + predicate(qualifier), args: 1},
			)
		}
	}
	return preds, nil
}

// onEnd returns the index that ends the ON condition starting at from.
func (s *rewriter) onEnd(from, end, d int) int {
	for i := from; i < end; i++ {
		t := s.toks[i]
		if t.depth != d {
			continue
		}
		if t.kind == tokComma {
			return i
		}
		if t.kind == tokWord && slices.Contains(joinWords, t.upper) && (i+1 >= end || s.toks[i+1].kind != tokOpen) {
			return i
		}
	}
	return end
}

// addWhere ANDs preds onto the WHERE clause of the block at depth d that
// starts at or after from, or adds a WHERE clause before the trailing
// clauses. An existing condition is parenthesized.
func (s *rewriter) addWhere(from, hi, d int, preds []string) error {
	if len(preds) == 0 {
		return nil
	}
	pred := strings.Join(preds, " AND ")

	where := s.findAt("WHERE", from, s.clauseAt(from, hi, d), d)
	if where < 0 {
		stop := s.clauseAt(from, hi, d)
		s.edits = append(s.edits, edit{at: s.toks[stop-1].end, text: " WHERE " + pred, args: len(preds)})
		return nil
	}

	stop := s.clauseAt(where+1, hi, d)
	if stop == where+1 {
		return fmt.Errorf("empty WHERE clause")
	}
	s.edits = append(s.edits,
		edit{at: s.toks[where+1].start, text: "(", open: true},
		edit{at: s.toks[stop-1].end, text: ") AND " + pred, args: len(preds)},
	)
	return nil
}

// scopeNested scopes every parenthesized SELECT in toks[lo:hi], whose own
// tokens sit at depth d.
func (s *rewriter) scopeNested(lo, hi, d int) error {
	for i := lo; i < hi; i++ {
		t := s.toks[i]
		if t.depth != d {
			continue
		}
		if t.kind == tokWord && t.upper == "SELECT" {
			return fmt.Errorf("unexpected SELECT")
		}
		if t.kind != tokOpen {
			continue
		}
		c := s.matching(i)
		if c < 0 || c > hi {
			return fmt.Errorf("unterminated parenthesis")
		}
		var err error
		if i+1 < c && s.toks[i+1].upper == "SELECT" {
			err = s.scopeSelect(i+1, c)
		} else {
			err = s.scopeNested(i+1, c, d+1)
		}
		if err != nil {
			return err
		}
		i = c
	}
	return nil
}

func (s *rewriter) scopeDelete() error {
	if len(s.toks) < 2 || s.toks[1].upper != "FROM" {
		return fmt.Errorf("expected DELETE FROM")
	}
	qualifier, _, next, err := s.tableRef(2, len(s.toks))
	if err != nil {
		return err
	}
	if next < len(s.toks) && s.toks[next].upper == "USING" {
		return fmt.Errorf("DELETE ... USING cannot be scoped")
	}
	if err = s.addWhere(next, len(s.toks), 0, []string{predicate(qualifier)}); err != nil {
		return err
	}
	return s.scopeNested(2, len(s.toks), 0)
}

func (s *rewriter) scopeUpdate() error {
	start := 1
	if start < len(s.toks) && s.toks[start].upper == "ONLY" {
		start++
	}
	set := s.findAt("SET", start, len(s.toks), 0)
	if set < 0 {
		return fmt.Errorf("update without SET")
	}
	qualifier, _, next, err := s.tableRef(start, set)
	if err != nil {
		return err
	}
	if next != set {
		return fmt.Errorf("unexpected %q before SET", s.toks[next].upper)
	}
	if s.findAt("FROM", set+1, len(s.toks), 0) >= 0 {
		return fmt.Errorf("UPDATE ... FROM cannot be scoped")
	}

	end := len(s.toks)
	for _, kw := range []string{"WHERE", "RETURNING"} {
		if j := s.findAt(kw, set+1, len(s.toks), 0); j >= 0 && j < end {
			end = j
		}
	}
	for _, t := range s.toks[set+1 : end] {
		if t.kind == tokWord && isTenantColumn(t.upper) {
			return fmt.Errorf("%s cannot be assigned", TenantColumn)
		}
	}

	if err = s.addWhere(set+1, len(s.toks), 0, []string{predicate(qualifier)}); err != nil {
		return err
	}
	return s.scopeNested(start, len(s.toks), 0)
}

// scopeInsert appends tenant_id to the column list and a placeholder for it to
// every VALUES tuple.
func (s *rewriter) scopeInsert() error {
	if len(s.toks) < 3 || s.toks[1].upper != "INTO" {
		return fmt.Errorf("expected INSERT INTO")
	}
	if s.toks[2].kind != tokWord {
		return fmt.Errorf("cannot determine the insert table")
	}
	raw := s.query[s.toks[2].start:s.toks[2].end]
	name := strings.ToLower(strings.Trim(raw[strings.LastIndexByte(raw, '.')+1:], `"`))
	if !s.owned(name) {
		return fmt.Errorf("table %q is not tenant-owned", name)
	}

	open := 3
	for open < len(s.toks) && s.toks[open].kind != tokOpen {
		if s.toks[open].upper == "VALUES" || s.toks[open].upper == "SELECT" || s.toks[open].upper == "DEFAULT" {
			return fmt.Errorf("insert requires an explicit column list")
		}
		open++
	}
	closeCols := s.matching(open)
	if closeCols < 0 {
		return fmt.Errorf("unterminated column list")
	}
	for _, t := range s.toks[open+1 : closeCols] {
		if t.kind == tokWord && isTenantColumn(t.upper) {
			return fmt.Errorf("%s is set by the tenant scope and cannot be supplied", TenantColumn)
		}
	}

	values := closeCols + 1
	if values >= len(s.toks) || s.toks[values].upper != "VALUES" {
		return fmt.Errorf("only INSERT ... VALUES can be scoped")
	}

	s.edits = append(s.edits, edit{at: s.toks[closeCols].start, text: ", " + TenantColumn})
	tuples := 0
	for i := values + 1; i < len(s.toks); {
		if s.toks[i].kind != tokOpen || s.toks[i].depth != 0 {
			break
		}
		c := s.matching(i)
		if c < 0 {
			return fmt.Errorf("unterminated VALUES tuple")
		}
		s.edits = append(s.edits, edit{at: s.toks[c].start, text: ", ?", args: 1})
		tuples++
		i = c + 1
		if i < len(s.toks) && s.toks[i].kind == tokComma && s.toks[i].depth == 0 {
			i++
			continue
		}
		break
	}
	if tuples == 0 {
		return fmt.Errorf("VALUES without tuples")
	}
	return s.scopeNested(values+1, len(s.toks), 0)
}

// apply splices the collected edits into the query and the tenant value into
// the arguments at the matching placeholder positions.
func (s *rewriter) apply() store.Statement {
	slices.SortStableFunc(s.edits, func(a, b edit) int {
		if a.at != b.at {
			return a.at - b.at
		}
		switch {
		case a.open == b.open:
			return 0
		case a.open:
			return 1
		default:
			return -1
		}
	})

	var b strings.Builder
	args := make([]any, 0, len(s.args)+len(s.edits))
	prev, next := 0, 0
	for _, e := range s.edits {
		b.WriteString(s.query[prev:e.at])
		b.WriteString(e.text)
		prev = e.at

		before := s.placeholdersBefore(e.at)
		args = append(args, s.args[next:before]...)
		next = before
		for range e.args {
			args = append(args, s.tenantID)
		}
	}
	b.WriteString(s.query[prev:])
	args = append(args, s.args[next:]...)

	return store.Statement{SQL: b.String(), Args: args}
}

// matching returns the index of the token closing the parenthesis at open.
func (s *rewriter) matching(open int) int {
	if open >= len(s.toks) || s.toks[open].kind != tokOpen {
		return -1
	}
	d := s.toks[open].depth
	for i := open + 1; i < len(s.toks); i++ {
		if s.toks[i].kind == tokClose && s.toks[i].depth == d {
			return i
		}
	}
	return -1
}

func isTenantColumn(upper string) bool {
	upper = strings.Trim(upper, `"`)
	return upper == "TENANT_ID" || strings.HasSuffix(upper, ".TENANT_ID")
}
