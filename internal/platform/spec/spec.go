// Package spec implements composable query specifications. A Spec is both
// an in-memory predicate and a SQL WHERE fragment, so the same filter drives
// the Postgres repositories and the map-backed test doubles.
package spec

import (
	"strconv"
	"strings"
)

// Spec is a predicate over T that can also render itself as SQL with '?'
// placeholders.
type Spec[T any] interface {
	IsSatisfiedBy(item T) bool
	SQL() (string, []any)
}

type leaf[T any] struct {
	sql  string
	args []any
	pred func(T) bool
}

// New returns a leaf specification.
func New[T any](sql string, args []any, pred func(T) bool) Spec[T] {
	return leaf[T]{sql: sql, args: args, pred: pred}
}

func (l leaf[T]) IsSatisfiedBy(item T) bool { return l.pred(item) }
func (l leaf[T]) SQL() (string, []any)      { return l.sql, l.args }

// All matches everything.
func All[T any]() Spec[T] {
	return New[T]("TRUE", nil, func(T) bool { return true })
}

type and[T any] struct{ specs []Spec[T] }

// And matches when every spec matches. And() with no arguments matches
// everything.
func And[T any](specs ...Spec[T]) Spec[T] {
	return and[T]{specs: compact(specs)}
}

func (a and[T]) IsSatisfiedBy(item T) bool {
	for _, s := range a.specs {
		if !s.IsSatisfiedBy(item) {
			return false
		}
	}
	return true
}

func (a and[T]) SQL() (string, []any) {
	return join(a.specs, " AND ", "TRUE")
}

type or[T any] struct{ specs []Spec[T] }

// Or matches when any spec matches. Or() with no arguments matches nothing.
func Or[T any](specs ...Spec[T]) Spec[T] {
	return or[T]{specs: compact(specs)}
}

func (o or[T]) IsSatisfiedBy(item T) bool {
	for _, s := range o.specs {
		if s.IsSatisfiedBy(item) {
			return true
		}
	}
	return false
}

func (o or[T]) SQL() (string, []any) {
	return join(o.specs, " OR ", "FALSE")
}

type not[T any] struct{ inner Spec[T] }

func Not[T any](s Spec[T]) Spec[T] {
	return not[T]{inner: s}
}

func (n not[T]) IsSatisfiedBy(item T) bool { return !n.inner.IsSatisfiedBy(item) }

func (n not[T]) SQL() (string, []any) {
	sql, args := n.inner.SQL()
	return "NOT (" + sql + ")", args
}

func compact[T any](specs []Spec[T]) []Spec[T] {
	out := make([]Spec[T], 0, len(specs))
	for _, s := range specs {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func join[T any](specs []Spec[T], sep, empty string) (string, []any) {
	if len(specs) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(specs))
	var args []any
	for _, s := range specs {
		sql, a := s.SQL()
		parts = append(parts, "("+sql+")")
		args = append(args, a...)
	}
	return strings.Join(parts, sep), args
}

// Filter returns the items satisfying s, preserving order.
func Filter[T any](items []T, s Spec[T]) []T {
	var out []T
	for _, it := range items {
		if s.IsSatisfiedBy(it) {
			out = append(out, it)
		}
	}
	return out
}

// Rebind rewrites '?' placeholders as $start, $start+1, ... for pgx. Question
// marks inside single-quoted literals are left alone.
func Rebind(sql string, start int) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := start
	quoted := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			quoted = !quoted
			b.WriteByte(ch)
		case ch == '?' && !quoted:
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// Where renders s as a pgx WHERE fragment whose placeholders start at $start.
// A nil spec matches everything.
func Where[T any](s Spec[T], start int) (string, []any) {
	if s == nil {
		return "TRUE", nil
	}
	sql, args := s.SQL()
	return Rebind(sql, start), args
}

// Eq is a leaf comparing column to v.
func Eq[T any, V comparable](column string, v V, get func(T) V) Spec[T] {
	return New(column+" = ?", []any{v}, func(item T) bool { return get(item) == v })
}

// Contains is a case-insensitive substring match on expr. LIKE wildcards in
// fragment are matched literally.
func Contains[T any](expr, fragment string, get func(T) string) Spec[T] {
	needle := strings.ToLower(fragment)
	return New(expr+" ILIKE ?", []any{"%" + escapeLike(fragment) + "%"}, func(item T) bool {
		return strings.Contains(strings.ToLower(get(item)), needle)
	})
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
