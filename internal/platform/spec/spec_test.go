package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type tooth struct {
	number int
	status string
}

func numberAbove(n int) Spec[tooth] {
	return New("number > ?", []any{n}, func(t tooth) bool { return t.number > n })
}

func hasStatus(s string) Spec[tooth] {
	return New("status = ?", []any{s}, func(t tooth) bool { return t.status == s })
}

func TestCombinators_InMemory(t *testing.T) {
	upperCaries := tooth{number: 16, status: "caries"}
	lowerHealthy := tooth{number: 46, status: "healthy"}
	upperHealthy := tooth{number: 11, status: "healthy"}

	s := And(Not(numberAbove(30)), hasStatus("healthy"))
	assert.True(t, s.IsSatisfiedBy(upperHealthy))
	assert.False(t, s.IsSatisfiedBy(upperCaries))
	assert.False(t, s.IsSatisfiedBy(lowerHealthy))

	o := Or(hasStatus("caries"), numberAbove(40))
	assert.True(t, o.IsSatisfiedBy(upperCaries))
	assert.True(t, o.IsSatisfiedBy(lowerHealthy))
	assert.False(t, o.IsSatisfiedBy(upperHealthy))

	all := []tooth{upperCaries, lowerHealthy, upperHealthy}
	assert.Equal(t, []tooth{upperCaries, lowerHealthy}, Filter(all, o))
}

func TestCombinators_Identities(t *testing.T) {
	x := tooth{number: 21}
	assert.True(t, And[tooth]().IsSatisfiedBy(x), "empty And is true")
	assert.False(t, Or[tooth]().IsSatisfiedBy(x), "empty Or is false")
	assert.True(t, All[tooth]().IsSatisfiedBy(x))
	assert.True(t, Not(Not(numberAbove(20))).IsSatisfiedBy(x), "double negation")
	assert.True(t, And(nil, numberAbove(20)).IsSatisfiedBy(x), "nil specs are ignored")
}

func TestSQL_Rendering(t *testing.T) {
	s := And(numberAbove(30), Or(hasStatus("caries"), Not(hasStatus("missing"))))
	sql, args := s.SQL()
	assert.Equal(t, "(number > ?) AND ((status = ?) OR (NOT (status = ?)))", sql)
	assert.Equal(t, []any{30, "caries", "missing"}, args)

	sql, args = And[tooth]().SQL()
	assert.Equal(t, "TRUE", sql)
	assert.Empty(t, args)

	sql, _ = Or[tooth]().SQL()
	assert.Equal(t, "FALSE", sql)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = $3 AND b = $4", Rebind("a = ? AND b = ?", 3))
	assert.Equal(t, "note = '?' AND id = $1", Rebind("note = '?' AND id = ?", 1))
	assert.Equal(t, "TRUE", Rebind("TRUE", 1))
}

func TestWhere(t *testing.T) {
	sql, args := Where(And(numberAbove(10), hasStatus("planned")), 2)
	assert.Equal(t, "(number > $2) AND (status = $3)", sql)
	assert.Equal(t, []any{10, "planned"}, args)

	sql, args = Where[tooth](nil, 1)
	assert.Equal(t, "TRUE", sql)
	assert.Nil(t, args)
}

func TestEqAndContains(t *testing.T) {
	status := func(t tooth) string { return t.status }
	eq := Eq("status", "missing", status)
	assert.True(t, eq.IsSatisfiedBy(tooth{status: "missing"}))
	assert.False(t, eq.IsSatisfiedBy(tooth{status: "healthy"}))

	c := Contains("status", "HEAL", status)
	assert.True(t, c.IsSatisfiedBy(tooth{status: "healthy"}))
	sql, args := c.SQL()
	assert.Equal(t, "status ILIKE ?", sql)
	assert.Equal(t, []any{"%HEAL%"}, args)

	_, args = Contains("status", "50%_off", status).SQL()
	assert.Equal(t, []any{`%50\%\_off%`}, args)
}
