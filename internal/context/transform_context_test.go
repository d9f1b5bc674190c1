package context

import (
	"testing"

	"foreachfix/internal/syntax"

	"github.com/stretchr/testify/assert"
)

func TestFresh(t *testing.T) {
	taken := map[string]struct{}{"_el": {}, "_el1": {}, "items": {}}
	ctx := New("a.js", taken)

	assert.Equal(t, "_el2", ctx.Fresh("_el"))
	assert.Equal(t, "_el3", ctx.Fresh("_el"))
	assert.Equal(t, "_i", ctx.Fresh("_i"))
	assert.Equal(t, "_i1", ctx.Fresh("_i"))

	// the caller's set is not modified
	assert.Len(t, taken, 3)
}

func TestRecords(t *testing.T) {
	ctx := New("a.js", nil)
	pos := syntax.Position{Offset: 10, Line: 2, Column: 1}

	_, ok := ctx.Lookup(pos)
	assert.False(t, ok)

	ctx.Record(pos, ArityRecord{Arity: 2, Label: "_loop"})
	rec, ok := ctx.Lookup(pos)
	assert.True(t, ok)
	assert.Equal(t, ArityRecord{Arity: 2, Label: "_loop"}, rec)
	assert.Equal(t, 1, ctx.Len())

	_, ok = ctx.Lookup(syntax.Position{Offset: 11, Line: 2, Column: 2})
	assert.False(t, ok)
}
