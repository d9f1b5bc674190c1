package context

import (
	"strconv"

	"foreachfix/internal/syntax"
)

// TransformContext carries the state shared by the two passes over one file.
type TransformContext struct {
	File    string
	records map[syntax.Position]ArityRecord
	taken   map[string]struct{}
}

// ArityRecord is what the first pass learned about a call-site.
type ArityRecord struct {
	Arity int
	Label string // set when a nested return needs a labelled continue
}

// New creates the context for one file. taken holds every name already spelled
// in the file; generated names avoid them.
func New(file string, taken map[string]struct{}) *TransformContext {
	names := make(map[string]struct{}, len(taken))
	for name := range taken {
		names[name] = struct{}{}
	}
	return &TransformContext{
		File:    file,
		records: make(map[syntax.Position]ArityRecord),
		taken:   names,
	}
}

func (c *TransformContext) Record(pos syntax.Position, rec ArityRecord) {
	c.records[pos] = rec
}

func (c *TransformContext) Lookup(pos syntax.Position) (ArityRecord, bool) {
	rec, ok := c.records[pos]
	return rec, ok
}

func (c *TransformContext) Len() int {
	return len(c.records)
}

// Fresh returns base, or base followed by the smallest number that makes it
// unused, and reserves the result.
func (c *TransformContext) Fresh(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, used := c.taken[name]; !used {
			break
		}
		name = base + strconv.Itoa(i)
	}
	c.taken[name] = struct{}{}
	return name
}
