package models

import (
	"encoding/json"
	"sort"
)

type Status int

const (
	StatusRewritten Status = iota
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusRewritten:
		return "REWRITTEN"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Rewrite is the outcome for one iteration call.
type Rewrite struct {
	Status   Status `json:"status"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Callback string `json:"callback,omitempty"` // inline, named, opaque
	Arity    int    `json:"arity"`
	Loop     string `json:"loop,omitempty"` // for-of, indexed
	Label    string `json:"label,omitempty"`
	Returns  int    `json:"returns_rewritten,omitempty"`
	Reason   string `json:"reason,omitempty"` // why a call was skipped
	Snippet  string `json:"snippet,omitempty"`
}

// FileResult is the transformed text of one file.
type FileResult struct {
	File     string    `json:"file"`
	Output   string    `json:"-"`
	Changed  bool      `json:"changed"`
	Rewrites []Rewrite `json:"rewrites"`
}

func NewFileResult(file string) *FileResult {
	return &FileResult{
		File:     file,
		Rewrites: make([]Rewrite, 0),
	}
}

func (fr *FileResult) Add(rw Rewrite) {
	rw.File = fr.File
	fr.Rewrites = append(fr.Rewrites, rw)
}

// Sort orders the rewrites by position in the file.
func (fr *FileResult) Sort() {
	sort.SliceStable(fr.Rewrites, func(i, j int) bool {
		a, b := fr.Rewrites[i], fr.Rewrites[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

func (fr *FileResult) Count(status Status) int {
	n := 0
	for _, rw := range fr.Rewrites {
		if rw.Status == status {
			n++
		}
	}
	return n
}

type TransformResult struct {
	Files          []string       `json:"files_transformed"`
	FilesChanged   int            `json:"files_changed"`
	TotalRewritten int            `json:"total_rewritten"`
	TotalSkipped   int            `json:"total_skipped"`
	SkipsByReason  map[string]int `json:"skips_by_reason"`
	Results        []*FileResult  `json:"results"`
	Coverage       int            `json:"coverage"` // rewritten share of all iteration calls, 0-100
	Duration       string         `json:"duration"`
}

func NewTransformResult() *TransformResult {
	return &TransformResult{
		Files:         make([]string, 0),
		SkipsByReason: make(map[string]int),
		Results:       make([]*FileResult, 0),
	}
}

func (tr *TransformResult) AddFile(fr *FileResult) {
	tr.Files = append(tr.Files, fr.File)
	tr.Results = append(tr.Results, fr)
	if fr.Changed {
		tr.FilesChanged++
	}
	for _, rw := range fr.Rewrites {
		switch rw.Status {
		case StatusRewritten:
			tr.TotalRewritten++
		case StatusSkipped:
			tr.TotalSkipped++
			tr.SkipsByReason[rw.Reason]++
		}
	}
}

func (tr *TransformResult) CalculateCoverage() {
	total := tr.TotalRewritten + tr.TotalSkipped
	if total == 0 {
		tr.Coverage = 100
		return
	}
	tr.Coverage = tr.TotalRewritten * 100 / total
}
