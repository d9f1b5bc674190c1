package transformer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	tcontext "foreachfix/internal/context"
	"foreachfix/internal/config"
	"foreachfix/internal/models"
	"foreachfix/internal/syntax"
	"foreachfix/internal/transformer/foreach"

	"golang.org/x/sync/errgroup"
)

// defaultIndent is used for files without any indented line.
const defaultIndent = "    "

type Transformer struct {
	config *config.Config
	parser syntax.Parser
	logger *slog.Logger

	// OnFile is called after each file of TransformFiles, possibly from
	// several goroutines at once.
	OnFile func(path string)
}

func NewTransformer() *Transformer {
	return NewTransformerWithConfig(config.DefaultConfig())
}

func NewTransformerWithConfig(cfg *config.Config) *Transformer {
	return &Transformer{
		config: cfg,
		parser: syntax.NewTreeSitterParser(),
		logger: slog.Default(),
	}
}

func (t *Transformer) WithLogger(logger *slog.Logger) *Transformer {
	t.logger = logger
	return t
}

func (t *Transformer) WithParser(parser syntax.Parser) *Transformer {
	t.parser = parser
	return t
}

// TransformFiles transforms every file concurrently. Any failure aborts the
// whole run and no result is returned.
func (t *Transformer) TransformFiles(ctx context.Context, filenames []string) (*models.TransformResult, error) {
	startTime := time.Now()
	results := make([]*models.FileResult, len(filenames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(t.config.Analysis.MaxWorkers, 1))
	var notify sync.Mutex
	for i, filename := range filenames {
		i, filename := i, filename
		g.Go(func() error {
			fr, err := t.TransformFile(ctx, filename)
			if err != nil {
				return err
			}
			results[i] = fr
			if t.OnFile != nil {
				notify.Lock()
				t.OnFile(filename)
				notify.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := models.NewTransformResult()
	for _, fr := range results {
		result.AddFile(fr)
	}
	result.Duration = time.Since(startTime).String()
	result.CalculateCoverage()
	return result, nil
}

func (t *Transformer) TransformFile(ctx context.Context, filename string) (*models.FileResult, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return t.TransformSource(ctx, filename, src)
}

// TransformSource rewrites every eligible iteration call of one file into a
// loop. The first pass rewrites returns in place and records each call-site's
// arity by position; the second pass runs on a clone and substitutes loops.
func (t *Transformer) TransformSource(ctx context.Context, name string, src []byte) (*models.FileResult, error) {
	file, err := t.parser.Parse(ctx, name, src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := t.config.Transform
	tc := tcontext.New(name, file.Identifiers())
	matcher := foreach.NewMatcher(cfg.Method)
	arity := foreach.NewArityResolver(file)
	returns := foreach.NewReturnRewriter(tc, foreach.ReturnRewriterOptions{
		KeepValues:  cfg.KeepReturnValues,
		LabelNested: cfg.LabelNestedReturns,
		LabelBase:   cfg.Names.Label,
	})
	result := models.NewFileResult(name)
	returnCounts := make(map[syntax.Position]int)

	// pass 1: rewrite returns and record arity
	file.Walk(func(n *syntax.Node) bool {
		if !matcher.IsIterationCall(n) {
			return true
		}
		cs, reason := matcher.Match(n)
		if reason != foreach.Eligible {
			t.logger.Debug("iteration call skipped", "file", name, "pos", n.Pos().String(), "reason", string(reason))
			result.Add(models.Rewrite{
				Status:  models.StatusSkipped,
				Line:    n.Pos().Line,
				Column:  n.Pos().Column,
				Reason:  string(reason),
				Snippet: snippet(n),
			})
			return true
		}
		label, count := returns.Rewrite(cs.Callback)
		tc.Record(cs.Pos(), tcontext.ArityRecord{Arity: arity.Resolve(cs), Label: label})
		returnCounts[cs.Pos()] = count
		return true
	})

	// pass 2: substitute loops on a copy of the rewritten tree
	out := file.Clone()
	indent := t.config.Output.Indent
	if indent == "" {
		indent = file.IndentUnit()
	}
	if indent == "" {
		indent = defaultIndent
	}
	synth := foreach.NewLoopSynthesizer(tc, foreach.LoopSynthesizerOptions{
		Defaults: foreach.DefaultNames{
			Element:  cfg.Names.Element,
			Index:    cfg.Names.Index,
			Array:    cfg.Names.Array,
			Callback: cfg.Names.Callback,
		},
		Indent:      indent,
		Materialize: cfg.MaterializeCollections,
	})
	out.Rewrite(func(n *syntax.Node) *syntax.Node {
		call := n
		if n.Kind() == "expression_statement" {
			call = n.FirstNamedChild()
		}
		if !matcher.IsIterationCall(call) {
			return n
		}
		cs, reason := matcher.Match(call)
		if reason != foreach.Eligible || cs.Stmt != n {
			return n
		}

		rec, ok := tc.Lookup(cs.Pos())
		if !ok {
			t.logger.Warn("no arity recorded for call-site, resolving again", "file", name, "pos", cs.Pos().String())
			rec = tcontext.ArityRecord{Arity: arity.Resolve(cs)}
		}
		rewrite := models.Rewrite{
			Status:   models.StatusRewritten,
			Line:     cs.Pos().Line,
			Column:   cs.Pos().Column,
			Callback: string(cs.Callback.Kind),
			Arity:    rec.Arity,
			Loop:     string(synth.Kind(cs, rec.Arity)),
			Label:    rec.Label,
			Returns:  returnCounts[cs.Pos()],
			Snippet:  snippet(cs.Call),
		}
		loop := synth.Synthesize(cs, foreach.Plan{
			Arity:      rec.Arity,
			Label:      rec.Label,
			BaseIndent: file.Indent(cs.Stmt.Pos()) + strings.Repeat(indent, cs.Nesting),
		})
		result.Add(rewrite)
		return loop
	})

	result.Output = out.String()
	result.Changed = result.Output != string(src)
	result.Sort()
	t.logger.Debug("file transformed", "file", name,
		"rewritten", result.Count(models.StatusRewritten),
		"skipped", result.Count(models.StatusSkipped))
	return result, nil
}

// snippet returns the first line of a node's text, shortened for reports.
func snippet(n *syntax.Node) string {
	text := n.Text()
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + " ..."
	}
	if len(text) > 60 {
		text = text[:57] + "..."
	}
	return text
}
