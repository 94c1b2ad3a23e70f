// Package policy evaluates the submission safety policy. The policy itself
// is a small Datalog program: structural facts extracted from submission
// source go in, violation atoms come out. Keeping the rules declarative
// means the allow/deny logic lives in one auditable file rather than being
// scattered through validator code.
package policy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

//go:embed safety.mg
var safetySchema string

// Fact is one string-argument atom fed into the policy.
type Fact struct {
	Predicate string
	Args      []string
}

// Violation is one derived policy breach.
type Violation struct {
	File    string
	Subject string // offending import path or callee
	Reason  string // empty for import violations
	Call    bool   // true for banned-call violations
}

// Engine holds the analyzed safety program. It is immutable after New and
// safe for concurrent Evaluate calls; each evaluation uses its own store.
type Engine struct {
	info  *analysis.ProgramInfo
	preds map[string]ast.PredicateSym
}

// New parses and analyzes the embedded safety policy.
func New() (*Engine, error) {
	unit, err := parse.Unit(strings.NewReader(safetySchema))
	if err != nil {
		return nil, fmt.Errorf("parse safety policy: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze safety policy: %w", err)
	}
	preds := make(map[string]ast.PredicateSym, len(info.Decls))
	for sym := range info.Decls {
		preds[sym.Symbol] = sym
	}
	return &Engine{info: info, preds: preds}, nil
}

// Evaluate derives all violations from the given facts. Results are sorted
// by file, then subject, so validator errors come out in a stable order.
func (e *Engine) Evaluate(facts []Fact) ([]Violation, error) {
	store := factstore.NewSimpleInMemoryStore()
	for _, f := range facts {
		atom, err := e.atom(f)
		if err != nil {
			return nil, err
		}
		store.Add(atom)
	}

	if _, err := mengine.EvalProgramWithStats(e.info, store); err != nil {
		return nil, fmt.Errorf("evaluate safety policy: %w", err)
	}

	var out []Violation
	err := e.collect(store, "violation_import", func(args []string) {
		out = append(out, Violation{File: args[0], Subject: args[1]})
	})
	if err != nil {
		return nil, err
	}
	err = e.collect(store, "violation_call", func(args []string) {
		out = append(out, Violation{File: args[0], Subject: args[1], Reason: args[2], Call: true})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Call != out[j].Call {
			return !out[i].Call
		}
		return out[i].Subject < out[j].Subject
	})
	return out, nil
}

func (e *Engine) atom(f Fact) (ast.Atom, error) {
	sym, ok := e.preds[f.Predicate]
	if !ok {
		return ast.Atom{}, fmt.Errorf("predicate %s is not declared in the safety policy", f.Predicate)
	}
	if len(f.Args) != sym.Arity {
		return ast.Atom{}, fmt.Errorf("predicate %s expects %d args, got %d", f.Predicate, sym.Arity, len(f.Args))
	}
	args := make([]ast.BaseTerm, len(f.Args))
	for i, a := range f.Args {
		args[i] = ast.String(a)
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

func (e *Engine) collect(store factstore.FactStore, predicate string, emit func(args []string)) error {
	sym, ok := e.preds[predicate]
	if !ok {
		return fmt.Errorf("predicate %s is not declared in the safety policy", predicate)
	}
	return store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		args := make([]string, len(atom.Args))
		for i, term := range atom.Args {
			if c, ok := term.(ast.Constant); ok {
				args[i] = c.Symbol
			}
		}
		emit(args)
		return nil
	})
}
