package submission

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"sort"
	"strings"

	"botarena/internal/adapter"
	"botarena/internal/policy"
)

// AllowedImports is the default namespace allow-list for submissions. It
// mirrors what the interpreter will actually let a competitor reach: pure
// computation, no process, filesystem, or network access.
var AllowedImports = []string{
	"bytes",
	"container/heap",
	"container/list",
	"errors",
	"fmt",
	"math",
	"math/rand",
	"sort",
	"strconv",
	"strings",
	"time",
	"unicode",
	"unicode/utf8",
}

// BannedCalls maps explicit unsafe-API call patterns to the rule they
// violate. Imports already block these packages; the call scan names the
// exact pattern in the rejection, and catches indirect access.
var BannedCalls = map[string]string{
	"exec.Command":        "process spawning",
	"exec.CommandContext": "process spawning",
	"os.StartProcess":     "process spawning",
	"os.Remove":           "filesystem deletion",
	"os.RemoveAll":        "filesystem deletion",
	"net.Dial":            "raw networking",
	"net.Listen":          "raw networking",
	"http.Get":            "raw networking",
	"http.Post":           "raw networking",
	"syscall.Syscall":     "low-level system access",
	"reflect.NewAt":       "low-level memory access",
	"plugin.Open":         "runtime code loading",
}

// Validator runs the full static check pipeline over a submission.
type Validator struct {
	limits  Limits
	allowed []string
	banned  map[string]string
	engine  *policy.Engine
}

// NewValidator builds a validator with the default allow/deny lists.
func NewValidator(limits Limits) (*Validator, error) {
	engine, err := policy.New()
	if err != nil {
		return nil, err
	}
	return &Validator{
		limits:  limits,
		allowed: AllowedImports,
		banned:  BannedCalls,
		engine:  engine,
	}, nil
}

// Validate runs every check and reports all findings in order: size,
// parse, namespace allow-list, banned API patterns, implementation count.
func (v *Validator) Validate(sub Submission) Result {
	res := Result{}

	if len(sub.Files) == 0 {
		res.Errors = append(res.Errors, "submission contains no files")
		return res
	}
	if total := sub.TotalBytes(); total > v.limits.MaxTotalBytes {
		res.Errors = append(res.Errors,
			fmt.Sprintf("submission is %d bytes, exceeding the %d byte limit", total, v.limits.MaxTotalBytes))
	}

	fset := token.NewFileSet()
	var parsed []*ast.File
	var parsedNames []string
	for _, f := range sub.Files {
		if strings.TrimSpace(f.Source) == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("file %s: empty source file", f.Name))
			continue
		}
		file, err := parser.ParseFile(fset, f.Name, f.Source, 0)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("file %s: %v", f.Name, err))
			continue
		}
		parsed = append(parsed, file)
		parsedNames = append(parsedNames, f.Name)
	}

	if len(parsed) > 0 {
		facts := v.extractFacts(fset, parsed, parsedNames)
		violations, err := v.engine.Evaluate(facts)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("safety policy evaluation failed: %v", err))
		}
		for _, viol := range violations {
			if viol.Call {
				res.Errors = append(res.Errors,
					fmt.Sprintf("file %s: banned API pattern %q (%s)", viol.File, viol.Subject, viol.Reason))
			} else {
				res.Errors = append(res.Errors,
					fmt.Sprintf("file %s: disallowed namespace %q", viol.File, viol.Subject))
			}
		}

		impls := FindImplementations(parsed)
		switch len(impls) {
		case 0:
			res.Errors = append(res.Errors, "no implementation found: no type provides the capability contract")
		case 1:
			res.TypeName = impls[0]
		default:
			res.Errors = append(res.Errors,
				fmt.Sprintf("multiple implementations of the capability contract: %s", strings.Join(impls, ", ")))
		}
	}

	res.Valid = len(res.Errors) == 0
	if !res.Valid {
		res.TypeName = ""
	}
	return res
}

// extractFacts turns parsed files into policy facts, plus the configured
// allow/deny seed facts.
func (v *Validator) extractFacts(fset *token.FileSet, files []*ast.File, names []string) []policy.Fact {
	var facts []policy.Fact
	for _, pkg := range v.allowed {
		facts = append(facts, policy.Fact{Predicate: "allowed_import", Args: []string{pkg}})
	}
	for callee, reason := range v.banned {
		facts = append(facts, policy.Fact{Predicate: "banned_call", Args: []string{callee, reason}})
	}

	for i, file := range files {
		name := names[i]
		for _, imp := range file.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			facts = append(facts, policy.Fact{Predicate: "src_import", Args: []string{name, path}})
		}
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			var buf bytes.Buffer
			if err := printer.Fprint(&buf, fset, call.Fun); err == nil {
				facts = append(facts, policy.Fact{Predicate: "src_call", Args: []string{name, buf.String()}})
			}
			return true
		})
	}
	return facts
}

// FindImplementations returns the names of types whose method sets cover
// every capability contract operation, aggregated across all files so an
// implementation may be split between them.
func FindImplementations(files []*ast.File) []string {
	methods := make(map[string]map[string]bool)
	for _, file := range files {
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || len(fn.Recv.List) != 1 {
				continue
			}
			recv := receiverTypeName(fn.Recv.List[0].Type)
			if recv == "" {
				continue
			}
			if methods[recv] == nil {
				methods[recv] = make(map[string]bool)
			}
			methods[recv][fn.Name.Name] = true
		}
	}

	var impls []string
	for typeName, set := range methods {
		complete := true
		for _, required := range adapter.MethodNames {
			if !set[required] {
				complete = false
				break
			}
		}
		if complete {
			impls = append(impls, typeName)
		}
	}
	sort.Strings(impls)
	return impls
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name
		}
	}
	return ""
}
