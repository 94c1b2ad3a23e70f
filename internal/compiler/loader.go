// Package compiler turns validated submissions into callable bot handles.
// Each submission is evaluated in its own interpreter so identically named
// helper types in different submissions never collide, and a batch loader
// compiles a whole directory of submissions concurrently with per-submission
// failure isolation.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"botarena/internal/adapter"
	"botarena/internal/game"
	"botarena/internal/submission"
)

// Options configures a Loader.
type Options struct {
	// Limits bound submission size during validation.
	Limits submission.Limits
	// MemoryLimitBytes attaches a resource monitor to every compiled
	// handle when non-zero.
	MemoryLimitBytes uint64
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Loader validates and compiles submissions into handles.
type Loader struct {
	validator *submission.Validator
	memLimit  uint64
	logger    *zap.Logger

	// slowdown, when set, runs before each batch compilation. Tests use it
	// to stagger submissions and shake out shared-state corruption.
	slowdown func(team string)
}

// NewLoader builds a loader with the given options.
func NewLoader(opts Options) (*Loader, error) {
	if opts.Limits.MaxTotalBytes == 0 {
		opts.Limits = submission.DefaultLimits()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	validator, err := submission.NewValidator(opts.Limits)
	if err != nil {
		return nil, fmt.Errorf("init validator: %w", err)
	}
	return &Loader{
		validator: validator,
		memLimit:  opts.MemoryLimitBytes,
		logger:    opts.Logger,
	}, nil
}

var packageClause = regexp.MustCompile(`(?m)^package\s+\w+`)

// normalizePackage rewrites a file's package clause to main so every
// submission evaluates in a uniform namespace inside its interpreter.
func normalizePackage(src string) string {
	if !packageClause.MatchString(src) {
		return "package main\n\n" + src
	}
	return packageClause.ReplaceAllString(src, "package main")
}

// Compile validates and loads one submission. The returned handle carries
// either a callable strategy or the ordered error list; it is never nil.
func (l *Loader) Compile(sub submission.Submission) *Handle {
	res := l.validator.Validate(sub)
	if !res.Valid {
		l.logger.Debug("submission rejected",
			zap.String("team", sub.TeamName),
			zap.Int("errors", len(res.Errors)))
		return InvalidHandle(sub.TeamName, res.Errors)
	}

	strategy, err := l.load(sub, res.TypeName)
	if err != nil {
		l.logger.Debug("submission failed to compile",
			zap.String("team", sub.TeamName),
			zap.Error(err))
		return InvalidHandle(sub.TeamName, []string{err.Error()})
	}

	h := NewHandle(sub.TeamName, strategy)
	if l.memLimit > 0 {
		h.AttachMonitor(l.memLimit)
	}
	l.logger.Info("submission compiled",
		zap.String("team", sub.TeamName),
		zap.String("type", res.TypeName))
	return h
}

// load evaluates the submission in a fresh interpreter and binds the
// implementing type onto the canonical contract.
func (l *Loader) load(sub submission.Submission, typeName string) (game.Strategy, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load interpreter stdlib: %w", err)
	}

	for _, f := range sub.Files {
		if err := safeEval(i, normalizePackage(f.Source)); err != nil {
			return nil, fmt.Errorf("file %s: compile failed: %w", f.Name, err)
		}
	}

	// Instantiate the single implementing type inside the interpreter, then
	// pull out one bound method value per contract operation.
	shim := fmt.Sprintf("package main\n\nvar arenaBotInstance = &%s{}\n", typeName)
	if err := safeEval(i, shim); err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", typeName, err)
	}

	instance, err := evalValue(i, "main.arenaBotInstance")
	if err != nil {
		return nil, fmt.Errorf("resolve %s instance: %w", typeName, err)
	}
	// Native fast path: an instance already satisfying the canonical
	// contract is used unchanged.
	if instance.IsValid() && instance.CanInterface() {
		if s, ok := instance.Interface().(game.Strategy); ok {
			return s, nil
		}
	}

	methods := make(map[string]reflect.Value, len(adapter.MethodNames))
	for _, name := range adapter.MethodNames {
		fn, err := evalValue(i, "main.arenaBotInstance."+name)
		if err != nil {
			return nil, fmt.Errorf("resolve capability method %s: %w", name, err)
		}
		methods[name] = fn
	}
	strategy, err := adapter.AdaptFuncs(methods)
	if err != nil {
		return nil, fmt.Errorf("adapt %s onto the capability contract: %w", typeName, err)
	}
	return strategy, nil
}

// safeEval evaluates source, converting interpreter panics into errors so a
// hostile submission cannot take down the batch.
func safeEval(i *interp.Interpreter, src string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()
	_, err = i.Eval(src)
	return err
}

func evalValue(i *interp.Interpreter, expr string) (v reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()
	return i.Eval(expr)
}

// ReadSubmission loads one team's submission folder. Files are ordered by
// name so validation output is stable.
func ReadSubmission(dir string) (submission.Submission, error) {
	sub := submission.Submission{TeamName: filepath.Base(dir)}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return sub, fmt.Errorf("read submission folder: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return sub, fmt.Errorf("read %s: %w", name, err)
		}
		sub.Files = append(sub.Files, submission.File{Name: name, Source: string(data)})
	}
	return sub, nil
}

// LoadDirectory validates and compiles every submission subfolder of dir
// concurrently. For N folders exactly N handles come back, in folder-name
// order; one submission's failure never affects another's outcome.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]*Handle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read submissions directory: %w", err)
	}
	var folders []string
	for _, e := range entries {
		if e.IsDir() {
			folders = append(folders, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(folders)

	handles := make([]*Handle, len(folders))
	g, ctx := errgroup.WithContext(ctx)
	for idx, folder := range folders {
		idx, folder := idx, folder
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			team := filepath.Base(folder)
			if l.slowdown != nil {
				l.slowdown(team)
			}
			sub, err := ReadSubmission(folder)
			if err != nil {
				handles[idx] = InvalidHandle(team, []string{err.Error()})
				return nil
			}
			handles[idx] = l.Compile(sub)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return handles, nil
}
