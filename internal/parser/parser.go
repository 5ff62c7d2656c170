// Package parser is the host engine front end: it turns PHP sources into the
// IR consumed by rules, resolving names and class hierarchies on the way.
package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codewithboateng/drulift/internal/ir"
)

type Diagnostics struct {
	Warnings []string
}

// Options controls which files are parsed. Patterns are doublestar globs
// matched against slash-separated paths relative to the analysis root.
type Options struct {
	Include   []string
	Exclude   []string
	CacheSize int
}

func DefaultOptions() Options {
	return Options{
		Include: []string{
			"**/*.php", "**/*.module", "**/*.inc", "**/*.install",
			"**/*.theme", "**/*.profile", "**/*.engine",
		},
		Exclude:   []string{"**/vendor/**", "**/node_modules/**"},
		CacheSize: 2048,
	}
}

// Parser parses PHP trees. Lowered files are cached by path and content
// hash, so re-parsing an unchanged tree is cheap.
type Parser struct {
	opts  Options
	cache *lru.Cache[string, ir.File]
}

func New(opts Options) (*Parser, error) {
	def := DefaultOptions()
	if len(opts.Include) == 0 {
		opts.Include = def.Include
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = def.CacheSize
	}
	for _, p := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	cache, err := lru.New[string, ir.File](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("parse cache: %w", err)
	}
	return &Parser{opts: opts, cache: cache}, nil
}

// Parse parses root with default options.
func Parse(ctx context.Context, root string) (ir.Run, Diagnostics, error) {
	p, err := New(DefaultOptions())
	if err != nil {
		return ir.Run{}, Diagnostics{}, err
	}
	return p.Parse(ctx, root)
}

// Matches reports whether a root-relative path is selected for parsing.
func (p *Parser) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pat := range p.opts.Exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return false
		}
	}
	for _, pat := range p.opts.Include {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// Parse walks root (a directory or a single file) and returns the resolved
// IR. Unreadable or malformed files become warnings; only a missing root or
// a cancelled context is an error.
func (p *Parser) Parse(ctx context.Context, root string) (ir.Run, Diagnostics, error) {
	var run ir.Run
	run.IRVersion = ir.Version
	run.Source = filepath.Clean(root)
	diags := Diagnostics{}

	info, err := os.Stat(root)
	if err != nil {
		return run, diags, fmt.Errorf("stat %s: %w", root, err)
	}

	var paths []string
	if !info.IsDir() {
		paths = append(paths, root)
		root = filepath.Dir(root)
	} else {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				diags.Warnings = append(diags.Warnings, err.Error())
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			rel, _ := filepath.Rel(root, path)
			if p.Matches(rel) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return run, diags, err
		}
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return run, diags, err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		f, warn, err := p.ParseFile(ctx, path, filepath.ToSlash(rel))
		if err != nil {
			diags.Warnings = append(diags.Warnings, fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		if warn != "" {
			diags.Warnings = append(diags.Warnings, fmt.Sprintf("%s: %s", rel, warn))
		}
		run.Files = append(run.Files, f)
	}
	sort.Slice(run.Files, func(i, j int) bool { return run.Files[i].Path < run.Files[j].Path })

	if len(run.Files) == 0 {
		diags.Warnings = append(diags.Warnings, "no PHP files found")
	}
	ResolveHierarchy(run.Files)
	return run, diags, nil
}

// ParseFile lowers one file. The returned warning is non-empty when the
// source has syntax errors; the partial tree is still returned.
func (p *Parser) ParseFile(ctx context.Context, path, rel string) (ir.File, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ir.File{}, "", fmt.Errorf("read file: %w", err)
	}
	hash := computeHash(content)
	key := rel + "|" + hash
	if f, ok := p.cache.Get(key); ok {
		return cloneFile(f), "", nil
	}

	f, hasErrors, err := lowerSource(ctx, content)
	if err != nil {
		return ir.File{}, "", err
	}
	f.Path = rel
	f.Hash = hash
	p.cache.Add(key, f)

	warn := ""
	if hasErrors {
		warn = "syntax errors, analysis may be incomplete"
	}
	return cloneFile(f), warn, nil
}

func computeHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// cloneFile copies the parts ResolveHierarchy writes so cached entries stay
// untouched between runs. Method bodies are immutable and shared.
func cloneFile(f ir.File) ir.File {
	out := f
	out.Classes = make([]ir.Class, len(f.Classes))
	for i, c := range f.Classes {
		c.Ancestors = nil
		c.Interfaces = nil
		c.Implements = append([]string(nil), c.Implements...)
		c.Methods = append([]ir.Method(nil), c.Methods...)
		out.Classes[i] = c
	}
	return out
}
