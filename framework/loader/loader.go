// Package loader reads YAML definition files and replays them onto a
// container under construction.
//
// A file may import other files before its own entries:
//
//	imports:
//	  - resource: mail.yaml
//	  - resource: optional.yaml
//	    ignore_errors: true
//	parameters:
//	  newsletter.sender: ${NEWSLETTER_SENDER}
//	services:
//	  newsletter_manager:
//	    class: NewsletterManager
//	    arguments: ['@mailer', '%newsletter.sender%']
//
// ${VAR} references are expanded from the environment before parsing; a
// bare $VAR is kept as written. An ignore_errors import is skipped only when
// the imported file itself does not exist.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-inject/framework/container"
)

// ErrImportCycle is returned when files import each other.
var ErrImportCycle = errors.New("loader: import cycle")

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with the value of VAR, empty when unset. A bare
// $VAR is left alone.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(ref[2 : len(ref)-1])))
	})
}

// Import is one entry of a file's imports list. Relative resources are
// resolved against the importing file's directory.
type Import struct {
	Resource     string `yaml:"resource"`
	IgnoreErrors bool   `yaml:"ignore_errors,omitempty"`
}

type file struct {
	Imports            []Import `yaml:"imports,omitempty"`
	container.Document `yaml:",inline"`
}

// Loader loads definition files.
type Loader struct {
	log zerolog.Logger
}

// New creates a loader that logs to log.
func New(log zerolog.Logger) *Loader {
	return &Loader{log: log.With().Str("component", "loader").Logger()}
}

// LoadFile loads one file and its imports onto c.
func (l *Loader) LoadFile(c *container.Container, path string) ([]string, error) {
	return l.LoadFiles(c, path)
}

// LoadFiles loads files in order onto c and returns the absolute paths of
// every file read, imports included. A file reached twice is applied once.
func (l *Loader) LoadFiles(c *container.Container, paths ...string) ([]string, error) {
	r := &run{loader: l, c: c, seen: make(map[string]bool)}
	for _, path := range paths {
		if err := r.load(path, nil); err != nil {
			return r.read, err
		}
	}
	return r.read, nil
}

type run struct {
	loader *Loader
	c      *container.Container
	seen   map[string]bool
	read   []string
}

func (r *run) load(path string, stack []string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if slices.Contains(stack, abs) {
		return fmt.Errorf("%w: %s", ErrImportCycle, strings.Join(append(stack, abs), " -> "))
	}
	if r.seen[abs] {
		return nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read definitions: %w", err)
	}
	data = expandEnv(data)

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	r.seen[abs] = true
	r.read = append(r.read, abs)

	stack = append(stack, abs)
	for _, imp := range f.Imports {
		target := imp.Resource
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(abs), target)
		}
		if imp.IgnoreErrors {
			if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
				r.loader.log.Warn().Str("file", abs).Str("import", target).Msg("skipping missing import")
				continue
			}
		}
		if err := r.load(target, stack); err != nil {
			return err
		}
	}

	if err := f.Apply(r.c); err != nil {
		return fmt.Errorf("apply %s: %w", path, err)
	}

	r.loader.log.Debug().
		Str("file", abs).
		Int("parameters", len(f.Parameters)).
		Int("services", len(f.Services)).
		Msg("definitions loaded")
	return nil
}
