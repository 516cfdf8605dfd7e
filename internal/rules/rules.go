// Package rules loads keyword rules for automatic tagging from a YAML file.
//
// File format:
//
//	rules:
//	  - tag: 仕事
//	    keywords: [会議, 資料]
//	  - tag: 買い物
//	    keywords: [牛乳]
//
// Rule order is significant: the first rule with a matching keyword wins.
package rules

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"tasktree/backend"
	"tasktree/internal/watcher"
)

// ErrNoRuleFile is returned when the rules file does not exist.
var ErrNoRuleFile = errors.New("rules file not found")

type document struct {
	Rules []backend.KeywordRule `yaml:"rules"`
}

// Parse decodes a rules document. Rules without a tag are dropped and
// keywords are trimmed; empty keywords are kept out.
func Parse(data []byte) ([]backend.KeywordRule, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("rules.Parse: %w", err)
	}

	out := make([]backend.KeywordRule, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		tag := strings.TrimSpace(r.Tag)
		if tag == "" {
			continue
		}
		rule := backend.KeywordRule{Tag: tag}
		for _, kw := range r.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				rule.Keywords = append(rule.Keywords, kw)
			}
		}
		out = append(out, rule)
	}
	return out, nil
}

// FileSource serves rules from a YAML file, caching the last successful read.
type FileSource struct {
	path   string
	logger zerolog.Logger

	mu     sync.RWMutex
	rules  []backend.KeywordRule
	err    error
	loaded bool
}

var _ backend.RuleSource = (*FileSource)(nil)

// NewFileSource returns a source for path. Nothing is read until the first
// LoadRules or Reload.
func NewFileSource(path string, logger zerolog.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Path returns the watched file.
func (s *FileSource) Path() string {
	return s.path
}

// Reload reads the file again. A missing or malformed file leaves the source
// with no rules and the error is returned from LoadRules until the next
// successful reload.
func (s *FileSource) Reload() error {
	data, err := os.ReadFile(s.path)
	var rules []backend.KeywordRule
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = ErrNoRuleFile
	case err != nil:
		err = fmt.Errorf("rules.Reload: %w", err)
	default:
		rules, err = Parse(data)
	}

	s.mu.Lock()
	s.rules, s.err, s.loaded = rules, err, true
	s.mu.Unlock()

	if err != nil && !errors.Is(err, ErrNoRuleFile) {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("keyword rules unavailable")
	} else if err == nil {
		s.logger.Debug().Int("rules", len(rules)).Str("path", s.path).Msg("keyword rules loaded")
	}
	return err
}

// LoadRules implements backend.RuleSource.
func (s *FileSource) LoadRules(ctx context.Context) ([]backend.KeywordRule, error) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		_ = s.Reload()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]backend.KeywordRule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

// Watch reloads the file whenever it changes until ctx is done.
func (s *FileSource) Watch(ctx context.Context) error {
	cfg := watcher.DefaultConfig(func() { _ = s.Reload() }, s.path)
	cfg.Logger = s.logger

	w, err := watcher.New(cfg)
	if err != nil {
		return fmt.Errorf("rules.Watch: %w", err)
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return fmt.Errorf("rules.Watch: %w", err)
	}

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

// Fallback consults primary first and uses secondary only when primary has no
// rules file.
type Fallback struct {
	Primary   backend.RuleSource
	Secondary backend.RuleSource
}

var _ backend.RuleSource = Fallback{}

// LoadRules implements backend.RuleSource.
func (f Fallback) LoadRules(ctx context.Context) ([]backend.KeywordRule, error) {
	rules, err := f.Primary.LoadRules(ctx)
	if errors.Is(err, ErrNoRuleFile) && f.Secondary != nil {
		return f.Secondary.LoadRules(ctx)
	}
	return rules, err
}

// Static is a fixed rule list.
type Static []backend.KeywordRule

// LoadRules implements backend.RuleSource.
func (s Static) LoadRules(context.Context) ([]backend.KeywordRule, error) {
	return append([]backend.KeywordRule(nil), s...), nil
}
