// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package discovery

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// configEntry is one pipeline's registered glob/blacklist configuration,
// in load order (first-loaded wins ties per the multi-config conflict
// rule).
type configEntry struct {
	name      string
	globs     []GlobSpec
	blacklist Blacklist
}

// Matcher maintains the live set of files-to-tail for every registered
// pipeline configuration, applying the glob model, blacklist model,
// root-dir guard, and multi-config conflict resolution of spec.md §4.3.
type Matcher struct {
	logger *zap.Logger

	allowRootDir     bool
	allowMultiConfig bool

	mu       sync.Mutex
	configs  []*configEntry           // load order
	byName   map[string]*configEntry
	claimed  map[string]string        // path -> owning config name (first-loaded wins)
	live     map[string]map[string]struct{} // config name -> set of live paths
}

// NewMatcher constructs an empty Matcher. allowRootDir and
// allowMultiConfig are the two named opt-in flags in §4.3.
func NewMatcher(logger *zap.Logger, allowRootDir, allowMultiConfig bool) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		logger:           logger,
		allowRootDir:     allowRootDir,
		allowMultiConfig: allowMultiConfig,
		byName:           make(map[string]*configEntry),
		claimed:          make(map[string]string),
		live:             make(map[string]map[string]struct{}),
	}
}

// AddConfig registers a pipeline's glob and blacklist configuration. The
// root-dir guard rejects any glob whose static prefix is "/" unless
// allowRootDir is set.
func (m *Matcher) AddConfig(name string, globs []GlobSpec, blacklist Blacklist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.allowRootDir {
		for _, g := range globs {
			if filepath.Clean(g.StaticPrefix) == "/" {
				return errRootDirForbidden(name)
			}
		}
	}
	entry := &configEntry{name: name, globs: globs, blacklist: blacklist}
	m.configs = append(m.configs, entry)
	m.byName[name] = entry
	m.live[name] = make(map[string]struct{})
	return nil
}

// RemoveConfig tears down a pipeline's claims, releasing every path it
// owned so a later AddConfig of the same name starts clean.
func (m *Matcher) RemoveConfig(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byName, name)
	for i, c := range m.configs {
		if c.name == name {
			m.configs = append(m.configs[:i], m.configs[i+1:]...)
			break
		}
	}
	for path, owner := range m.claimed {
		if owner == name {
			delete(m.claimed, path)
		}
	}
	delete(m.live, name)
}

// Consider evaluates path against every registered config in load order
// and returns the owning config name, applying first-loaded-wins on
// conflict (unless allowMultiConfig, in which case every matching config
// claims it independently and Consider returns the first match for
// logging purposes only — callers needing the full set use Matches).
func (m *Matcher) Consider(path string) (owner string, matched bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.considerLocked(path)
}

func (m *Matcher) considerLocked(path string) (string, bool) {
	if existing, ok := m.claimed[path]; ok && !m.allowMultiConfig {
		return existing, true
	}
	var first string
	for _, c := range m.configs {
		if !matchesConfig(c, path) {
			continue
		}
		if first == "" {
			first = c.name
		}
		if _, already := m.live[c.name][path]; !already {
			m.live[c.name][path] = struct{}{}
		}
		if !m.allowMultiConfig {
			m.claimed[path] = c.name
			m.logger.Debug("file claimed", zap.String("config", c.name), zap.String("path", path))
			return c.name, true
		}
	}
	if first == "" {
		return "", false
	}
	return first, true
}

// Matches returns every config name that claims path. With
// allowMultiConfig unset this is at most one element.
func (m *Matcher) Matches(path string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.configs {
		if matchesConfig(c, path) {
			out = append(out, c.name)
			if !m.allowMultiConfig {
				break
			}
		}
	}
	return out
}

func matchesConfig(c *configEntry, path string) bool {
	if c.blacklist.Excludes(path) {
		return false
	}
	for _, g := range c.globs {
		rel, err := filepath.Rel(g.StaticPrefix, path)
		if err != nil {
			continue
		}
		if Depth(rel) > g.MaxDepth && g.Kind != KindMultiWildcard {
			continue
		}
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Rescan performs a full directory walk of dir, feeding every discovered
// file through Consider. It implements the fsevents.RescanFunc contract
// used to resynchronise after an event-listener overflow.
func (m *Matcher) Rescan(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		m.Consider(path)
		return nil
	})
}

// LiveFiles returns the current live set for a config name.
func (m *Matcher) LiveFiles(name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.live[name]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

type rootDirError struct{ config string }

func (e rootDirError) Error() string {
	return "discovery: config " + e.config + " collects directly from root without the root-dir opt-in"
}

func errRootDirForbidden(config string) error { return rootDirError{config: config} }
