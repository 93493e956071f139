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

// Package discovery maintains the live set of files to tail, applying
// configured globs, depth limits, and blacklist rules to the change-event
// stream.
package discovery

import (
	"path/filepath"
	"strings"
)

// PathKind classifies a configured path pattern.
type PathKind int

const (
	// KindPlain is a plain directory plus a file pattern (?, *, char-class).
	KindPlain PathKind = iota
	// KindWildcardDir is a path with a single-level wildcard directory
	// segment (e.g. "/srv/*/app/log"); the static prefix up to the first
	// wildcard segment is the search origin.
	KindWildcardDir
	// KindMultiWildcard is a path containing "**", matched against the
	// full sub-tree.
	KindMultiWildcard
)

// GlobSpec is one configured path pattern, decomposed into its static
// prefix (the deepest directory with no wildcard segments) and the
// pattern to match beneath it.
type GlobSpec struct {
	Raw          string
	Kind         PathKind
	StaticPrefix string
	Pattern      string
	MaxDepth     int
}

// ParseGlobSpec decomposes raw into a GlobSpec. maxDepth is the
// max_dir_search_depth configured for plain/wildcard-dir patterns; it is
// ignored for "**" patterns, which always search the full sub-tree.
func ParseGlobSpec(raw string, maxDepth int) GlobSpec {
	segments := strings.Split(filepath.ToSlash(raw), "/")
	for i, seg := range segments {
		if seg == "**" {
			prefix := staticPrefix(segments[:i])
			pattern := strings.Join(segments[i+1:], "/")
			return GlobSpec{Raw: raw, Kind: KindMultiWildcard, StaticPrefix: prefix, Pattern: pattern}
		}
	}
	// Find the deepest prefix with no glob metacharacters.
	lastStatic := 0
	for i, seg := range segments[:len(segments)-1] {
		if hasMeta(seg) {
			break
		}
		lastStatic = i + 1
	}
	prefix := staticPrefix(segments[:lastStatic])
	pattern := strings.Join(segments[lastStatic:], "/")
	kind := KindPlain
	if lastStatic < len(segments)-1 {
		kind = KindWildcardDir
	}
	return GlobSpec{Raw: raw, Kind: kind, StaticPrefix: prefix, Pattern: pattern, MaxDepth: maxDepth}
}

// staticPrefix joins the leading static segments back into a directory
// path; the single empty segment of a path rooted at "/" joins to "/".
func staticPrefix(segs []string) string {
	if len(segs) == 1 && segs[0] == "" {
		return "/"
	}
	return strings.Join(segs, "/")
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// Match reports whether path, relative to spec.StaticPrefix, satisfies
// the glob pattern. Multi-level wildcards use a path-name-insensitive
// (case-folded) full subtree match; plain/wildcard-dir patterns match
// segment-by-segment with filepath.Match.
func (g GlobSpec) Match(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if g.Kind == KindMultiWildcard {
		return matchDoubleStar(g.Pattern, relPath)
	}
	patSegs := strings.Split(g.Pattern, "/")
	pathSegs := strings.Split(relPath, "/")
	if len(patSegs) != len(pathSegs) {
		return false
	}
	for i, p := range patSegs {
		ok, err := filepath.Match(p, pathSegs[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// matchDoubleStar matches pattern (which may itself contain further glob
// segments after the "**") against path case-insensitively, trying every
// possible split point for the "**" component.
func matchDoubleStar(pattern, path string) bool {
	pattern = strings.ToLower(pattern)
	path = strings.ToLower(path)
	if pattern == "" {
		return true
	}
	patSegs := strings.Split(pattern, "/")
	pathSegs := strings.Split(path, "/")
	if len(pathSegs) < len(patSegs) {
		return false
	}
	// The "**" consumed the directory depth; only the trailing fixed
	// segments (the file-pattern tail) need to line up against the last
	// len(patSegs) path segments.
	tail := pathSegs[len(pathSegs)-len(patSegs):]
	for i, p := range patSegs {
		ok, err := filepath.Match(p, tail[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Depth returns the directory depth of relPath (number of path
// separators), used to enforce MaxDepth during a directory walk.
func Depth(relPath string) int {
	relPath = filepath.ToSlash(strings.Trim(relPath, "/"))
	if relPath == "" {
		return 0
	}
	return strings.Count(relPath, "/")
}
