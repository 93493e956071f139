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

import "path/filepath"

// Blacklist holds the three independent exclusion lists named in
// spec.md §4.3: absolute directory paths, wildcarded directory paths,
// and file-name patterns. A file is excluded iff any list matches.
type Blacklist struct {
	AbsoluteDirs    []string
	WildcardDirs    []string
	FileNamePattern []string
}

// Excludes reports whether path (its containing directory and basename)
// is excluded by any of the three lists.
func (b Blacklist) Excludes(path string) bool {
	dir, base := filepath.Split(path)
	dir = filepath.Clean(dir)
	for _, d := range b.AbsoluteDirs {
		if dir == filepath.Clean(d) {
			return true
		}
	}
	for _, pat := range b.WildcardDirs {
		if ok, _ := filepath.Match(pat, dir); ok {
			return true
		}
	}
	for _, pat := range b.FileNamePattern {
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
	}
	return false
}
