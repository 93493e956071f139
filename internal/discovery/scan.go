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
)

// Scan walks spec.StaticPrefix up to spec.MaxDepth (0 means unlimited for
// "**" patterns, already reflected in spec.MaxDepth by ParseGlobSpec) and
// returns every regular file matching spec.Pattern and not excluded by bl.
func Scan(spec GlobSpec, bl Blacklist) ([]string, error) {
	root := spec.StaticPrefix
	if root == "" {
		root = "."
	}
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if info.IsDir() {
			if path != root && spec.MaxDepth > 0 && Depth(rel) > spec.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if spec.MaxDepth > 0 && Depth(rel) > spec.MaxDepth {
			return nil
		}
		if !spec.Match(rel) {
			return nil
		}
		if bl.Excludes(path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
