// Copyright KLL Compiler Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package file reads KLL source files from disk and tags each one with the
// role and load order it will carry through the rest of the pipeline (spec
// §2, §6). A Record is the unit every later stage ("pkg/kllcontext" in
// particular) consumes in place of a bare filename.
package file

import (
	"fmt"
	"os"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/source"
)

// Record pairs a loaded source file with the role it plays in the merge
// order (spec §4.4) and its 0-based position within that role's (or that
// partial layer's) own file list, which is what deterministic traversal
// (spec §4.5) sorts on.
type Record struct {
	File  *source.File
	Role  ast.Role
	Group int // partial-layer index; 0 for every non-partial role
	Order int // 0-based position within this Role+Group's own file list
}

// Set is every file the compiler was asked to load, already grouped by role.
// PartialMaps holds one slice per layer, in the ascending order the request
// declared them (layer 1, layer 2, ...); layer 0 is BaseMap+DefaultMap, which
// is a merge-stage fact rather than a file-stage one (spec §4.4).
type Set struct {
	Generic       []*Record
	Configuration []*Record
	BaseMap       []*Record
	DefaultMap    []*Record
	PartialMaps   [][]*Record
	Merge         []*Record
}

// All returns every record across every role, in a stable order convenient
// for logging a load summary; it is not the merge traversal order.
func (s *Set) All() []*Record {
	all := make([]*Record, 0)
	all = append(all, s.Generic...)
	all = append(all, s.Configuration...)
	all = append(all, s.BaseMap...)
	all = append(all, s.DefaultMap...)

	for _, group := range s.PartialMaps {
		all = append(all, group...)
	}

	all = append(all, s.Merge...)

	return all
}

// Load reads every file named across the six role groupings of a compile
// request (spec §6 CompileRequest) and returns them tagged by role and load
// order. It fails fast on the first unreadable file, mirroring the teacher's
// own ReadFiles.
func Load(generic, config, base, deflt []string, partialGroups [][]string, merge []string) (*Set, error) {
	var err error

	set := &Set{}

	if set.Generic, err = loadRole(generic, ast.RoleGeneric, 0); err != nil {
		return nil, err
	}

	if set.Configuration, err = loadRole(config, ast.RoleConfiguration, 0); err != nil {
		return nil, err
	}

	if set.BaseMap, err = loadRole(base, ast.RoleBaseMap, 0); err != nil {
		return nil, err
	}

	if set.DefaultMap, err = loadRole(deflt, ast.RoleDefaultMap, 0); err != nil {
		return nil, err
	}

	set.PartialMaps = make([][]*Record, len(partialGroups))

	for i, paths := range partialGroups {
		records, err := loadRole(paths, ast.RolePartialMap, i+1)
		if err != nil {
			return nil, err
		}

		set.PartialMaps[i] = records
	}

	if set.Merge, err = loadRole(merge, ast.RoleMerge, 0); err != nil {
		return nil, err
	}

	return set, nil
}

func loadRole(paths []string, role ast.Role, group int) ([]*Record, error) {
	records := make([]*Record, len(paths))

	for i, p := range paths {
		f, err := source.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s file %q: %w", role, p, err)
		}

		records[i] = &Record{File: f, Role: role, Group: group, Order: i}
	}

	return records, nil
}

// Exists reports whether a path names an existing file that is not a
// directory. Load does not call it: a missing or unreadable path surfaces as
// the read error Load returns.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
