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

package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/util/assert"
)

func writeTemp(t *testing.T, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}

	return path
}

func TestLoadAssignsRolesAndOrder(t *testing.T) {
	dir := t.TempDir()

	generic := writeTemp(t, dir, "generic.kll", "g = 1;")
	base := writeTemp(t, dir, "base.kll", "S1 : U\"A\";")
	partial1a := writeTemp(t, dir, "p1a.kll", "S2 : U\"B\";")
	partial1b := writeTemp(t, dir, "p1b.kll", "S3 : U\"C\";")
	partial2 := writeTemp(t, dir, "p2.kll", "S4 : U\"D\";")

	set, err := Load(
		[]string{generic},
		nil,
		[]string{base},
		nil,
		[][]string{{partial1a, partial1b}, {partial2}},
		nil,
	)
	assert.True(t, err == nil, "unexpected error")

	assert.Equal(t, 1, len(set.Generic))
	assert.Equal(t, ast.RoleGeneric, set.Generic[0].Role)
	assert.Equal(t, 0, set.Generic[0].Group)

	assert.Equal(t, 1, len(set.BaseMap))
	assert.Equal(t, ast.RoleBaseMap, set.BaseMap[0].Role)

	assert.Equal(t, 2, len(set.PartialMaps))
	assert.Equal(t, 2, len(set.PartialMaps[0]))
	assert.Equal(t, 1, set.PartialMaps[0][0].Group)
	assert.Equal(t, 0, set.PartialMaps[0][0].Order)
	assert.Equal(t, 1, set.PartialMaps[0][1].Order)
	assert.Equal(t, 2, set.PartialMaps[1][0].Group)

	all := set.All()
	assert.Equal(t, 5, len(all))
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load([]string{"/no/such/file.kll"}, nil, nil, nil, nil, nil)
	assert.True(t, err != nil, "expected an error for a missing file")
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "a.kll", "x = 1;")

	assert.True(t, Exists(path), "expected existing file to report true")
	assert.True(t, !Exists(filepath.Join(dir, "missing.kll")), "expected missing file to report false")
	assert.True(t, !Exists(dir), "expected a directory to report false")
}
