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

package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

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

func TestCompileProducesJSONByDefault(t *testing.T) {
	dir := t.TempDir()
	base := writeTemp(t, dir, "base.kll", `S0x04 : U"A";`)

	result, err := Compile(context.Background(), CompileRequest{BaseFiles: []string{base}})
	assert.True(t, err == nil, "unexpected compile error")
	assert.True(t, len(result.Output) > 0, "expected non-empty JSON output")
}

func TestCompileKLLEmitterRoundTrips(t *testing.T) {
	dir := t.TempDir()
	base := writeTemp(t, dir, "base.kll", `S0x04 : U"A";`)

	result, err := Compile(context.Background(), CompileRequest{BaseFiles: []string{base}, EmitterName: "kll"})
	assert.True(t, err == nil, "unexpected compile error")
	assert.True(t, len(result.Output) > 0, "expected non-empty kll output")
}

func TestCompileUnknownEmitterErrors(t *testing.T) {
	dir := t.TempDir()
	base := writeTemp(t, dir, "base.kll", `S0x04 : U"A";`)

	_, err := Compile(context.Background(), CompileRequest{BaseFiles: []string{base}, EmitterName: "bogus"})
	assert.True(t, err != nil, "expected an error for an unknown emitter")
}

func TestCompileCancelledContextIsReported(t *testing.T) {
	dir := t.TempDir()
	base := writeTemp(t, dir, "base.kll", `S0x04 : U"A";`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compile(ctx, CompileRequest{BaseFiles: []string{base}})
	assert.True(t, err != nil, "expected cancellation to be reported as an error")
}

func TestCompileMissingFileIsReportedAsError(t *testing.T) {
	_, err := Compile(context.Background(), CompileRequest{BaseFiles: []string{"/no/such/file.kll"}})
	assert.True(t, err != nil, "expected a missing file to be reported as an error")
}
