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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kll-tools/kll-compiler/pkg/compiler"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags]",
	Short: "Compile KLL source files into a merged layout document.",
	Long: `Compile tokenizes, parses, organizes, merges and finalizes the given KLL
source files, then renders the result with the chosen emitter.`,
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)

		req := compiler.CompileRequest{
			GenericFiles:  GetStringArray(cmd, "generic"),
			ConfigFiles:   GetStringArray(cmd, "config"),
			BaseFiles:     GetStringArray(cmd, "base"),
			DefaultFiles:  GetStringArray(cmd, "default"),
			PartialGroups: partialGroups(GetStringArray(cmd, "partial")),
			MergeFiles:    GetStringArray(cmd, "merge"),
			EmitterName:   GetString(cmd, "emitter"),
			OutputPath:    GetString(cmd, "json-output"),
			PixelPitchMM:  GetFloat64(cmd, "pixel-pitch"),
		}

		result, err := compiler.Compile(context.Background(), req)
		if err != nil {
			reportError(err)
			return
		}

		if req.OutputPath == "" {
			fmt.Println(string(result.Output))
		}

		for _, w := range result.Warnings {
			fmt.Fprintln(os.Stderr, w.String())
		}
	},
}

// partialGroups splits each `--partial` occurrence on commas into its own
// layer (§6's "partial_groups: [[path]]", one inner list per PartialMap
// layer); `--partial a.kll,b.kll --partial c.kll` declares two layers, the
// first containing two files.
func partialGroups(occurrences []string) [][]string {
	groups := make([][]string, 0, len(occurrences))

	for _, occ := range occurrences {
		groups = append(groups, strings.Split(occ, ","))
	}

	return groups
}

// reportError renders a compile failure and exits with the §6 exit code:
// 1 for an accumulated user error (*kllerr.List or Cancelled), 2 for
// anything else (an internal/programmer error).
func reportError(err error) {
	width := 0
	if term.IsTerminal(int(os.Stderr.Fd())) {
		if w, _, werr := term.GetSize(int(os.Stderr.Fd())); werr == nil {
			width = w
		}
	}

	var list *kllerr.List
	if errors.As(err, &list) {
		for _, e := range list.Errors {
			printWrapped(e.Error(), width)
		}

		os.Exit(1)
	}

	if errors.Is(err, kllerr.Cancelled) {
		printWrapped(err.Error(), width)
		os.Exit(1)
	}

	printWrapped(err.Error(), width)
	os.Exit(2)
}

func printWrapped(msg string, width int) {
	if width <= 0 {
		fmt.Fprintln(os.Stderr, msg)
		return
	}

	for _, line := range strings.Split(msg, "\n") {
		for len(line) > width {
			fmt.Fprintln(os.Stderr, line[:width])
			line = line[width:]
		}

		fmt.Fprintln(os.Stderr, line)
	}
}

func init() {
	compileCmd.Flags().StringArray("generic", nil, "generic-role KLL file (repeatable)")
	compileCmd.Flags().StringArray("config", nil, "configuration-role KLL file (repeatable)")
	compileCmd.Flags().StringArray("base", nil, "BaseMap-role KLL file (repeatable)")
	compileCmd.Flags().StringArray("default", nil, "DefaultMap-role KLL file (repeatable)")
	compileCmd.Flags().StringArray("partial", nil,
		"comma-separated PartialMap layer file list; repeat once per layer")
	compileCmd.Flags().StringArray("merge", nil, "explicit Merge-role KLL file (repeatable)")
	compileCmd.Flags().String("emitter", "json", "output emitter: json or kll")
	compileCmd.Flags().String("json-output", "", "path to write the emitted document to (stdout if empty)")
	compileCmd.Flags().Float64("pixel-pitch", 0, "pixel display pitch in millimeters (defaults to 19.05mm)")

	rootCmd.AddCommand(compileCmd)
}
