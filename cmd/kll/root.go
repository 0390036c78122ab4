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
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is set at link time (-ldflags "-X main.Version=..."); when it is
// empty, --version prints the module version from the build info instead
// (mirrors the teacher's cmd.Version convention).
var Version string

var rootCmd = &cobra.Command{
	Use:   "kll",
	Short: "A compiler for the KLL keyboard layout language.",
	Long:  "A compiler for the KLL keyboard layout language: tokenize, parse, merge, finalize and emit.",
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "version") {
			fmt.Print("kll ")

			if Version != "" {
				fmt.Printf("%s", Version)
			} else if info, ok := debug.ReadBuildInfo(); ok {
				fmt.Printf("%s", info.Main.Version)
			} else {
				fmt.Printf("(unknown version)")
			}

			fmt.Println()

			return
		}

		_ = cmd.Help()
	},
}

// Execute runs rootCmd (subcommands attach themselves in their own init
// functions); called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "Report the version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
}

func configureLogging(cmd *cobra.Command) {
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
}

// flagSet names cmd's underlying *pflag.FlagSet explicitly, since cobra
// re-exports pflag's array/repeatable flag kinds (StringArray, among
// others) that plain "flag" has no equivalent of.
func flagSet(cmd *cobra.Command) *pflag.FlagSet {
	return cmd.Flags()
}

// GetFlag gets an expected bool flag, exiting with an internal error if the
// flag was never registered (a programmer error, not a user one).
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := flagSet(cmd).GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string flag.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := flagSet(cmd).GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetStringArray gets an expected repeatable string flag.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := flagSet(cmd).GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetFloat64 gets an expected float64 flag.
func GetFloat64(cmd *cobra.Command, flag string) float64 {
	r, err := flagSet(cmd).GetFloat64(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}
