// Copyright Consensys Software Inc.
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
package cli

import (
	"fmt"
	"os"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
)

var dumpSchemaCmd = &cobra.Command{
	Use:   "dump-schema [flags] schema_file",
	Short: "parse a JSON column schema and print it back out, normalised.",
	Long: `Read a JSON-encoded column schema (the same shape the open
	command's --schema flag accepts) and print it back out, confirming it
	parses and round-trips through store.Spec.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}

		configureLogging(cmd)

		compact := GetFlag(cmd, "compact")
		if !cmd.Flags().Changed("compact") {
			compact = !isOutputTerminal()
		}

		runDumpSchema(args[0], compact)
	},
}

func init() {
	rootCmd.AddCommand(dumpSchemaCmd)
	dumpSchemaCmd.Flags().Bool("compact", false, "print without indentation")
}

func runDumpSchema(filename string, compact bool) {
	raw, err := os.ReadFile(filename)
	exitOnError(err, 2)

	var cols []columnJSON
	exitOnError(json.Unmarshal(raw, &cols), 3)

	spec, err := specFromJSON(cols)
	exitOnError(err, 3)

	out, err := marshalJSON(specToJSON(spec), compact)
	exitOnError(err, 4)

	fmt.Println(string(out))
}

func marshalJSON(v any, compact bool) ([]byte, error) {
	if compact {
		return json.Marshal(v)
	}

	return json.MarshalIndent(v, "", "  ")
}
