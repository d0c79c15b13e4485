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
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/colstore/coredb/pkg/store"
)

var openCmd = &cobra.Command{
	Use:   "open [flags] path",
	Short: "open a store, optionally materialising a table from a schema.",
	Long: `Open a Group at path and, if --schema and --table are given,
	materialise a table from the JSON column schema so its row count can be
	reported. Since persistence is out of scope, every invocation starts
	from an empty store; this command exists to exercise Group/Table
	construction from the command line.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}

		configureLogging(cmd)
		runOpen(args[0], GetString(cmd, "schema"), GetString(cmd, "table"), GetFlag(cmd, "verbose"))
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().String("schema", "", "JSON column schema file for --table")
	openCmd.Flags().String("table", "", "name of the table to materialise from --schema")
}

func runOpen(path, schemaFile, table string, verbose bool) {
	var logger log.FieldLogger = log.StandardLogger()

	if !verbose {
		l := log.New()
		l.SetLevel(log.WarnLevel)
		logger = l
	}

	group := store.Open(path, nil, logger)
	fmt.Printf("opened %q\n", path)

	if schemaFile == "" {
		return
	}

	if table == "" {
		fmt.Println("--schema given without --table")
		os.Exit(1)
	}

	raw, err := os.ReadFile(schemaFile)
	exitOnError(err, 2)

	var cols []columnJSON
	exitOnError(json.Unmarshal(raw, &cols), 3)

	spec, err := specFromJSON(cols)
	exitOnError(err, 3)

	t, err := group.GetTable(table, spec)
	exitOnError(err, 4)

	fmt.Printf("table %q: %d column(s), %d row(s)\n", table, spec.ColumnCount(), t.Rows())
}
