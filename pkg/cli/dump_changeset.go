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

	"github.com/colstore/coredb/pkg/changeset"
)

var dumpChangesetCmd = &cobra.Command{
	Use:   "dump-changeset [flags] changeset_file",
	Short: "decode a wire-format changeset and print its instructions.",
	Long: `Read a file containing a spec.md §6.2 wire-format changeset and
	print each decoded instruction as JSON, in order, one per line.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}

		configureLogging(cmd)
		runDumpChangeset(args[0])
	},
}

func init() {
	rootCmd.AddCommand(dumpChangesetCmd)
}

// instructionJSON is the printable view of one decoded instruction: its
// tag name alongside whatever fields its concrete type carries.
type instructionJSON struct {
	Tag  string              `json:"tag"`
	Body changeset.Instruction `json:"body"`
}

func runDumpChangeset(filename string) {
	raw, err := os.ReadFile(filename)
	exitOnError(err, 2)

	instrs, err := changeset.Decode(raw)
	exitOnError(err, 3)

	for _, instr := range instrs {
		out, err := json.Marshal(instructionJSON{
			Tag:  tagName(instr.Tag()),
			Body: instr,
		})
		exitOnError(err, 4)

		fmt.Println(string(out))
	}
}

func tagName(t changeset.Tag) string {
	switch t {
	case changeset.TagInsertGroupLevelTable:
		return "AddTable"
	case changeset.TagEraseGroupLevelTable:
		return "EraseTable"
	case changeset.TagRenameGroupLevelTable:
		return "RenameTable"
	case changeset.TagSet:
		return "Update"
	case changeset.TagSetUnique:
		return "UpdateUnique"
	case changeset.TagSetDefault:
		return "UpdateDefault"
	case changeset.TagAddInteger:
		return "AddInteger"
	case changeset.TagClearTable:
		return "ClearTable"
	case changeset.TagInsertColumn:
		return "AddColumn"
	case changeset.TagEraseColumn:
		return "EraseColumn"
	case changeset.TagRenameColumn:
		return "RenameColumn"
	case changeset.TagAddSearchIndex:
		return "AddSearchIndex"
	case changeset.TagRemoveSearchIndex:
		return "RemoveSearchIndex"
	case changeset.TagSetLinkType:
		return "SetLinkType"
	case changeset.TagArrayInsert:
		return "ArrayInsert"
	case changeset.TagArrayErase:
		return "ArrayErase"
	case changeset.TagArrayMove:
		return "ArrayMove"
	case changeset.TagClear:
		return "Clear"
	case changeset.TagSetInsert:
		return "SetInsert"
	case changeset.TagSetErase:
		return "SetErase"
	case changeset.TagCreateObject:
		return "CreateObject"
	case changeset.TagEraseObject:
		return "EraseObject"
	default:
		return fmt.Sprintf("tag(%d)", t)
	}
}
