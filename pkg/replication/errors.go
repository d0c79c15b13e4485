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
package replication

import "fmt"

// VersionError reports that History.Append was asked to record a version
// out of sequence.
type VersionError struct {
	Want VersionType
	Got  VersionType
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("replication: history append out of sequence: want version %d, got %d", e.Want, e.Got)
}

// StateError reports that a Replication method was called in the wrong
// phase of the transaction lifecycle documented on Replication.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("replication: %s: %s", e.Op, e.Reason)
}
