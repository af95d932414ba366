/*
 * Guard - unit tests.
 *
 * Copyright 2026 Marco Confalonieri.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package gitops

import (
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testThresholds() Thresholds {
	return Thresholds{
		WarningFilesPct: 8, ErrorFilesPct: 15,
		WarningLinesPct: 3, ErrorLinesPct: 5,
	}
}

// Test_Thresholds_Validate tests Validate().
func Test_Thresholds_Validate(t *testing.T) {
	type testCase struct {
		name          string
		delta         Delta
		expectedLevel log.Level
		expectedMsg   string
	}

	run := func(t *testing.T, tc testCase) {
		hook := logtest.NewGlobal()
		defer hook.Reset()
		log.SetLevel(log.DebugLevel)

		testThresholds().Validate(tc.delta)

		require.NotEmpty(t, hook.Entries)
		found := false
		for _, entry := range hook.Entries {
			if entry.Level == tc.expectedLevel {
				assert.Contains(t, entry.Message, tc.expectedMsg)
				found = true
			}
		}
		assert.True(t, found, "no %s entry logged", tc.expectedLevel)
	}

	testCases := []testCase{
		{
			name: "small change stays silent",
			delta: Delta{
				ChangedFiles: 1, ChangedLines: 2,
				ExistingFiles: 100, ExistingLines: 1000,
			},
			expectedLevel: log.DebugLevel,
			expectedMsg:   "modified",
		},
		{
			name: "lines above the warning threshold",
			delta: Delta{
				ChangedFiles: 1, ChangedLines: 40,
				ExistingFiles: 100, ExistingLines: 1000,
			},
			expectedLevel: log.WarnLevel,
			expectedMsg:   "warning threshold",
		},
		{
			name: "lines above the error threshold",
			delta: Delta{
				ChangedFiles: 1, ChangedLines: 60,
				ExistingFiles: 100, ExistingLines: 1000,
			},
			expectedLevel: log.ErrorLevel,
			expectedMsg:   "CAUTION",
		},
		{
			name: "files above the error threshold",
			delta: Delta{
				ChangedFiles: 20, ChangedLines: 10,
				ExistingFiles: 100, ExistingLines: 1000,
			},
			expectedLevel: log.ErrorLevel,
			expectedMsg:   "CAUTION",
		},
		{
			name: "empty baseline skips the check",
			delta: Delta{
				ChangedFiles: 500, ChangedLines: 5000,
				ExistingFiles: 0, ExistingLines: 0,
			},
			expectedLevel: log.DebugLevel,
			expectedMsg:   "skipping delta validation",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			run(t, tc)
		})
	}
}
