/*
 * Guard - delta thresholds against runaway regenerations.
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
	log "github.com/sirupsen/logrus"
)

// Delta is the size of the change in the last commit, compared to the
// pre-existing checkout.
type Delta struct {
	// ChangedFiles is the number of files touched by the commit.
	ChangedFiles int
	// ChangedLines is the total of added and removed lines.
	ChangedLines int
	// ExistingFiles is the number of files before the regeneration.
	ExistingFiles int
	// ExistingLines is the number of lines before the regeneration.
	ExistingLines int
}

// Thresholds holds the warning and error percentages for files and lines.
type Thresholds struct {
	WarningFilesPct float64
	ErrorFilesPct   float64
	WarningLinesPct float64
	ErrorLinesPct   float64
}

// validateDelta checks one changed-vs-existing ratio against its thresholds.
// An empty baseline skips the check, as any change would be infinite.
func validateDelta(changed, existing int, warning, errThreshold float64, what string) {
	if existing == 0 {
		log.Debugf("No existing %s, skipping delta validation", what)
		return
	}

	pct := 100.0 * float64(changed) / float64(existing)
	switch {
	case pct > errThreshold:
		log.Errorf("CAUTION: %.1f%% of %s modified (%d/%d) is above the error threshold of %.1f%%",
			pct, what, changed, existing, errThreshold)
	case pct > warning:
		log.Warnf("%.1f%% of %s modified (%d/%d) is above the warning threshold of %.1f%%",
			pct, what, changed, existing, warning)
	default:
		log.Debugf("%.1f%% of %s modified (%d/%d)", pct, what, changed, existing)
	}
}

// Validate checks the files and lines deltas against the thresholds. It only
// warns the operator, who still decides interactively whether to publish.
func (t Thresholds) Validate(delta Delta) {
	validateDelta(delta.ChangedFiles, delta.ExistingFiles,
		t.WarningFilesPct, t.ErrorFilesPct, "files")
	validateDelta(delta.ChangedLines, delta.ExistingLines,
		t.WarningLinesPct, t.ErrorLinesPct, "lines")
}
