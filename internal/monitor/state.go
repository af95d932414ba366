/*
 * Monitor - state file for the periodic zone consistency check.
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
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

// Check statuses, following the Nagios plugin convention.
const (
	StatusOK       = 0
	StatusWarning  = 1
	StatusCritical = 2
)

// State is the persisted result of the last consistency check.
type State struct {
	ExitCode  int       `json:"exit_code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Load reads the state file. A missing or corrupted file returns an error so
// that the caller can treat the state as stale.
func Load(path string) (State, error) {
	var state State
	data, err := os.ReadFile(path)
	if err != nil {
		return state, fmt.Errorf("cannot read state file: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("cannot parse state file: %w", err)
	}
	return state, nil
}

// Save writes the state file atomically.
func (s State) Save(path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("cannot encode state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cannot write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("cannot replace state file: %w", err)
	}
	return nil
}

// ShouldRun reports whether a new check is due. A check runs when no valid
// state exists, when the last successful check is older than the run
// interval, or when the last failed check is older than the retry interval.
func ShouldRun(path string, runEvery, retryOnFailure time.Duration) bool {
	state, err := Load(path)
	if err != nil {
		log.Debugf("No valid state at %s, check is due: %v", path, err)
		return true
	}

	age := time.Since(state.Timestamp)
	interval := runEvery
	if state.ExitCode != StatusOK {
		interval = retryOnFailure
	}
	if age >= interval {
		return true
	}

	log.Debugf("Last check %s ago with status %d, next one in %s",
		age.Round(time.Second), state.ExitCode, (interval - age).Round(time.Second))
	return false
}

// Evaluate maps the outcome of a check run to a monitoring state. An empty
// diff means the repository is in sync. Uncommitted differences are a
// warning while NetBox saw recent edits, as an operator run may be in
// flight, and critical otherwise.
func Evaluate(runErr error, changes bool, recentEdits bool) State {
	state := State{Timestamp: time.Now()}
	switch {
	case runErr != nil:
		state.ExitCode = StatusCritical
		state.Message = fmt.Sprintf("Failed to generate DNS snippets: %v", runErr)
	case !changes:
		state.ExitCode = StatusOK
		state.Message = "DNS snippets are up to date with NetBox"
	case recentEdits:
		state.ExitCode = StatusWarning
		state.Message = "Uncommitted DNS snippet changes, but NetBox was edited recently"
	default:
		state.ExitCode = StatusCritical
		state.Message = "Uncommitted DNS snippet changes and no recent NetBox edits"
	}
	return state
}
