/*
 * dns-snippets - generates DNS zonefile snippets from NetBox data and
 * manages their publication to the snippet repository.
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
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"netbox-dns-snippets/internal/config"
	"netbox-dns-snippets/internal/gitops"
	"netbox-dns-snippets/internal/metrics"
	"netbox-dns-snippets/internal/monitor"
	"netbox-dns-snippets/internal/netbox"
	"netbox-dns-snippets/internal/records"
)

// Exit codes reported to the caller.
const (
	ExitOK           = 0
	ExitError        = 2
	ExitAborted      = 3
	ExitPushError    = 4
	ExitSHA1Mismatch = 5
	ExitNoChanges    = 99
)

const defaultConfigPath = "/etc/netbox/dns.cfg.yaml"

// commitOptions holds the flags of the commit subcommand.
type commitOptions struct {
	batch     bool
	check     bool
	keepFiles bool
	message   string
}

// confirmFunc asks the operator whether to proceed. Batch runs inject an
// auto-confirming implementation.
type confirmFunc func(prompt string) bool

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [arguments]\n\n", os.Args[0])
	fmt.Fprint(out, "Commands:\n")
	fmt.Fprint(out, "  commit [-b] [-check] [-keep-files] <message>\n")
	fmt.Fprint(out, "        generate the snippets and commit them to a temporary clone\n")
	fmt.Fprint(out, "  push <path> <sha1>\n")
	fmt.Fprint(out, "        push a previously committed clone to the remote\n\n")
	fmt.Fprint(out, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "configuration file path")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorf("Invalid configuration: %v", err)
		os.Exit(ExitError)
	}

	var code int
	switch flag.Arg(0) {
	case "commit":
		code = commitCommand(cfg, flag.Args()[1:])
	case "push":
		code = pushCommand(cfg, flag.Args()[1:])
	default:
		flag.Usage()
		code = ExitError
	}
	writeMetrics(cfg)
	os.Exit(code)
}

// writeMetrics dumps the run metrics for the node_exporter textfile
// collector, when configured.
func writeMetrics(cfg *config.Config) {
	if cfg == nil || cfg.MetricsTextfile == "" {
		return
	}
	if err := metrics.GetOpenMetricsInstance().WriteTextfile(cfg.MetricsTextfile); err != nil {
		log.Warnf("Cannot write metrics textfile: %v", err)
	}
}

func commitCommand(cfg *config.Config, args []string) int {
	flags := flag.NewFlagSet("commit", flag.ExitOnError)
	opts := commitOptions{}
	flags.BoolVar(&opts.batch, "b", false, "batch mode, do not prompt for confirmation")
	flags.BoolVar(&opts.batch, "batch", false, "batch mode, do not prompt for confirmation")
	flags.BoolVar(&opts.check, "check", false, "consistency check mode, updates the state file")
	flags.BoolVar(&opts.keepFiles, "keep-files", false, "keep the generated files, committing an empty commit if needed")
	if err := flags.Parse(args); err != nil {
		return ExitError
	}
	if flags.NArg() != 1 {
		log.Error("The commit command requires exactly one argument: the commit message")
		return ExitError
	}
	opts.message = flags.Arg(0)
	if opts.check {
		opts.batch = true
	}

	confirm := askConfirmation
	if opts.batch {
		confirm = func(string) bool { return true }
	}

	if opts.check && !monitor.ShouldRun(cfg.StateFile, cfg.GetRunEvery(), cfg.GetRetryOnFailure()) {
		log.Info("Consistency check not due yet")
		return ExitOK
	}

	code, err := runCommit(cfg, opts, confirm, os.Stdout)
	if err != nil {
		log.Errorf("Failed to generate DNS snippets: %v", err)
	}
	if opts.check {
		return saveCheckState(cfg, code, err)
	}
	return code
}

// runCommit is the generate-validate-commit workflow. On failure the
// generated tree is left on disk for inspection, except in check mode.
// Machine-readable batch output goes to out.
func runCommit(cfg *config.Config, opts commitOptions, confirm confirmFunc, out io.Writer) (int, error) {
	tmpDir, err := os.MkdirTemp("", gitops.TmpDirPrefix)
	if err != nil {
		return ExitError, fmt.Errorf("cannot create temporary directory: %w", err)
	}
	if opts.check {
		defer os.RemoveAll(tmpDir)
	}

	repo, err := gitops.Clone(cfg.RepoPath, tmpDir)
	if err != nil {
		return ExitError, err
	}

	existingFiles, existingLines, err := gitops.WorkingTreeStats(tmpDir)
	if err != nil {
		return ExitError, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetNetboxTimeout())
	defer cancel()

	client := netbox.NewClient(cfg.NetboxURL, cfg.NetboxToken, cfg.GetNetboxTimeout())
	snapshot := netbox.NewSnapshot(client)
	if err := snapshot.Collect(ctx); err != nil {
		return ExitError, err
	}

	zones := records.NewZones(
		records.NewDeriver(cfg.InternalSuffix, cfg.SplitLabels), cfg.MinRecords)
	zones.Generate(snapshot)

	if err := repo.RemoveSnippets(); err != nil {
		return ExitError, err
	}
	if err := zones.WriteSnippets(tmpDir); err != nil {
		return ExitError, err
	}

	identity := gitops.Identity{Name: cfg.GitUserName, Email: cfg.GitUserEmail}
	sha1, err := repo.CommitAll(opts.message, identity, opts.keepFiles)
	if err != nil {
		return ExitError, err
	}
	if sha1 == "" {
		if opts.batch {
			writeNoChanges(out)
		}
		if !opts.keepFiles && !opts.check {
			os.RemoveAll(tmpDir)
		}
		return ExitNoChanges, nil
	}

	changedFiles, changedLines, err := repo.DiffStats()
	if err != nil {
		return ExitError, err
	}

	if !opts.check {
		diff, err := repo.Show()
		if err != nil {
			return ExitError, err
		}
		fmt.Fprintln(out, diff)
	}

	thresholds := gitops.Thresholds{
		WarningFilesPct: cfg.WarningFilesPct,
		ErrorFilesPct:   cfg.ErrorFilesPct,
		WarningLinesPct: cfg.WarningLinesPct,
		ErrorLinesPct:   cfg.ErrorLinesPct,
	}
	thresholds.Validate(gitops.Delta{
		ChangedFiles:  changedFiles,
		ChangedLines:  changedLines,
		ExistingFiles: existingFiles,
		ExistingLines: existingLines,
	})

	if opts.check {
		// The check never pushes; the state file carries the outcome.
		return ExitOK, nil
	}

	if opts.batch {
		writeMetadata(out, tmpDir, sha1, changedFiles, changedLines)
		return ExitOK, nil
	}

	if !confirm("OK to push the changes to the DNS repository?") {
		log.Infof("Aborting, generated snippets are left in %s", tmpDir)
		return ExitAborted, nil
	}

	if err := repo.Push(sha1); err != nil {
		log.Errorf("Failed to push, generated snippets are left in %s: %v", tmpDir, err)
		if err == gitops.ErrSHA1Mismatch {
			return ExitSHA1Mismatch, nil
		}
		return ExitPushError, nil
	}
	if !opts.keepFiles {
		os.RemoveAll(tmpDir)
	}
	return ExitOK, nil
}

// writeMetadata emits the machine-readable summary consumed by the batch
// caller, which is responsible for the push.
func writeMetadata(out io.Writer, path, sha1 string, changedFiles, changedLines int) {
	meta := struct {
		Path         string `json:"path"`
		SHA1         string `json:"sha1"`
		ChangedFiles int    `json:"changed_files"`
		ChangedLines int    `json:"changed_lines"`
	}{Path: path, SHA1: sha1, ChangedFiles: changedFiles, ChangedLines: changedLines}
	data, err := json.Marshal(meta)
	if err != nil {
		log.Errorf("Cannot encode metadata: %v", err)
		return
	}
	fmt.Fprintf(out, "METADATA: %s\n", data)
}

// writeNoChanges tells the batch caller that the working tree already
// matches NetBox and there is nothing to push.
func writeNoChanges(out io.Writer) {
	fmt.Fprintln(out, `METADATA: {"no_changes": true}`)
}

// saveCheckState records the outcome of a check run in the state file and
// maps it to the process exit code.
func saveCheckState(cfg *config.Config, code int, runErr error) int {
	changes := runErr == nil && code == ExitOK
	recent := false
	if changes {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.GetNetboxTimeout())
		defer cancel()
		client := netbox.NewClient(cfg.NetboxURL, cfg.NetboxToken, cfg.GetNetboxTimeout())
		since := time.Now().Add(-cfg.GetAllowedChangesWindow())
		edited, err := client.ChangedSince(ctx, since)
		if err != nil {
			log.Warnf("Cannot check for recent NetBox edits: %v", err)
		}
		recent = edited
	}

	state := monitor.Evaluate(runErr, changes, recent)
	log.Infof("Check result: %s", state.Message)
	if err := state.Save(cfg.StateFile); err != nil {
		log.Errorf("Cannot save state file: %v", err)
		return ExitError
	}
	if runErr != nil {
		return ExitError
	}
	return ExitOK
}

func pushCommand(cfg *config.Config, args []string) int {
	flags := flag.NewFlagSet("push", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		return ExitError
	}
	if flags.NArg() != 2 {
		log.Error("The push command requires two arguments: the checkout path and the SHA1 to push")
		return ExitError
	}
	path, sha1 := flags.Arg(0), flags.Arg(1)

	if !strings.HasPrefix(filepath.Base(path), gitops.TmpDirPrefix) {
		log.Errorf("Path %s was not created by the commit command", path)
		return ExitError
	}

	repo, err := gitops.Open(path)
	if err != nil {
		log.Errorf("Cannot open %s: %v", path, err)
		return ExitError
	}
	if err := repo.Push(sha1); err != nil {
		if err == gitops.ErrSHA1Mismatch {
			return ExitSHA1Mismatch
		}
		log.Errorf("Failed to push: %v", err)
		return ExitPushError
	}
	if err := os.RemoveAll(path); err != nil {
		log.Warnf("Cannot remove %s: %v", path, err)
	}
	return ExitOK
}

// askConfirmation reads a yes/no answer from standard input.
func askConfirmation(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s [y/n] ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}
