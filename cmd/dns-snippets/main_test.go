/*
 * dns-snippets - unit tests.
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
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netbox-dns-snippets/internal/config"
	"netbox-dns-snippets/internal/gitops"
)

const emptyPage = `{"count": 0, "next": null, "previous": null, "results": []}`

// netboxEndpoints are the inventory endpoints queried during a run.
var netboxEndpoints = []string{
	"/api/ipam/ip-addresses/",
	"/api/dcim/interfaces/",
	"/api/virtualization/interfaces/",
	"/api/ipam/prefixes/",
	"/api/dcim/devices/",
	"/api/virtualization/virtual-machines/",
}

// newNetboxStub returns a NetBox stub serving empty pages for every
// inventory endpoint, overridden by the given responses.
func newNetboxStub(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if body, ok := responses[r.URL.Path]; ok {
			fmt.Fprint(w, body)
			return
		}
		for _, path := range netboxEndpoints {
			if r.URL.Path == path {
				fmt.Fprint(w, emptyPage)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	return server
}

// singleServerResponses describes one active server with a primary address
// inside a known prefix.
func singleServerResponses() map[string]string {
	return map[string]string{
		"/api/dcim/devices/": `{"count": 1, "next": null, "previous": null, "results": [
			{"id": 1, "name": "db1001", "device_role": {"slug": "server"},
			 "status": {"value": "active"}, "site": {"slug": "eqiad"},
			 "primary_ip4": {"id": 7}}
		]}`,
		"/api/dcim/interfaces/": `{"count": 1, "next": null, "previous": null, "results": [
			{"id": 1, "name": "eth0", "device": {"id": 1, "name": "db1001"}, "mgmt_only": false}
		]}`,
		"/api/ipam/ip-addresses/": `{"count": 1, "next": null, "previous": null, "results": [
			{"id": 7, "address": "10.0.0.5/24", "dns_name": "db1001.eqiad.wmnet",
			 "interface": {"id": 1, "name": "eth0"}}
		]}`,
		"/api/ipam/prefixes/": `{"count": 1, "next": null, "previous": null, "results": [
			{"id": 1, "prefix": "10.0.0.0/24", "site": {"slug": "eqiad"}}
		]}`,
	}
}

// initSnippetsRepo creates a repository to clone from. It only carries a
// hidden file, so a run with no NetBox data leaves the tree clean.
func initSnippetsRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".keep"), []byte{}, 0o644))
	require.NoError(t, worktree.AddWithOptions(&git.AddOptions{All: true}))
	signature := &object.Signature{Name: "init", Email: "init@example.org", When: time.Now()}
	_, err = worktree.Commit("initial state", &git.CommitOptions{
		Author: signature, Committer: signature,
	})
	require.NoError(t, err)
	return dir
}

func testRunConfig(netboxURL, repoPath string) *config.Config {
	return &config.Config{
		NetboxURL:       netboxURL,
		NetboxToken:     "testtoken",
		NetboxTimeout:   5,
		RepoPath:        repoPath,
		GitUserName:     "generate-dns-snippets",
		GitUserEmail:    "noc@wikimedia.org",
		WarningLinesPct: 3,
		ErrorLinesPct:   5,
		WarningFilesPct: 8,
		ErrorFilesPct:   15,
		InternalSuffix:  "wmnet",
		SplitLabels:     []string{"frack", "mgmt", "svc"},
	}
}

func neverConfirm(string) bool { return false }

// Test_runCommit_noChanges tests that a run matching the repository state
// reports no changes, with the sentinel line in batch mode only.
func Test_runCommit_noChanges(t *testing.T) {
	server := newNetboxStub(t, nil)
	cfg := testRunConfig(server.URL, initSnippetsRepo(t))

	out := &bytes.Buffer{}
	code, err := runCommit(cfg, commitOptions{batch: true, message: "sync"}, neverConfirm, out)
	require.NoError(t, err)
	assert.Equal(t, ExitNoChanges, code)
	assert.Equal(t, "METADATA: {\"no_changes\": true}\n", out.String())

	// The interactive run stays silent.
	out.Reset()
	code, err = runCommit(cfg, commitOptions{message: "sync"}, neverConfirm, out)
	require.NoError(t, err)
	assert.Equal(t, ExitNoChanges, code)
	assert.Empty(t, out.String())
}

// Test_runCommit_batch tests that a batch run prints the diff followed by
// the metadata line, leaving the generated tree for the caller to push.
func Test_runCommit_batch(t *testing.T) {
	server := newNetboxStub(t, singleServerResponses())
	cfg := testRunConfig(server.URL, initSnippetsRepo(t))

	out := &bytes.Buffer{}
	code, err := runCommit(cfg, commitOptions{batch: true, message: "sync"}, neverConfirm, out)
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)

	output := out.String()
	assert.Contains(t, output, "1H IN A 10.0.0.5")
	assert.Contains(t, output, "1H IN PTR db1001.eqiad.wmnet.")

	var metadataLine string
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "METADATA: ") {
			metadataLine = line
		}
	}
	require.NotEmpty(t, metadataLine)
	meta := struct {
		Path         string `json:"path"`
		SHA1         string `json:"sha1"`
		ChangedFiles int    `json:"changed_files"`
		ChangedLines int    `json:"changed_lines"`
	}{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(metadataLine, "METADATA: ")), &meta))
	t.Cleanup(func() { os.RemoveAll(meta.Path) })

	assert.True(t, strings.HasPrefix(filepath.Base(meta.Path), gitops.TmpDirPrefix))
	assert.Len(t, meta.SHA1, 40)
	assert.Equal(t, 2, meta.ChangedFiles)
	assert.Equal(t, 2, meta.ChangedLines)
	assert.FileExists(t, filepath.Join(meta.Path, "eqiad.wmnet"))
}

// Test_runCommit_check tests that a check run commits silently and cleans
// up after itself.
func Test_runCommit_check(t *testing.T) {
	server := newNetboxStub(t, singleServerResponses())
	cfg := testRunConfig(server.URL, initSnippetsRepo(t))

	out := &bytes.Buffer{}
	code, err := runCommit(cfg, commitOptions{batch: true, check: true, message: "sync"}, neverConfirm, out)
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Empty(t, out.String())
}
