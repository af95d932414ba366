/*
 * Repo - git workflow around the generated snippet tree.
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
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	log "github.com/sirupsen/logrus"
)

// TmpDirPrefix marks the temporary checkouts created by the commit command.
// The second part is the base64 encoding of "snippets" so it does not match
// any existing directory prefix by accident.
const TmpDirPrefix = "dns-c25pcHBldHM-"

// ErrSHA1Mismatch is returned when the checkout head does not match the
// commit requested for push.
var ErrSHA1Mismatch = errors.New("head SHA1 does not match the requested SHA1")

// Identity is the author and committer identity used for generated commits.
type Identity struct {
	Name  string
	Email string
}

// signature converts the identity to a git signature.
func (i Identity) signature() *object.Signature {
	return &object.Signature{
		Name:  i.Name,
		Email: i.Email,
		When:  time.Now(),
	}
}

// Repo is a working clone of the snippet repository.
type Repo struct {
	repo *git.Repository
	dir  string
}

// Dir returns the working tree path.
func (r *Repo) Dir() string {
	return r.dir
}

// Clone clones the configured snippet repository into the given directory.
func Clone(repoPath, dir string) (*Repo, error) {
	log.Infof("Cloning %s to %s ...", repoPath, dir)
	repo, err := git.PlainClone(dir, false, &git.CloneOptions{URL: repoPath})
	if err != nil {
		return nil, fmt.Errorf("cannot clone %s: %w", repoPath, err)
	}
	return &Repo{repo: repo, dir: dir}, nil
}

// Open opens an existing working clone, as prepared by a previous batch
// commit.
func Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot open repository %s: %w", dir, err)
	}
	return &Repo{repo: repo, dir: dir}, nil
}

// WorkingTreeStats counts the non-hidden files of a checkout and their total
// lines, to size the delta validation against.
func WorkingTreeStats(dir string) (files, lines int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot read %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return 0, 0, fmt.Errorf("cannot read %s: %w", entry.Name(), err)
		}
		files++
		lines += bytes.Count(data, []byte("\n"))
	}

	log.Debugf("Found %d existing files with %d lines", files, lines)
	return files, lines, nil
}

// RemoveSnippets deletes all the non-hidden files so that stale zones do not
// survive the regeneration.
func (r *Repo) RemoveSnippets() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", r.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, entry.Name())); err != nil {
			return fmt.Errorf("cannot remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// CommitAll stages every change and commits it with the given identity.
// A clean tree produces no commit and an empty hash, unless allowEmpty makes
// an empty commit to permit local modifications.
func (r *Repo) CommitAll(message string, identity Identity, allowEmpty bool) (string, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("cannot get worktree: %w", err)
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("cannot stage changes: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("cannot get worktree status: %w", err)
	}
	if status.IsClean() {
		if !allowEmpty {
			log.Info("Nothing to commit!")
			return "", nil
		}
		log.Info("Nothing to commit but keep-files set, making an empty commit to allow local modifications")
	}

	signature := identity.signature()
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author:            signature,
		Committer:         signature,
		AllowEmptyCommits: allowEmpty,
	})
	if err != nil {
		return "", fmt.Errorf("cannot commit changes: %w", err)
	}

	log.Infof("Committed changes: %s", hash.String())
	return hash.String(), nil
}

// DiffStats returns the number of files touched by the head commit and the
// total changed lines.
func (r *Repo) DiffStats() (files, lines int, err error) {
	commit, err := r.headCommit()
	if err != nil {
		return 0, 0, err
	}

	stats, err := commit.Stats()
	if err != nil {
		return 0, 0, fmt.Errorf("cannot compute commit stats: %w", err)
	}
	for _, stat := range stats {
		files++
		lines += stat.Addition + stat.Deletion
	}
	return files, lines, nil
}

// Show returns the textual diff of the head commit for operator review, or
// the per-file stats when the commit has no parent.
func (r *Repo) Show() (string, error) {
	commit, err := r.headCommit()
	if err != nil {
		return "", err
	}

	if commit.NumParents() == 0 {
		stats, err := commit.Stats()
		if err != nil {
			return "", fmt.Errorf("cannot compute commit stats: %w", err)
		}
		return stats.String(), nil
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return "", fmt.Errorf("cannot get parent commit: %w", err)
	}
	patch, err := parent.Patch(commit)
	if err != nil {
		return "", fmt.Errorf("cannot compute patch: %w", err)
	}
	return patch.String(), nil
}

// headCommit returns the commit the head points to.
func (r *Repo) headCommit() (*object.Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve head: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("cannot load head commit: %w", err)
	}
	return commit, nil
}

// HeadSHA1 returns the hash of the head commit.
func (r *Repo) HeadSHA1() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("cannot resolve head: %w", err)
	}
	return head.Hash().String(), nil
}

// Push pushes the head commit to the repository's remote after verifying
// that the head matches the expected SHA1.
func (r *Repo) Push(sha1 string) error {
	head, err := r.HeadSHA1()
	if err != nil {
		return err
	}
	if head != sha1 {
		log.Errorf("Head SHA1 %s does not match given SHA1 %s", head, sha1)
		return ErrSHA1Mismatch
	}

	err = r.repo.Push(&git.PushOptions{})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		log.Info("Remote already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot push to remote: %w", err)
	}

	log.Infof("Pushed commit %s", sha1)
	return nil
}
