// Package gitutil reads commit identity straight from the .git
// directory so metadata emission works without a git binary.
package gitutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// CommitID returns the full hash of HEAD for the repository at dir, or
// an empty string when dir is not a git checkout or HEAD cannot be
// resolved. It follows one level of symbolic ref and consults
// packed-refs for refs that have no loose file.
func CommitID(dir string) string {
	gitDir := resolveGitDir(dir)
	if gitDir == "" {
		return ""
	}

	head, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(head))

	// Detached HEAD holds the hash directly.
	if !strings.HasPrefix(line, "ref: ") {
		return validHash(line)
	}

	ref := strings.TrimSpace(strings.TrimPrefix(line, "ref: "))
	if ref == "" {
		return ""
	}

	if data, err := os.ReadFile(filepath.Join(gitDir, filepath.FromSlash(ref))); err == nil {
		return validHash(strings.TrimSpace(string(data)))
	}
	return packedRef(gitDir, ref)
}

// resolveGitDir locates the .git directory for a checkout, handling
// worktrees and submodules where .git is a file pointing elsewhere.
func resolveGitDir(dir string) string {
	gitPath := filepath.Join(dir, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		return gitPath
	}
	data, err := os.ReadFile(gitPath)
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, "gitdir: ") {
		return ""
	}
	target := strings.TrimSpace(strings.TrimPrefix(line, "gitdir: "))
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	return target
}

// packedRef scans .git/packed-refs for the ref's hash.
func packedRef(gitDir, ref string) string {
	f, err := os.Open(filepath.Join(gitDir, "packed-refs"))
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
			continue
		}
		hash, name, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		if name == ref {
			return validHash(hash)
		}
	}
	return ""
}

// validHash accepts 40-char (SHA-1) and 64-char (SHA-256) hex hashes.
func validHash(s string) string {
	if len(s) != 40 && len(s) != 64 {
		return ""
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return ""
		}
	}
	return s
}
