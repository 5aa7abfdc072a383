package main

import (
	"context"
	"fmt"

	"dagger/minutes/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintOpts returns the common GolangcilintOpts used by both CheckLint and FixLint.
// It layers golangci-lint on top of goContainer() so the sqlite dev headers,
// CGO, and Go caches are already in place.
func (m *Minutes) lintOpts() dagger.GolangcilintOpts {
	base := m.goContainer().
		WithExec([]string{
			"go",
			"install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  m.Source.File(".golangci.yml"),
	}
}

// CheckLint runs golangci-lint against the minutes source code without applying fixes.
func (m *Minutes) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(m.Source, m.lintOpts()).Check(ctx)
}

// FixLint runs golangci-lint against the minutes source code with --fix, applying
// automatic fixes where possible, and returns the modified source directory.
func (m *Minutes) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(m.Source, m.lintOpts()).Lint()
}
