package main

import (
	"fmt"
	"strings"
	"time"

	"context"

	"dagger/minutes/internal/dagger"
)

// Build and return directory of go binaries
func (m *Minutes) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// define build matrix
	gooses := []string{"linux", "darwin"}
	goarches := []string{"amd64", "arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	// go-sqlite3 needs cgo; zig cc cross-compiles it for every target.
	golang := dag.Container().
		From("golang:1.25-alpine").
		WithExec([]string{"apk", "add", "--no-cache", "zig"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithDirectory("/src", m.Source).
		WithWorkdir("/src")

	for _, goos := range gooses {
		for _, goarch := range goarches {
			// create directory for each OS and architecture
			path := fmt.Sprintf("%s/%s/", goos, goarch)

			// build artifact
			build := golang.
				WithEnvVariable("GOOS", goos).
				WithEnvVariable("GOARCH", goarch).
				WithEnvVariable("CC", fmt.Sprintf("zig cc -target %s", zigTarget(goos, goarch))).
				WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/minutes"})

			// add build to outputs
			outputs = outputs.WithDirectory(path, build.Directory(path))
		}
	}

	// return build directory
	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (m *Minutes) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/minutes/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/minutes/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/minutes/pkg/utils.Buildtime=%s'", buildtime),
	}

	return m.Build(ctx, strings.Join(ldflags, " "))
}

// zigTarget maps a GOOS/GOARCH pair to a zig cc target triple.
func zigTarget(goos, goarch string) string {
	arch := "x86_64"
	if goarch == "arm64" {
		arch = "aarch64"
	}
	if goos == "darwin" {
		return arch + "-macos"
	}
	return arch + "-linux-musl"
}
