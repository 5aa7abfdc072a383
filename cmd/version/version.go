// Package versioncmder
package versioncmder

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/minutes/pkg/utils"
)

type VersionCommander struct {
	out io.Writer
}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of the minutes CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run()
		},
	}

	return cmd
}

func (c *VersionCommander) run() error {
	_, err := fmt.Fprintf(c.out, "Version: %s\nSha: %s\nBuilt at: %s\nGo: %s\n",
		utils.Version, utils.Sha, utils.Buildtime, runtime.Version())
	return err
}
