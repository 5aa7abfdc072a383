package versioncmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	versioncmder "github.com/papercomputeco/minutes/cmd/version"
	"github.com/papercomputeco/minutes/pkg/utils"
)

var _ = Describe("NewVersionCmd", func() {
	It("prints the build metadata", func() {
		out := &bytes.Buffer{}
		cmd := versioncmder.NewVersionCmd()
		cmd.SetOut(out)
		cmd.SetArgs([]string{})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version: " + utils.Version))
		Expect(out.String()).To(ContainSubstring("Sha: " + utils.Sha))
	})
})
