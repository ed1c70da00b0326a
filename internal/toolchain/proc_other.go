//go:build !unix

package toolchain

import "os/exec"

// configureProcessGroup keeps exec.CommandContext's default behaviour of
// killing only the direct child.
func configureProcessGroup(cmd *exec.Cmd) {}
