// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/apbuild/apb/cmd/apb"

func main() {
	cmd.Execute()
}
