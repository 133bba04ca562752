// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/kmodule/cmd/kmodule"

func main() {
	cmd.Execute()
}
