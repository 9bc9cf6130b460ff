// SPDX-License-Identifier: MPL-2.0

package main

import cmd "dotnetup/cmd/dotnetup"

func main() {
	cmd.Execute()
}
