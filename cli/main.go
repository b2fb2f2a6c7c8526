package main

import "southwinds.dev/rotor/cli/cmd"

func main() {
	cmd.Execute()
}
