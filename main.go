package main

import "groundswell/cmd/cmd"

func main() {
	cmd.Execute()
}
