package main

import "kioskterm/internal/cmd"

func main() {
	cmd.Execute()
}
