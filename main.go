package main

import "rewritefailover/cmd"

func main() {
	cmd.Execute()
}
