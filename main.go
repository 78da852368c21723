package main

import "github.com/laccore/coreid/cmd"

func main() {
	cmd.Execute()
}
