package main

import "github.com/notargets/aronnax/cmd"

func main() {
	cmd.Execute()
}
