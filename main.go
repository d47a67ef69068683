package main

import "github.com/nroussel/accidash/cmd"

func main() {
	cmd.Execute()
}
