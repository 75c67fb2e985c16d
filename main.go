package main

import "github.com/mapy-io/mapy/cmd"

func main() {
	cmd.Execute()
}
