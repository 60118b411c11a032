package main

import "github.com/byterings/noter/cmd"

func main() {
	cmd.Execute()
}
