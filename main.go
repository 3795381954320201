package main

import "github.com/autorevd/autorev/cmd"

func main() {
	cmd.Execute()
}
