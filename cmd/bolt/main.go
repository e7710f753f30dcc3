package main

import "bolt/cmd/bolt/command"

func main() {
	command.Execute()
}
