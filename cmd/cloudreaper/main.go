package main

import "github.com/DrSkyle/cloudreaper/cmd/cloudreaper/commands"

func main() {
	commands.Execute()
}
