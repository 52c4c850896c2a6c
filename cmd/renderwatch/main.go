package main

import "github.com/bryanchriswhite/RenderWatch/cmd/renderwatch/commands"

func main() {
	commands.Execute()
}
