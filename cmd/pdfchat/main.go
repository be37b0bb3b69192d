package main

import "github.com/nikkelr/chat-with-PDF/internal/commands"

func main() {
	commands.Execute()
}
