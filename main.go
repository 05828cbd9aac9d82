package main

import (
	"context"
	"os"

	"github.com/fatali-fataliyev/spending_insights/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
