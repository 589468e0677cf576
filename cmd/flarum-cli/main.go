package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/flarum/flarum-cli-sub000/internal/commands"
	"github.com/flarum/flarum-cli-sub000/internal/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := commands.NewApp().ExecuteContext(ctx); err != nil {
		// Failed runs are reported by the command itself.
		if !errors.Is(err, commands.ErrFailed) {
			output.Error(err.Error())
		}
		stop()
		os.Exit(1)
	}
}
