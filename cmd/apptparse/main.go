// Command apptparse parses appointment requests from the command line and
// prints the result as JSON.
package main

import (
	"context"
	"os"
	"os/signal"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/appointment-parser/internal/config"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(appconfig.Load()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
