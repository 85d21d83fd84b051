package main

import (
	"context"
	"precon-scraper/cmd/precon-scraper/commands"
	"precon-scraper/pkg/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
