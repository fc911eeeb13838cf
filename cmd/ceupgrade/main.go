// Command ceupgrade defines custom elements from a manifest and upgrades the
// matching elements of an XML document.
package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("ceupgrade failed", "error", err)
		os.Exit(1)
	}
}
