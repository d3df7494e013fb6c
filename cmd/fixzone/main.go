// Command fixzone signs in to the FixZone backend from a terminal and checks
// where the portal would send the signed-in user.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1) //nolint:forbidigo // CLI entrypoint exits non-zero on failure.
	}
}
