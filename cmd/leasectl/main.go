// Command leasectl runs operational tasks against the rental lifecycle database:
// migrations, demo seeding, the lease expiry sweep, fee quotes and dev tokens.
package main

import (
	"fmt"
	"os"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/config"
)

func main() {
	if err := newRootCmd(config.LoadConfig).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
