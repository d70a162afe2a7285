// cmd/hostingctl/main.go
package main

import (
	"fmt"
	"os"

	"hosting-assessment/internal/cli"
	"hosting-assessment/pkg/catalog"
)

func main() {
	// Flags are generated before the config is read, so the override comes from the
	// same variable viper maps onto catalog.path.
	cat, err := catalog.Load(os.Getenv("CATALOG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cli.NewRootCommand(cli.Options{Catalog: cat})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
