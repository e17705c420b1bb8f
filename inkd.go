package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	cli "github.com/inkos/inkd/cmd/inkd"
	"github.com/inkos/inkd/internal/config"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	c := config.Load()

	if err := cli.SetupRootCmd(&c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
