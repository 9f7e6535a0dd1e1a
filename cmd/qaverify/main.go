package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/qaverify/internal/apperr"
	"github.com/ppiankov/qaverify/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var ce *apperr.ConfigurationError
		if errors.As(err, &ce) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
