package main

import (
	"os"
)

func main() {
	if err := newRootCmd(defaultServicesFactory).Execute(); err != nil {
		os.Exit(1)
	}
}
