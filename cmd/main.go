package main

import (
	"os"

	"github.com/edgarlens/factgraph/cmd/factgraph"
)

func main() {
	if err := factgraph.Execute(); err != nil {
		os.Exit(1)
	}
}
