package main

import (
	"fmt"
	"os"

	"github.com/moltboard/moltbot/cmd/moltbot/rootcmd"
)

func main() {
	if err := rootcmd.New().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
