package main

import (
	"fmt"
	"os"

	"fjacquet/donor-mapper/cmd/mappings"
	"fjacquet/donor-mapper/cmd/match"
	"fjacquet/donor-mapper/cmd/root"
	"fjacquet/donor-mapper/cmd/serve"
	"fjacquet/donor-mapper/cmd/suggest"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(suggest.Cmd)
	root.Cmd.AddCommand(match.Cmd)
	root.Cmd.AddCommand(mappings.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
