package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

type CLICommand struct {
	Diagnostic DiagnosticCommands `command:"diag" alias:"diagnostics" description:"Diagnostic functions"`
	Holding    HoldingCommands    `command:"holding" alias:"holdings" description:"Holding functions"`
}

func main() {
	clicmd := CLICommand{}

	parser := flags.NewParser(&clicmd, flags.HelpFlag|flags.PassDoubleDash)

	_, err := parser.Parse()

	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
