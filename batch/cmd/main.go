package main

import (
	"fmt"
	"os"

	"github.com/kysee/eth2-keygen/batch"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: eth2-keygen <command> [flags]")
		fmt.Fprintln(os.Stderr, "commands: new-mnemonic, existing-mnemonic, generate-bls-to-execution-change, exit-transaction-keystore, exit-transaction-mnemonic")
		os.Exit(1)
	}
	params, err := batch.NewParams(os.Args[2:]...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	result, err := batch.Run(batch.Command(os.Args[1]), params)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if result.Mnemonic != "" {
		fmt.Println(result.Mnemonic)
	}
	fmt.Println(result.OutputFolder)
	os.Exit(result.ExitCode)
}
