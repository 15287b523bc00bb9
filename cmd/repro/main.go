/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Entry point of the Akaylee replay harness.
*/

package main

import (
	"fmt"
	"os"

	"github.com/kleascm/akaylee-repro/cmd/repro/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
