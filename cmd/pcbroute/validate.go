package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <board.json>",
	Short: "Check a SimpleRouteJson board for structural errors without routing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	srj, err := loadSRJ(args[0])
	if err != nil {
		return err
	}
	if err := srj.Validate(); err != nil {
		fmt.Fprintln(os.Stdout, err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stdout, "ok")

	return nil
}
