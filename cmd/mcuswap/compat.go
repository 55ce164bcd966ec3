package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var compatCmd = &cobra.Command{
	Use:   "compat",
	Short: "Check slot geometry compatibility",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := buildRig()
		if err != nil {
			return err
		}
		if !r.engine.SlotsCompatible() {
			return fmt.Errorf("slots are not compatible")
		}
		fmt.Println("slots are compatible")
		return nil
	},
}

var maxsizeCmd = &cobra.Command{
	Use:   "maxsize",
	Short: "Report the maximum application payload for the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := buildRig()
		if err != nil {
			return err
		}
		size := r.engine.AppMaxSize()
		if size == 0 {
			return fmt.Errorf("slots are not compatible")
		}
		fmt.Printf("max application size: 0x%X (%d bytes)\n", size, size)
		fmt.Printf("trailer size: 0x%X\n", r.engine.Layout().TrailerSize())
		return nil
	},
}
