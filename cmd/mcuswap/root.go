package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mcuswap",
	Short: "Scratch-swap engine workbench",
	Long: `mcuswap exercises the scratch-based image swap engine against
simulated flash devices built from a geometry profile.

A profile is a YAML file describing the slot and scratch layouts:

  align: 4
  max-sectors: 128
  primary:
    image: primary.bin
    sectors: [0x1000, 0x1000, 0x2000]
  secondary:
    image: candidate.hex
    sectors: [0x2000, 0x1000, 0x1000]
  scratch:
    sectors: [0x2000]

Slot images may be raw binaries or Intel HEX files (by extension).`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "profile", "p", "", "geometry profile file (default ./mcuswap.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(
		runCmd,
		statusCmd,
		compatCmd,
		maxsizeCmd,
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("mcuswap")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MCUSWAP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("read profile: %v", err)
		}
	}
}

// stdLogger adapts the standard log package to the engine's Logger
// interface. Debug output is gated on --verbose.
type stdLogger struct{}

func (stdLogger) Debug(msg string, kv ...interface{}) {
	if verbose {
		log.Println(append([]interface{}{"DBG", msg}, kv...)...)
	}
}

func (stdLogger) Info(msg string, kv ...interface{}) {
	log.Println(append([]interface{}{"INF", msg}, kv...)...)
}

func (stdLogger) Warn(msg string, kv ...interface{}) {
	log.Println(append([]interface{}{"WRN", msg}, kv...)...)
}

func (stdLogger) Error(msg string, kv ...interface{}) {
	log.Println(append([]interface{}{"ERR", msg}, kv...)...)
}
