// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/standcan/pkg/logging"
	"github.com/Thermoquad/standcan/pkg/sensors"
)

var (
	// Serial connection flags
	portName   string
	baudRate   int
	canBitrate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Ambient flags
	logLevel    string
	logFile     string
	sensorsFile string
)

var (
	logger      *logging.Logger
	sensorTable *sensors.Table
)

var rootCmd = &cobra.Command{
	Use:   "standcan",
	Short: "RD2 test stand bus decoder",
	Long: `standcan - A CLI tool for decoding and monitoring the RD2 test stand bus.

Frames are read from captures (candump, candump -L, CoolTerm, SLCAN; plain text
or zip archives) or live from an SLCAN adapter, decoded into sensor ledgers,
valve banks, node states and controller channels, and exported as CSV, CBOR
snapshots or plots.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200] [--bitrate 500000]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the STANDCAN_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device of the SLCAN adapter")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().IntVar(&canBitrate, "bitrate", 500000, "CAN bitrate programmed into the SLCAN adapter")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (silent, error, info, verbose, debug)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")
	rootCmd.PersistentFlags().StringVar(&sensorsFile, "sensors", "", "YAML sensor calibration overrides")
}

func setup(cmd *cobra.Command, args []string) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger, err = logging.NewLogger(level, logFile)
	if err != nil {
		return err
	}

	if sensorsFile == "" {
		sensorTable = sensors.Default()
		return nil
	}
	sensorTable, err = sensors.Load(sensorsFile)
	if err != nil {
		return err
	}
	logger.Verbose("Loaded %d sensors from %s", sensorTable.Len(), sensorsFile)
	return nil
}

// Execute runs the root command. Cancelling ctx stops live commands and
// capture parsing.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
