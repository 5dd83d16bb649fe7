// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/standcan/pkg/capture"
	"github.com/Thermoquad/standcan/pkg/rd2"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid bus frame",
	Long: `Wait for a valid bus frame on the connection until timeout.

This command connects to the SLCAN adapter over a serial port or WebSocket and
waits for any data frame. Malformed lines and adapter replies are ignored.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for testing the adapter wiring and bus bitrate before a test.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("standcan - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for a valid frame...\n\n")

	frameChan := make(chan rd2.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := capture.NewReader(conn, capture.FormatSLCAN)
		invalid := 0
		for {
			f, err := reader.Next()
			var lerr *capture.LineError
			if errors.As(err, &lerr) {
				invalid++
				continue
			}
			if err != nil {
				errChan <- err
				return
			}
			if invalid > 0 || reader.Skipped > 0 {
				fmt.Printf("(skipped %d malformed and %d non-frame lines before sync)\n", invalid, reader.Skipped)
			}
			frameChan <- f
			return
		}
	}()

	select {
	case f := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Identifier: 0x%08X\n", f.Identifier)
		fmt.Printf("  Address: %d\n", f.Address())
		fmt.Printf("  Route: %s\n", rd2.Classify(f.Address()))
		fmt.Printf("  Length: %d bytes\n", f.DLC())
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)
	}

	return nil
}
