// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/standcan/pkg/capture"
	"github.com/Thermoquad/standcan/pkg/rd2"
)

var (
	rawLogDecoded bool
	rawLogFilter  []uint
	rawLogRecord  string
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display live bus frames in human-readable format",
	Long: `Continuously decode and display bus frames as they arrive from the SLCAN
adapter.

Each frame is shown with its route, identifier, logical address, payload in hex
and binary. With --decoded the values the frame produced are printed below it.
Use --addr to only show some logical addresses. With --record every frame
(filtered or not) is also appended to an SLCAN capture that the decode command
reads back.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogDecoded, "decoded", true, "Print decoded values below each frame")
	rawLogCmd.Flags().UintSliceVar(&rawLogFilter, "addr", nil, "Only show these logical addresses")
	rawLogCmd.Flags().StringVar(&rawLogRecord, "record", "", "Append frames to this SLCAN capture (.slcan)")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conn, connInfo, err := OpenConnection(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	var record io.Writer
	if rawLogRecord != "" {
		f, err := os.OpenFile(rawLogRecord, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open record file: %w", err)
		}
		defer f.Close()
		record = f
	}

	fmt.Printf("standcan - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := rd2.NewDecoder()
	reader := capture.NewReader(conn, capture.FormatSLCAN)

	for {
		f, err := reader.Next()
		var lerr *capture.LineError
		switch {
		case errors.As(err, &lerr):
			fmt.Printf("[ERROR] %v\n", lerr)
			continue
		case errors.Is(err, io.EOF), errors.Is(err, ErrConnectionClosed), ctx.Err() != nil:
			logger.Info("Connection closed")
			return nil
		case err != nil:
			return fmt.Errorf("read: %w", err)
		}

		if record != nil {
			if _, err := fmt.Fprintln(record, capture.FormatSLCANFrame(f)); err != nil {
				return fmt.Errorf("record: %w", err)
			}
		}

		route, decodeErr := decoder.Decode(f)
		if len(rawLogFilter) > 0 && !slices.Contains(rawLogFilter, uint(f.Address())) {
			continue
		}

		fmt.Printf("%-14s %s\n", route, f.ColorString())
		if decodeErr != nil {
			fmt.Printf("  [DECODE] %v\n", decodeErr)
		}
		if rawLogDecoded {
			fmt.Print(rd2.FormatDecoded(f, route, decoder.State()))
		}
	}
}
