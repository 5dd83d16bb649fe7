// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	adapterPingTimeout int
	adapterPingCount   int
)

var adapterPingCmd = &cobra.Command{
	Use:   "adapter_ping",
	Short: "Test the SLCAN adapter by querying its version",
	Long: `Send SLCAN version queries ('V') to the adapter and wait for the reply.

The adapter answers locally without touching the bus, so this checks the
link to the adapter even when the stand is powered down. Over a WebSocket
bridge it verifies:
  - WebSocket connection is established
  - HTTP Basic authentication works
  - Commands are forwarded to the adapter

Exit codes:
  0 - All queries answered
  1 - One or more queries failed/timed out
  2 - Connection error`,
	RunE: runAdapterPing,
}

func init() {
	rootCmd.AddCommand(adapterPingCmd)
	adapterPingCmd.Flags().IntVar(&adapterPingTimeout, "timeout", 2, "Timeout in seconds for each query")
	adapterPingCmd.Flags().IntVar(&adapterPingCount, "count", 3, "Number of queries to send")
}

// versionReply reports whether an SLCAN line answers a 'V' query and
// returns the hardware and software versions
func versionReply(line string) (hw, sw string, ok bool) {
	line = strings.Trim(line, " \t\a")
	if len(line) != 5 || line[0] != 'V' {
		return "", "", false
	}
	for _, c := range line[1:] {
		if !strings.ContainsRune("0123456789ABCDEFabcdef", c) {
			return "", "", false
		}
	}
	return line[1:3], line[3:5], true
}

func runAdapterPing(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("standcan - Adapter Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per query\n", adapterPingTimeout)
	fmt.Printf("Count: %d queries\n\n", adapterPingCount)

	// One reader for the whole run; frames on the bus are interleaved with
	// the replies and ignored
	replies := make(chan string, 4)
	errChan := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(conn)
		scanner.Split(bufio.ScanRunes)
		var line strings.Builder
		for scanner.Scan() {
			r := scanner.Text()
			if r != "\r" && r != "\n" {
				line.WriteString(r)
				continue
			}
			if hw, sw, ok := versionReply(line.String()); ok {
				replies <- fmt.Sprintf("hw %s sw %s", hw, sw)
			}
			line.Reset()
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		errChan <- err
	}()

	successCount := 0
	failCount := 0

	for i := 1; i <= adapterPingCount; i++ {
		fmt.Printf("Query %d/%d: ", i, adapterPingCount)

		startTime := time.Now()
		if _, err := conn.Write([]byte("V\r")); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		select {
		case version := <-replies:
			fmt.Printf("adapter %s, rtt=%v\n", version, time.Since(startTime).Round(time.Millisecond))
			successCount++

		case err := <-errChan:
			fmt.Printf("READ FAILED: %v\n", err)
			failCount += adapterPingCount - i + 1
			i = adapterPingCount

		case <-time.After(time.Duration(adapterPingTimeout) * time.Second):
			fmt.Printf("TIMEOUT (no reply in %ds)\n", adapterPingTimeout)
			failCount++
		}

		// Small delay between queries
		if i < adapterPingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d queries sent, %d replies received, %.0f%% loss\n",
		adapterPingCount, successCount, float64(failCount)/float64(adapterPingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}
