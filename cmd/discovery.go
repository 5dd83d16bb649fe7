// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/standcan/pkg/capture"
	"github.com/Thermoquad/standcan/pkg/rd2"
	"github.com/Thermoquad/standcan/pkg/sensors"
)

var (
	discoveryTimeout int
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Discover the nodes, sensors and controllers talking on the bus",
	Long: `Listen to the bus for a while and report what is active on it.

The stand nodes never answer requests; discovery is passive. Every frame is
decoded and counted by logical address, then summarised as:
  - Nodes that reported a state, with their last state
  - Sensors that produced samples
  - Controllers that published channels
  - Addresses that matched no route

Exit codes:
  0 - Discovery successful (at least one frame decoded)
  1 - Discovery failed (no frames before timeout)
  2 - Connection error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 5, "Listen time in seconds")
}

// census counts frames per logical address on top of a decoding session
type census struct {
	decoder     *rd2.Decoder
	addresses   map[uint16]uint64
	nodes       map[rd2.Node]bool
	controllers map[int]bool
}

func newCensus() *census {
	return &census{
		decoder:     rd2.NewDecoder(),
		addresses:   make(map[uint16]uint64),
		nodes:       make(map[rd2.Node]bool),
		controllers: make(map[int]bool),
	}
}

func (c *census) add(f rd2.Frame) {
	addr := f.Address()
	c.addresses[addr]++

	route, _ := c.decoder.Decode(f)
	switch route {
	case rd2.RouteNodeState:
		for _, n := range rd2.Nodes {
			if nodeAddress(n) == addr {
				c.nodes[n] = true
			}
		}
	case rd2.RouteController:
		if id := rd2.ControllerID(addr); id >= 0 && id < rd2.Controllers {
			c.controllers[id] = true
		}
	}
}

func nodeAddress(n rd2.Node) uint16 {
	switch n {
	case rd2.NodeEngine:
		return rd2.AddrEngineNode
	case rd2.NodeProp:
		return rd2.AddrPropNode
	default:
		return rd2.AddrPrimaryNode
	}
}

// unrouted returns the addresses that matched no route, in ascending order
func (c *census) unrouted() []uint16 {
	var out []uint16
	for addr := range c.addresses {
		if rd2.Classify(addr) == rd2.RouteNone {
			out = append(out, addr)
		}
	}
	slices.Sort(out)
	return out
}

func (c *census) print(table *sensors.Table) {
	s := c.decoder.State()

	fmt.Printf("\nNodes:\n")
	if len(c.nodes) == 0 {
		fmt.Printf("  (none)\n")
	}
	for _, n := range rd2.Nodes {
		if c.nodes[n] {
			fmt.Printf("  %-8s %s (%d frames)\n", n, s.NodeState(n), c.addresses[nodeAddress(n)])
		}
	}

	active := s.ActiveSensors()
	fmt.Printf("\nSensors (%d):\n", len(active))
	for _, id := range active {
		fmt.Printf("  %4d %-16s %d samples\n", id, table.Name(id), len(s.Ledger(id)))
	}

	fmt.Printf("\nControllers (%d):\n", len(c.controllers))
	for id := 0; id < rd2.Controllers; id++ {
		if c.controllers[id] {
			fmt.Printf("  %d\n", id)
		}
	}

	if unrouted := c.unrouted(); len(unrouted) > 0 {
		fmt.Printf("\nUnrouted addresses: %v\n", unrouted)
	}
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("standcan - Bus Discovery\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Listening for %d seconds...\n", discoveryTimeout)

	frames := make(chan frameMsg, 64)
	go readFrames(conn, func(msg frameMsg) { frames <- msg })

	c := newCensus()
	deadline := time.After(time.Duration(discoveryTimeout) * time.Second)

listen:
	for {
		select {
		case msg := <-frames:
			var lerr *capture.LineError
			switch {
			case errors.As(msg.err, &lerr):
				continue
			case errors.Is(msg.err, io.EOF):
				break listen
			case msg.err != nil:
				fmt.Printf("READ FAILED: %v\n", msg.err)
				os.Exit(2)
			}
			c.add(msg.frame)

		case <-deadline:
			break listen
		}
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Frames decoded: %d from %d addresses\n", c.decoder.Frames(), len(c.addresses))

	if c.decoder.Frames() == 0 {
		fmt.Printf("No frames received. Check the adapter bitrate and bus power.\n")
		os.Exit(1)
	}
	c.print(sensorTable)
	return nil
}
