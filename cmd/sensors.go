// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/standcan/pkg/sensors"
)

var sensorsDump bool

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "List the sensor calibration table",
	Long: `Print the sensor calibration table in use, after applying --sensors.

With --dump the table is written as YAML instead; the output is a complete
calibration file that can be edited and passed back with --sensors.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sensorsDump {
			data, err := sensors.Marshal(sensorTable)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}
		printSensors(os.Stdout, sensorTable)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sensorsCmd)
	sensorsCmd.Flags().BoolVar(&sensorsDump, "dump", false, "Write the table as YAML")
}

func printSensors(w io.Writer, t *sensors.Table) {
	list := t.All()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	fmt.Fprintf(w, "%4s  %-16s %4s %10s %10s  %s\n", "ID", "Name", "Node", "Slope", "Offset", "Unit")
	for _, s := range list {
		fmt.Fprintf(w, "%4d  %-16s %4d %10g %10g  %s\n", s.ID, s.Name, s.Node, s.Slope, s.Offset, s.Unit)
	}
	fmt.Fprintf(w, "\n%d sensors\n", t.Len())
}
