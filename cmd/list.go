package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lcd-translator/pkg/serial"
)

var (
	listDetails bool
	listFormat  string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List serial ports that can carry the upstream stream",
	Long: `List all available serial ports on the system.

Any of the listed ports can be passed to 'lcd-translator run'. On
different platforms:
  - Windows: Lists COM ports
  - Linux: Lists /dev/tty* devices
  - macOS: Lists /dev/cu.* and /dev/tty.* devices`,
	Aliases: []string{"ls", "ports"},
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().BoolVar(&listDetails, "details", false, "show detailed port information")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, csv, json)")
}

func runList(cmd *cobra.Command, args []string) error {
	portInfos, err := serial.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("listing ports: %w", err)
	}
	return printPorts(cmd.OutOrStdout(), portInfos, listFormat, listDetails)
}

func printPorts(w io.Writer, portInfos []serial.PortInfo, format string, details bool) error {
	switch format {
	case "csv":
		printPortsCSV(w, portInfos, details)
	case "json":
		return printPortsJSON(w, portInfos, details)
	case "table", "":
		printPortsTable(w, portInfos, details)
	default:
		return fmt.Errorf("unknown format %q (valid: table, csv, json)", format)
	}
	return nil
}

func printPortsTable(w io.Writer, portInfos []serial.PortInfo, details bool) {
	if len(portInfos) == 0 {
		fmt.Fprintln(w, "No serial ports found.")
		return
	}

	fmt.Fprintf(w, "Found %d serial port(s):\n", len(portInfos))
	for _, portInfo := range portInfos {
		fmt.Fprintf(w, "  %s", portInfo.Name)

		if details && portInfo.IsUSB {
			fmt.Fprintf(w, " [USB]")
			if portInfo.VID != "" || portInfo.PID != "" {
				fmt.Fprintf(w, " VID:%s PID:%s", portInfo.VID, portInfo.PID)
			}
			if portInfo.Product != "" {
				fmt.Fprintf(w, " - %s", portInfo.Product)
			}
			if portInfo.SerialNumber != "" {
				fmt.Fprintf(w, " (SN: %s)", portInfo.SerialNumber)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nUse 'lcd-translator run <port>' to drive the display from a port.")
}

func printPortsCSV(w io.Writer, portInfos []serial.PortInfo, details bool) {
	if !details {
		fmt.Fprintln(w, "port")
		for _, portInfo := range portInfos {
			fmt.Fprintln(w, portInfo.Name)
		}
		return
	}

	fmt.Fprintln(w, "port,is_usb,vid,pid,product,serial_number")
	for _, portInfo := range portInfos {
		fmt.Fprintf(w, "%s,%t,%s,%s,%s,%s\n",
			portInfo.Name,
			portInfo.IsUSB,
			portInfo.VID,
			portInfo.PID,
			portInfo.Product,
			portInfo.SerialNumber)
	}
}

type portJSON struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb,omitempty"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	Product      string `json:"product,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

func printPortsJSON(w io.Writer, portInfos []serial.PortInfo, details bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if !details {
		names := make([]string, 0, len(portInfos))
		for _, portInfo := range portInfos {
			names = append(names, portInfo.Name)
		}
		return enc.Encode(names)
	}

	out := make([]portJSON, 0, len(portInfos))
	for _, p := range portInfos {
		out = append(out, portJSON{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			Product:      p.Product,
			SerialNumber: p.SerialNumber,
		})
	}
	return enc.Encode(out)
}
