package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lcd-translator/pkg/config"
	"lcd-translator/pkg/proto"
	"lcd-translator/pkg/translator"
)

var codesFlags profileFlags

// codesCmd prints the command code table a profile decodes with
var codesCmd = &cobra.Command{
	Use:   "codes [profile]",
	Short: "Show the Matrix Orbital command codes and how each is handled",
	Long: `Show the command code table used to decode the upstream stream, with the
number of argument bytes each command takes and whether it reaches the
display. Code overrides from the profile and --codes are applied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCodes,
}

func init() {
	codesCmd.Flags().Var(&codesFlags.codes, "codes", "move a command to another code, e.g. clr_display=0x10 (repeatable)")
}

func runCodes(cmd *cobra.Command, args []string) error {
	profile := config.DefaultProfile()
	if len(args) == 1 {
		loaded, err := profileManager().LoadProfile(args[0])
		if err != nil {
			return err
		}
		profile = loaded
	}
	codesFlags.apply(cmd.Flags(), &profile)

	table, err := profile.CodeTable()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCOMMAND\tDATA\tDISPLAY")
	for _, kind := range proto.Kinds() {
		code := "-"
		if c, ok := table.Code(kind); ok {
			code = fmt.Sprintf("0x%02x", c)
		}
		handling := "ignored"
		if translator.Supported(kind) {
			handling = "translated"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", code, kind, proto.DataLen(kind), handling)
	}
	return tw.Flush()
}
