package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lcd-translator/pkg/config"
)

var (
	profileFlagsSave   profileFlags
	profilePort        string
	profileDescription string
)

// profileCmd groups the profile management commands
var profileCmd = &cobra.Command{
	Use:     "profile",
	Short:   "Manage saved translator profiles",
	Aliases: []string{"profiles", "config"},
	Long: `Manage saved profiles. A profile holds the upstream serial settings, the
display device and geometry, and any command code overrides.`,
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Create or update a profile",
	Long: `Create a profile, or update an existing one with the given flags.

Examples:
  lcd-translator profile save panel --port /dev/ttyUSB0 --display /dev/slcd0
  lcd-translator profile save bench --simulate --rows 2 --cols 16
  lcd-translator profile save panel --codes clr_display=0x10`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileSave,
}

var profileListCmd = &cobra.Command{
	Use:     "list [query]",
	Short:   "List saved profiles, optionally filtered by a search query",
	Aliases: []string{"ls"},
	Args:    cobra.MaximumNArgs(1),
	RunE:    runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

var profileDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Short:   "Delete a profile",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE:    runProfileDelete,
}

var profileExportCmd = &cobra.Command{
	Use:   "export <name> <file>",
	Short: "Export a profile to a YAML file",
	Args:  cobra.ExactArgs(2),
	RunE:  runProfileExport,
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a profile from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileImport,
}

var profileDescribeCmd = &cobra.Command{
	Use:   "describe <name> <description>",
	Short: "Set the description of a profile",
	Args:  cobra.ExactArgs(2),
	RunE:  runProfileDescribe,
}

func init() {
	profileFlagsSave.register(profileSaveCmd.Flags())
	profileSaveCmd.Flags().StringVarP(&profilePort, "port", "p", "", "upstream serial port")
	profileSaveCmd.Flags().StringVar(&profileDescription, "description", "", "profile description")

	profileCmd.AddCommand(profileSaveCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileExportCmd)
	profileCmd.AddCommand(profileImportCmd)
	profileCmd.AddCommand(profileDescribeCmd)
}

func runProfileSave(cmd *cobra.Command, args []string) error {
	name := args[0]
	manager := profileManager()

	profile := config.DefaultProfile()
	updating := manager.ProfileExists(name)
	if updating {
		existing, err := manager.LoadProfile(name)
		if err != nil {
			return err
		}
		profile = existing
	}

	profileFlagsSave.apply(cmd.Flags(), &profile)
	if cmd.Flags().Changed("port") {
		profile.Upstream.Port = profilePort
	}

	if err := manager.SaveProfile(name, profile); err != nil {
		return err
	}
	if cmd.Flags().Changed("description") {
		if err := manager.SetProfileDescription(name, profileDescription); err != nil {
			return err
		}
	}

	verb := "Saved"
	if updating {
		verb = "Updated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s profile '%s' (%s)\n", verb, name, manager.GetConfigPath())
	return nil
}

func runProfileList(cmd *cobra.Command, args []string) error {
	manager := profileManager()

	var (
		infos []config.ProfileInfo
		err   error
	)
	if len(args) == 1 {
		infos, err = manager.SearchProfiles(args[0])
	} else {
		infos, err = manager.ListProfiles()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No profiles found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUPSTREAM\tSETTINGS\tDISPLAY\tLAST USED\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			info.Name,
			info.Profile.Upstream.Port,
			info.Profile.Upstream,
			displayName(info.Profile),
			formatTime(info.LastUsedAt),
			info.Description)
	}
	return tw.Flush()
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	info, err := profileManager().GetProfileInfo(args[0])
	if err != nil {
		return err
	}
	printProfile(cmd.OutOrStdout(), info)
	return nil
}

func printProfile(w io.Writer, info config.ProfileInfo) {
	p := info.Profile

	fmt.Fprintf(w, "Profile: %s\n", info.Name)
	if info.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", info.Description)
	}
	fmt.Fprintf(w, "Created: %s\n", formatTime(info.CreatedAt))
	fmt.Fprintf(w, "Last used: %s\n", formatTime(info.LastUsedAt))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Upstream: %s %s (timeout %v)\n", p.Upstream.Port, p.Upstream, p.Upstream.Timeout)
	fmt.Fprintf(w, "Display: %s\n", displayName(p))
	if p.Simulate {
		fmt.Fprintf(w, "Geometry: %d rows x %d columns\n", p.Rows, p.Columns)
	}
	fmt.Fprintf(w, "Queue: %d bytes\n", p.QueueSize)
	fmt.Fprintf(w, "History: %d bytes\n", p.HistorySize)
	retries := fmt.Sprint(p.Flush.MaxRetries)
	if p.Flush.MaxRetries < 0 {
		retries = "unlimited"
	}
	fmt.Fprintf(w, "Display retries: %s every %v\n", retries, p.Flush.RetryInterval)

	if len(p.Codes) > 0 {
		fmt.Fprintln(w, "Code overrides:")
		for _, name := range slices.Sorted(maps.Keys(p.Codes)) {
			fmt.Fprintf(w, "  %s = 0x%02x\n", name, p.Codes[name])
		}
	}
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	if err := profileManager().DeleteProfile(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile '%s'\n", args[0])
	return nil
}

func runProfileExport(cmd *cobra.Command, args []string) error {
	if err := profileManager().ExportProfile(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported profile '%s' to %s\n", args[0], args[1])
	return nil
}

func runProfileImport(cmd *cobra.Command, args []string) error {
	name, err := profileManager().ImportProfile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported profile '%s'\n", name)
	return nil
}

func runProfileDescribe(cmd *cobra.Command, args []string) error {
	if err := profileManager().SetProfileDescription(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated description of '%s'\n", args[0])
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}
