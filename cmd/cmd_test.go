package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"lcd-translator/pkg/capture"
	"lcd-translator/pkg/config"
	"lcd-translator/pkg/proto"
	"lcd-translator/pkg/serial"
	"lcd-translator/pkg/slcd"
)

// resetFlags puts every flag back to its default so that commands can be
// executed repeatedly within one test binary.
func resetFlags() {
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				if _, ok := f.Value.(*codeOverrides); !ok {
					f.Value.Set(f.DefValue)
				}
				f.Changed = false
			})
		}
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)

	runFlags.codes = nil
	profileFlagsSave.codes = nil
	codesFlags.codes = nil
	replayCodes = nil
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	output := &bytes.Buffer{}
	rootCmd.SetOut(output)
	rootCmd.SetErr(output)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return output.String(), err
}

// TestRootCommand tests the root command
func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "lcd-translator" {
		t.Errorf("rootCmd.Use = %s, want lcd-translator", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("rootCmd.Short should not be empty")
	}

	subcommands := rootCmd.Commands()
	expectedCommands := []string{"list", "run", "profile", "replay", "codes"}

	for _, expected := range expectedCommands {
		found := false
		for _, cmd := range subcommands {
			if cmd.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected subcommand '%s' not found", expected)
		}
	}
}

// TestCommandStructure tests that all commands are properly structured
func TestCommandStructure(t *testing.T) {
	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		if cmd.Use == "" {
			t.Errorf("Command %v has empty Use field", cmd)
		}
		if cmd.Short == "" {
			t.Errorf("Command %s has empty Short description", cmd.Use)
		}
		if cmd.HasSubCommands() && cmd.Long == "" {
			t.Errorf("Command %s has empty Long description", cmd.Use)
		}
		for _, sub := range cmd.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

func TestCodeOverrides_Set(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    string
		wantErr bool
	}{
		{"single", []string{"clr_display=0x10"}, "clr_display=0x10", false},
		{"decimal", []string{"clr_display=16"}, "clr_display=0x10", false},
		{"comma separated", []string{"cursor_left=0x20, clr_display=0x10"}, "clr_display=0x10,cursor_left=0x20", false},
		{"repeated", []string{"clr_display=0x10", "clr_display=0x11"}, "clr_display=0x11", false},
		{"unknown kind", []string{"beep=0x10"}, "", true},
		{"missing code", []string{"clr_display"}, "", true},
		{"code out of range", []string{"clr_display=0x100"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c codeOverrides
			var err error
			for _, v := range tt.values {
				if err = c.Set(v); err != nil {
					break
				}
			}

			if tt.wantErr {
				if err == nil {
					t.Errorf("Set(%q) expected error", tt.values)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set(%q) error = %v", tt.values, err)
			}
			if got := c.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProfileFlags_Apply(t *testing.T) {
	var f profileFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)

	err := fs.Parse([]string{
		"--baud", "9600",
		"--rows", "2",
		"--display", "/dev/slcd1",
		"--codes", "clr_display=0x10",
		"--retries", "3",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	p := config.DefaultProfile()
	p.Simulate = true
	p.Codes = map[string]uint8{"cursor_left": 0x20}
	f.apply(fs, &p)

	if p.Upstream.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", p.Upstream.BaudRate)
	}
	if p.Upstream.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8 (unchanged)", p.Upstream.DataBits)
	}
	if p.Rows != 2 || p.Columns != 20 {
		t.Errorf("geometry = %dx%d, want 2x20", p.Rows, p.Columns)
	}
	if p.Display != "/dev/slcd1" || p.Simulate {
		t.Errorf("display = %s simulate=%v, want /dev/slcd1 on hardware", p.Display, p.Simulate)
	}
	if p.Flush.MaxRetries != 3 {
		t.Errorf("Flush.MaxRetries = %d, want 3", p.Flush.MaxRetries)
	}
	if p.Codes["clr_display"] != 0x10 || p.Codes["cursor_left"] != 0x20 {
		t.Errorf("Codes = %v, want clr_display and cursor_left overrides", p.Codes)
	}
}

// TestIsSerialPort tests the isSerialPort helper function
func TestIsSerialPort(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Windows COM port", "COM1", true},
		{"Windows COM port lowercase", "com3", true},
		{"Linux serial device", "/dev/ttyUSB0", true},
		{"macOS serial device", "/dev/cu.usbserial", true},
		{"Not a serial port", "myprofile", false},
		{"Random text", "hello", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isSerialPort(tt.input)
			if result != tt.expected {
				t.Errorf("isSerialPort(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPrintPorts(t *testing.T) {
	ports := []serial.PortInfo{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", Product: "FT232R"},
		{Name: "/dev/ttyS0"},
	}

	tests := []struct {
		name    string
		ports   []serial.PortInfo
		format  string
		details bool
		want    []string
		wantErr bool
	}{
		{"empty table", nil, "table", false, []string{"No serial ports found."}, false},
		{"table", ports, "table", false, []string{"Found 2 serial port(s)", "/dev/ttyS0"}, false},
		{"table details", ports, "table", true, []string{"[USB] VID:0403 PID:6001 - FT232R"}, false},
		{"csv", ports, "csv", false, []string{"port\n/dev/ttyUSB0\n/dev/ttyS0\n"}, false},
		{"csv details", ports, "csv", true, []string{"/dev/ttyUSB0,true,0403,6001,FT232R,"}, false},
		{"json", ports, "json", false, []string{`"/dev/ttyUSB0"`, `"/dev/ttyS0"`}, false},
		{"json details", ports, "json", true, []string{`"vid": "0403"`, `"name": "/dev/ttyS0"`}, false},
		{"unknown format", ports, "xml", false, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := printPorts(&buf, tt.ports, tt.format, tt.details)
			if (err != nil) != tt.wantErr {
				t.Fatalf("printPorts() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("printPorts() output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestProfileCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--config-dir", dir, "profile", "save", "bench",
		"--port", "/dev/ttyACM0", "--simulate", "--rows", "2", "--cols", "16",
		"--codes", "clr_display=0x10", "--description", "desk unit")
	if err != nil {
		t.Fatalf("profile save error = %v", err)
	}
	if !strings.Contains(out, "Saved profile 'bench'") {
		t.Errorf("profile save output = %q", out)
	}

	out, err = execute(t, "--config-dir", dir, "profile", "list")
	if err != nil {
		t.Fatalf("profile list error = %v", err)
	}
	for _, want := range []string{"bench", "/dev/ttyACM0", "simulated 2x16", "desk unit"} {
		if !strings.Contains(out, want) {
			t.Errorf("profile list output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "--config-dir", dir, "profile", "list", "nomatch")
	if err != nil {
		t.Fatalf("profile list nomatch error = %v", err)
	}
	if !strings.Contains(out, "No profiles found.") {
		t.Errorf("profile list nomatch output = %q", out)
	}

	out, err = execute(t, "--config-dir", dir, "profile", "save", "bench", "--baud", "9600")
	if err != nil {
		t.Fatalf("profile update error = %v", err)
	}
	if !strings.Contains(out, "Updated profile 'bench'") {
		t.Errorf("profile update output = %q", out)
	}

	out, err = execute(t, "--config-dir", dir, "profile", "show", "bench")
	if err != nil {
		t.Fatalf("profile show error = %v", err)
	}
	for _, want := range []string{"9600 8N1", "Geometry: 2 rows x 16 columns", "clr_display = 0x10", "Description: desk unit"} {
		if !strings.Contains(out, want) {
			t.Errorf("profile show output missing %q:\n%s", want, out)
		}
	}

	exported := filepath.Join(dir, "bench.yaml")
	if _, err := execute(t, "--config-dir", dir, "profile", "export", "bench", exported); err != nil {
		t.Fatalf("profile export error = %v", err)
	}
	if _, err := execute(t, "--config-dir", dir, "profile", "delete", "bench"); err != nil {
		t.Fatalf("profile delete error = %v", err)
	}
	if _, err := execute(t, "--config-dir", dir, "profile", "show", "bench"); err == nil {
		t.Error("profile show after delete expected error")
	}

	out, err = execute(t, "--config-dir", dir, "profile", "import", exported)
	if err != nil {
		t.Fatalf("profile import error = %v", err)
	}
	if !strings.Contains(out, "Imported profile 'bench'") {
		t.Errorf("profile import output = %q", out)
	}

	if _, err := execute(t, "--config-dir", dir, "profile", "describe", "bench", "bench unit"); err != nil {
		t.Fatalf("profile describe error = %v", err)
	}
	out, _ = execute(t, "--config-dir", dir, "profile", "show", "bench")
	if !strings.Contains(out, "Description: bench unit") {
		t.Errorf("profile show after describe output = %q", out)
	}
}

func TestCodesCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--config-dir", dir, "codes")
	if err != nil {
		t.Fatalf("codes error = %v", err)
	}
	for _, want := range []string{"0x58  clr_display", "0x47  set_cursor_pos", "translated", "ignored"} {
		if !strings.Contains(out, want) {
			t.Errorf("codes output missing %q:\n%s", want, out)
		}
	}
	for _, kind := range proto.Kinds() {
		if !strings.Contains(out, "  "+kind.String()+"  ") {
			t.Errorf("codes output does not list %s:\n%s", kind, out)
		}
	}

	out, err = execute(t, "--config-dir", dir, "codes", "--codes", "clr_display=0x10")
	if err != nil {
		t.Fatalf("codes --codes error = %v", err)
	}
	if !strings.Contains(out, "0x10  clr_display") {
		t.Errorf("codes --codes output missing moved entry:\n%s", out)
	}
	if strings.Contains(out, "0x58") {
		t.Errorf("codes --codes output still lists 0x58:\n%s", out)
	}

	if _, err := execute(t, "--config-dir", dir, "codes", "--codes", "clr_display=0x47"); err == nil {
		t.Error("codes with a colliding override expected error")
	}
	if _, err := execute(t, "--config-dir", dir, "codes", "missing"); err == nil {
		t.Error("codes with an unknown profile expected error")
	}
}

func writeCapture(t *testing.T, chunks ...[]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "session.cap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	rec := &capture.Recorder{Dest: f}
	for _, chunk := range chunks {
		if err := rec.Record(chunk); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	return path
}

func TestReplayCommand(t *testing.T) {
	path := writeCapture(t,
		[]byte("Hello"),
		[]byte{0xfe, 0x47, 1, 2},
		[]byte("World"),
	)

	out, err := execute(t, "replay", path, "--rows", "2", "--cols", "8")
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	for _, want := range []string{"|Hello   |", "|World   |", "cursor: row 1 col 5", "Literals: 10", "Commands: 1 (0 unsupported)", "History: "} {
		if !strings.Contains(out, want) {
			t.Errorf("replay output missing %q:\n%s", want, out)
		}
	}
}

func TestReplayCommand_Errors(t *testing.T) {
	if _, err := execute(t, "replay", filepath.Join(t.TempDir(), "missing.cap")); err == nil {
		t.Error("replay of a missing file expected error")
	}

	path := writeCapture(t, []byte("Hi"))
	if _, err := execute(t, "replay", path, "--rows", "0"); err == nil {
		t.Error("replay with zero rows expected error")
	}
}

func TestRunCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "--config-dir", dir, "run", "nosuchprofile")
	if err == nil || !strings.Contains(err.Error(), "neither a serial port nor a saved profile") {
		t.Errorf("run with unknown target error = %v", err)
	}

	_, err = execute(t, "--config-dir", dir, "run", "/dev/ttyUSB0", "--view")
	if err == nil || !strings.Contains(err.Error(), "--view needs") {
		t.Errorf("run --view without a simulator error = %v", err)
	}
}

func TestRenderScreen(t *testing.T) {
	screen := slcd.Screen{
		Cells:  [][]byte{[]byte("Hi  "), []byte("ab\x01 ")},
		Cursor: slcd.CursorPos{Row: 1, Column: 2},
	}

	var buf bytes.Buffer
	renderScreen(&buf, screen)

	want := "+----+\n|Hi  |\n|ab· |\n+----+\ncursor: row 1 col 2\n"
	if buf.String() != want {
		t.Errorf("renderScreen() = %q, want %q", buf.String(), want)
	}
}
