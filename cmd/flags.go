package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"lcd-translator/pkg/config"
	"lcd-translator/pkg/proto"
)

// codeOverrides collects --codes kind=0xNN flags. Several pairs may be
// given in one flag separated by commas.
type codeOverrides map[string]uint8

func (c *codeOverrides) String() string {
	if c == nil || len(*c) == 0 {
		return ""
	}
	parts := make([]string, 0, len(*c))
	for _, name := range slices.Sorted(maps.Keys(*c)) {
		parts = append(parts, fmt.Sprintf("%s=0x%02x", name, (*c)[name]))
	}
	return strings.Join(parts, ",")
}

func (c *codeOverrides) Set(value string) error {
	if *c == nil {
		*c = make(codeOverrides)
	}
	for _, pair := range strings.Split(value, ",") {
		name, code, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return fmt.Errorf("expected kind=code, got %q", pair)
		}
		if _, err := proto.ParseKind(name); err != nil {
			return err
		}
		n, err := strconv.ParseUint(code, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid code %q for %s: %w", code, name, err)
		}
		(*c)[name] = uint8(n)
	}
	return nil
}

func (c *codeOverrides) Type() string {
	return "kind=code"
}

// profileFlags are the profile fields settable from the command line
type profileFlags struct {
	baudRate    int
	dataBits    int
	stopBits    int
	parity      string
	timeout     time.Duration
	display     string
	simulate    bool
	rows        int
	columns     int
	codes       codeOverrides
	queueSize   int
	retries     int
	historySize int
}

func (f *profileFlags) register(fs *pflag.FlagSet) {
	def := config.DefaultProfile()

	fs.IntVarP(&f.baudRate, "baud", "b", def.Upstream.BaudRate, "baud rate")
	fs.IntVarP(&f.dataBits, "data", "d", def.Upstream.DataBits, "data bits (5, 6, 7, or 8)")
	fs.IntVarP(&f.stopBits, "stop", "s", def.Upstream.StopBits, "stop bits (1 or 2)")
	fs.StringVar(&f.parity, "parity", def.Upstream.Parity, "parity (none, odd, even, mark, space)")
	fs.DurationVarP(&f.timeout, "timeout", "t", def.Upstream.Timeout, "serial read timeout")
	fs.StringVar(&f.display, "display", def.Display, "SLCD character device")
	fs.BoolVar(&f.simulate, "simulate", false, "use a simulated display instead of a device")
	fs.IntVar(&f.rows, "rows", def.Rows, "rows of the simulated display")
	fs.IntVar(&f.columns, "cols", def.Columns, "columns of the simulated display")
	fs.Var(&f.codes, "codes", "move a command to another code, e.g. clr_display=0x10 (repeatable)")
	fs.IntVar(&f.queueSize, "queue-size", def.QueueSize, "input queue size in bytes (power of two)")
	fs.IntVar(&f.retries, "retries", def.Flush.MaxRetries, "display write retries before bytes are dropped (-1 retries forever)")
	fs.IntVar(&f.historySize, "history-size", def.HistorySize, "bytes of traffic history to keep")
}

// apply copies the flags the user set onto p
func (f *profileFlags) apply(fs *pflag.FlagSet, p *config.Profile) {
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}

	set("baud", func() { p.Upstream.BaudRate = f.baudRate })
	set("data", func() { p.Upstream.DataBits = f.dataBits })
	set("stop", func() { p.Upstream.StopBits = f.stopBits })
	set("parity", func() { p.Upstream.Parity = f.parity })
	set("timeout", func() { p.Upstream.Timeout = f.timeout })
	set("display", func() { p.Display = f.display; p.Simulate = false })
	set("simulate", func() { p.Simulate = f.simulate })
	set("rows", func() { p.Rows = f.rows })
	set("cols", func() { p.Columns = f.columns })
	set("queue-size", func() { p.QueueSize = f.queueSize })
	set("retries", func() { p.Flush.MaxRetries = f.retries })
	set("history-size", func() { p.HistorySize = f.historySize })

	if len(f.codes) > 0 {
		codes := maps.Clone(p.Codes)
		if codes == nil {
			codes = make(map[string]uint8, len(f.codes))
		}
		maps.Copy(codes, f.codes)
		p.Codes = codes
	}
}
