// Package cli implements the patientlists command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/config"
)

const binaryName = "patientlists"

var ErrListRequired = errors.New("--list is required")

type globalFlags struct {
	envFiles []string
	help     bool
}

// Run is the main entry point. Returns exit code.
func Run(ctx context.Context, out io.Writer, errOut io.Writer, args []string) int {
	o := NewIO(out, errOut)

	flags, remaining, err := parseGlobalFlags(args[1:])
	if err != nil {
		o.ErrPrintln("error:", err)
		printUsage(o)

		return 1
	}

	if flags.help || len(remaining) == 0 {
		printUsage(o)
		return 0
	}

	cfg, err := config.Load(flags.envFiles...)
	if err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	a := newApp(cfg, cfg.NewLogger(o.ErrOut()))

	for _, cmd := range a.commands() {
		if cmd.Name() == remaining[0] {
			return cmd.Run(ctx, o, remaining[1:])
		}
	}

	o.ErrPrintln("error: unknown command:", remaining[0])
	printUsage(o)

	return 1
}

// parseGlobalFlags consumes flags up to the first non-flag argument, which names the command.
func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	var flags globalFlags

	fs := flag.NewFlagSet(binaryName, flag.ContinueOnError)
	fs.SetOutput(&strings.Builder{})
	fs.SetInterspersed(false)
	fs.StringSliceVar(&flags.envFiles, "env-file", nil, "env files to load before reading the environment")
	fs.BoolVarP(&flags.help, "help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		return globalFlags{}, nil, err
	}

	return flags, fs.Args(), nil
}

func printUsage(o *IO) {
	o.Println("Usage:", binaryName, "[--env-file <path>] <command> [flags]")
	o.Println()
	o.Println("Commands:")

	for _, cmd := range (&app{}).commands() {
		o.Println(cmd.HelpLine())
	}

	o.Println()
	o.Println("Configuration is read from PATIENTLISTS_* environment variables.")
}
