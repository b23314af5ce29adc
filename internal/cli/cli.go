package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/sweepgrid/internal/app"
	"github.com/specialistvlad/sweepgrid/internal/errdefs"
	"github.com/specialistvlad/sweepgrid/internal/instrument"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Execute runs the command line in args. Results go to outW and logs to errW.
// Every returned error is an *ExitError.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := newRootCmd(outW, errW)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return toExitError(err)
	}
	return nil
}

func newRootCmd(outW, errW io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "sweepgrid",
		Short: "Multi-dimensional measurement sweeps over simulated instruments",
		Long: `sweepgrid runs nested parameter sweeps described in HCL plan files against
a station of instruments, collecting every measurement into N-dimensional
arrays and writing them as GNUPlot data files.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetVersionTemplate("sweepgrid version {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})

	root.AddCommand(newRunCmd(outW, errW), newPlanCmd(outW, errW), newVersionCmd(outW))
	return root
}

// flags shared by run and plan.
type flags struct {
	plan            string
	station         string
	location        string
	label           string
	out             string
	monitorURL      string
	monitorNS       string
	monitorInsecure bool
	uploadURL       string
	logFormat       string
	logLevel        string
	healthcheckPort int
	enqueue         bool
}

func (f *flags) register(cmd *cobra.Command, run bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.plan, "plan", "p", "", "Path to the plan file or directory (or pass it as the argument).")
	fs.StringVarP(&f.station, "station", "s", "", "Path to the station YAML inventory. Defaults to a dummy channel instrument named dci.")
	fs.StringVar(&f.logFormat, "log-format", defaultLogFormat(), "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	if !run {
		return
	}
	fs.StringVar(&f.location, "location", "", "Location format or literal location for the result collection.")
	fs.StringVar(&f.label, "label", "", "Run label, overrides the plan's run block.")
	fs.StringVarP(&f.out, "out", "o", app.DefaultOutDir, "Base directory for result collections.")
	fs.StringVar(&f.monitorURL, "monitor-url", "", "socket.io server receiving live progress events.")
	fs.StringVar(&f.monitorNS, "monitor-namespace", "/", "socket.io namespace for progress events.")
	fs.BoolVar(&f.monitorInsecure, "monitor-insecure", false, "Skip TLS verification for the monitor connection.")
	fs.StringVar(&f.uploadURL, "upload-url", "", "Base URL receiving an HTTP PUT of every written file.")
	fs.IntVar(&f.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	fs.BoolVar(&f.enqueue, "enqueue", false, "Wait for conflicting runs instead of failing.")
}

func (f *flags) config(args []string) (*app.Config, error) {
	path := f.plan
	if path == "" && len(args) > 0 {
		path = args[0]
	}
	cfg, err := app.NewConfig(app.Config{
		PlanPath:         path,
		StationPath:      f.station,
		Location:         f.location,
		Label:            f.label,
		OutDir:           f.out,
		MonitorURL:       f.monitorURL,
		MonitorNamespace: f.monitorNS,
		MonitorInsecure:  f.monitorInsecure,
		UploadURL:        f.uploadURL,
		LogFormat:        f.logFormat,
		LogLevel:         f.logLevel,
		HealthcheckPort:  f.healthcheckPort,
		Enqueue:          f.enqueue,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return cfg, nil
}

// defaultLogFormat is text on an interactive terminal and json otherwise.
func defaultLogFormat() string {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return "text"
	}
	return "json"
}

// toExitError maps configuration problems to ExitUsage and everything else
// to ExitFailure.
func toExitError(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	code := ExitFailure
	if errors.Is(err, errdefs.ErrConfiguration) ||
		errors.Is(err, errdefs.ErrUnsupported) ||
		errors.Is(err, instrument.ErrNoSuchAttribute) {
		code = ExitUsage
	}
	return &ExitError{Code: code, Message: err.Error()}
}

func newVersionCmd(outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintf(outW, "sweepgrid version %s\n", Version)
			return err
		},
	}
}
