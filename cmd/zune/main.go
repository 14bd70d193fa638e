// Command zune converts images between formats and applies operations to
// them in the order they are given on the command line.
//
//	zune -i a.ppm --resize 100,50 --grayscale -o b.png -o - --output-format png
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	zune "github.com/Erithax/zune-image"
	"github.com/Erithax/zune-image/adapters/vips"
	"github.com/Erithax/zune-image/config"
	"github.com/Erithax/zune-image/core"
	"github.com/Erithax/zune-image/hooks"
)

const (
	groupIO         = "io"
	groupOperations = "operations"
	groupFilters    = "filters"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	vips.Shutdown()
	if err != nil {
		os.Exit(1)
	}
}

type options struct {
	inputs       []string
	outputs      []string
	outputFormat string
	view         bool
	probe        bool
	formats      bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "zune -i INPUT [-o OUTPUT]... [operations]",
		Short:        "Convert images and apply operations in command-line order",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.AddFlagSet(ioFlags(&opts))
	flags.AddFlagSet(operationFlags())
	flags.AddFlagSet(filterFlags())
	return cmd
}

func ioFlags(o *options) *pflag.FlagSet {
	fs := pflag.NewFlagSet(groupIO, pflag.ContinueOnError)
	fs.StringArrayVarP(&o.inputs, "in", "i", nil, "input file, or - for standard input (repeatable)")
	fs.StringArrayVarP(&o.outputs, "out", "o", nil, "output file, s3://bucket/key, or - for standard output (repeatable)")
	fs.StringVar(&o.outputFormat, "output-format", "", "format for standard output targets")
	fs.BoolVar(&o.view, "view", false, "open every produced image in the default viewer")
	fs.BoolVar(&o.probe, "probe", false, "print image information as JSON and exit")
	fs.BoolVar(&o.formats, "formats", false, "list supported formats and exit")

	fs.Bool("keep-going", false, "continue with the next input when one fails")
	fs.Int("quality", 0, "encoder quality 1-100")
	fs.Bool("lossless", false, "prefer lossless encoding where the format allows it")
	fs.Bool("strict", false, "reject malformed or trailing input data")
	fs.Int("max-width", 0, "refuse images wider than this")
	fs.Int("max-height", 0, "refuse images taller than this")
	fs.Bool("make-dirs", false, "create missing output directories")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-format", "", "text or json")
	fs.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")
	fs.String("trace", "", "span exporter: none, stdout or otlp")
	fs.String("trace-endpoint", "", "OTLP/HTTP endpoint")
	return fs
}

func operationFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet(groupOperations, pflag.ContinueOnError)
	fs.Bool("flip", false, "flip vertically")
	fs.Bool("flop", false, "flip horizontally")
	fs.Bool("h-flip", false, "flip horizontally")
	fs.Bool("transpose", false, "swap rows and columns")
	fs.Bool("grayscale", false, "convert to luma")
	fs.Bool("invert", false, "invert every channel")
	fs.Bool("auto-orient", false, "apply the EXIF orientation")
	fs.String("mirror", "", "mirror one half onto the other: north, south, east or west")
	fs.String("median", "", "median filter RADIUS")
	fs.StringSlice("statistic", nil, "RADIUS,MODE where MODE is min, max, mean or median")
	fs.String("brighten", "", "add VALUE (-1..1) to every channel")
	fs.StringSlice("crop", nil, "WIDTH,HEIGHT,X,Y")
	fs.StringSlice("threshold", nil, "VALUE,MODE where MODE is binary, binary_inv, thresh_trunc or thresh_to_zero")
	fs.StringSlice("stretch-contrast", nil, "LOWER,UPPER")
	fs.String("gamma", "", "gamma correction VALUE")
	fs.String("contrast", "", "contrast adjustment in percent")
	fs.StringSlice("resize", nil, "WIDTH,HEIGHT; 0 keeps the aspect ratio")
	fs.String("depth", "", "bit depth: 8 or 16")
	fs.String("colorspace", "", "rgb, rgba, luma, lumaa, cmyk, ycbcr, hsl or hsv")
	fs.String("exposure", "", "exposure adjustment in stops")
	return fs
}

func filterFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet(groupFilters, pflag.ContinueOnError)
	fs.String("box-blur", "", "box blur RADIUS")
	fs.String("blur", "", "gaussian blur SIGMA")
	fs.String("sharpen", "", "unsharp SIGMA")
	fs.Bool("sobel", false, "sobel edge filter")
	fs.Bool("emboss", false, "emboss filter")
	fs.String("edges", "", "edge detection RADIUS")
	return fs
}

// loadConfig layers explicitly set flags over ZUNE_* environment variables.
func loadConfig(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Load()
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "keep-going":
			cfg.ContinueOnError, err = fs.GetBool(f.Name)
		case "quality":
			cfg.DefaultQuality, err = fs.GetInt(f.Name)
		case "lossless":
			cfg.Lossless, err = fs.GetBool(f.Name)
		case "strict":
			cfg.Strict, err = fs.GetBool(f.Name)
		case "max-width":
			cfg.MaxWidth, err = fs.GetInt(f.Name)
		case "max-height":
			cfg.MaxHeight, err = fs.GetInt(f.Name)
		case "make-dirs":
			cfg.MakeDirs, err = fs.GetBool(f.Name)
		case "log-level":
			cfg.LogLevel = f.Value.String()
		case "log-format":
			cfg.LogFormat = f.Value.String()
		case "metrics-textfile":
			cfg.MetricsTextfile = f.Value.String()
		case "trace":
			cfg.Trace.Exporter = f.Value.String()
		case "trace-endpoint":
			cfg.Trace.Endpoint = f.Value.String()
		}
	})
	if err != nil {
		return cfg, err
	}
	return cfg, config.Validate(cfg)
}

func run(cmd *cobra.Command, opts options, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	reg := zune.NewRegistry(cfg)
	if opts.formats {
		return printFormats(stdout, reg.Formats())
	}
	if len(opts.inputs) == 0 {
		return errors.New("at least one --in is required")
	}

	logger, err := hooks.NewHandlerLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	shutdown, err := hooks.SetupTracing(ctx, hooks.TraceConfig{
		ServiceName:  cfg.Trace.ServiceName,
		Exporter:     cfg.Trace.Exporter,
		OTLPEndpoint: cfg.Trace.Endpoint,
		OTLPInsecure: cfg.Trace.Insecure,
	}, stderr, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("tracing.shutdown", "error", err)
		}
	}()

	prom := hooks.NewPrometheusMetrics()
	stats := hooks.NewInMemoryMetrics()
	conv, err := zune.New(cfg,
		zune.WithRegistry(reg),
		zune.WithLogger(logger),
		zune.WithMetrics(hooks.Collectors{prom, stats}),
		zune.WithStdio(cmd.InOrStdin(), stdout),
	)
	if err != nil {
		return err
	}

	res, runErr := conv.Run(ctx, zune.Request{
		Inputs:       opts.inputs,
		Outputs:      opts.outputs,
		OutputFormat: opts.outputFormat,
		Args:         newFlagArgs(cmd.Flags(), groupIO, groupOperations, groupFilters),
		View:         opts.view,
		Probe:        opts.probe,
	})
	for _, sr := range res.Sources {
		for _, r := range sr.Report.Failed() {
			fmt.Fprintf(stderr, "zune: %s: %v\n", sr.Input, r.Err)
		}
	}
	snap := stats.Snapshot()
	for _, name := range snap.Names() {
		st := snap.Steps[name]
		logger.Debug("step.summary", "step", name, "calls", st.Calls, "errors", st.Errors, "mean", st.Mean(), "max", st.Max)
	}
	if cfg.MetricsTextfile != "" {
		if err := prom.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn("metrics.write", "error", err)
		}
	}
	return runErr
}

func printFormats(w io.Writer, caps []core.Capability) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tDECODE\tENCODE\tSNIFFED")
	for _, c := range caps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Format, yes(c.Decode), yes(c.Encode), yes(c.Sniffed))
	}
	return tw.Flush()
}

func yes(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
