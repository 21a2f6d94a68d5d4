// taskwirectl inspects and produces taskwire parcels and runs the admin
// server.
//
//	taskwirectl types
//	taskwirectl pack --type text --text "hello" --out hello.twp
//	taskwirectl inspect hello.twp
//	taskwirectl config init --config taskwire.toml
//	taskwirectl serve --config taskwire.toml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"unsafe"

	"github.com/danmuck/taskwire/internal/admin"
	"github.com/danmuck/taskwire/internal/config"
	"github.com/danmuck/taskwire/internal/descriptor"
	"github.com/danmuck/taskwire/internal/logging"
	"github.com/danmuck/taskwire/internal/parcel"
	"github.com/spf13/pflag"
)

// TextName is the registry name of plain string payloads.
const TextName = "text"

func init() {
	descriptor.MustRegister[string](TextName)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return nil
	}
	switch args[0] {
	case "types":
		return runTypes(args[1:], stdout)
	case "pack":
		return runPack(args[1:], stdout)
	case "inspect":
		return runInspect(args[1:], stdout)
	case "config":
		return runConfig(args[1:], stdout)
	case "serve":
		return runServe(args[1:])
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: taskwirectl <command> [flags]

commands:
  types                     list registered payload types
  pack                      encode a text or byte payload into a parcel file
  inspect <file>...         print parcel headers and attributes
  config init|validate      write or check a TOML config
  serve                     run the admin HTTP server
`)
}

func runTypes(args []string, stdout io.Writer) error {
	var asJSON bool
	fs := pflag.NewFlagSet("types", pflag.ContinueOnError)
	fs.BoolVar(&asJSON, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	entries := descriptor.Default().Entries()
	if asJSON {
		out := make([]admin.TypeView, 0, len(entries))
		for _, e := range entries {
			out = append(out, admin.TypeView{Name: e.Name, Tag: e.Tag.String(), Type: e.Type.String(), Size: uint64(e.Size)})
		}
		return writeJSON(stdout, out)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTAG\tTYPE\tSIZE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", e.Name, e.Tag, e.Type, e.Size)
	}
	return tw.Flush()
}

func runPack(args []string, stdout io.Writer) error {
	var (
		typeName    string
		text        string
		input       string
		output      string
		compression string
		version     uint32
		task        string
	)
	fs := pflag.NewFlagSet("pack", pflag.ContinueOnError)
	fs.StringVar(&typeName, "type", TextName, "payload type: text or byte")
	fs.StringVar(&text, "text", "", "payload text (default: read --in)")
	fs.StringVar(&input, "in", "", "read payload from file")
	fs.StringVarP(&output, "out", "o", "", "write parcel to file (default: stdout)")
	fs.StringVar(&compression, "compression", "none", "none, lz4 or zstd")
	fs.Uint32Var(&version, "version", 0, "payload schema version")
	fs.StringVar(&task, "task", "", "task name attribute")
	if err := fs.Parse(args); err != nil {
		return err
	}

	payload := []byte(text)
	if input != "" {
		data, err := os.ReadFile(input)
		if err != nil {
			return err
		}
		payload = data
	}
	comp, err := parcel.ParseCompression(compression)
	if err != nil {
		return err
	}
	opts := parcel.Options{Version: version, Compression: comp}
	if task != "" {
		opts.Attrs = append(opts.Attrs, parcel.StringAttr(parcel.AttrTask, task))
	}

	reg := descriptor.Default()
	var data []byte
	switch typeName {
	case TextName:
		s := string(payload)
		d := descriptor.Of[string]()
		data, err = parcel.Pack(reg, d, unsafe.Pointer(&s), d.Size(), opts)
	case descriptor.ByteName:
		slot := descriptor.NewBlobSlot(len(payload))
		slot.Construct()
		copy(slot.Bytes(), payload)
		data, err = parcel.PackSlot(reg, slot, opts)
	default:
		return fmt.Errorf("pack supports %q and %q, not %q", TextName, descriptor.ByteName, typeName)
	}
	if err != nil {
		return err
	}

	if output == "" {
		return parcel.WriteFrame(stdout, data)
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if err := parcel.WriteFrame(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runInspect(args []string, stdout io.Writer) error {
	var maxBytes uint32
	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	fs.Uint32Var(&maxBytes, "max-bytes", parcel.DefaultLimits().MaxPayloadBytes, "largest parcel body accepted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("inspect: at least one parcel file is required")
	}
	limits := parcel.DefaultLimits()
	limits.MaxPayloadBytes = maxBytes

	views := []admin.ParcelView{}
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		for {
			data, err := parcel.ReadFrame(f, limits)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				_ = f.Close()
				return fmt.Errorf("%s: %w", path, err)
			}
			h, attrs, err := parcel.Inspect(data, limits)
			if err != nil {
				_ = f.Close()
				return fmt.Errorf("%s: %w", path, err)
			}
			views = append(views, admin.InspectView(descriptor.Default(), h, attrs))
		}
		_ = f.Close()
	}
	return writeJSON(stdout, views)
}

func runConfig(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("config: expected init or validate")
	}
	var (
		path  string
		force bool
	)
	fs := pflag.NewFlagSet("config "+args[0], pflag.ContinueOnError)
	fs.StringVarP(&path, "config", "c", "taskwire.toml", "config path")
	fs.BoolVar(&force, "force", false, "overwrite existing config file")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	switch args[0] {
	case "init":
		if err := config.WriteTemplate(path, force); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", path)
		return nil
	case "validate":
		if _, err := config.Load(path); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "validated %s\n", path)
		return nil
	default:
		return fmt.Errorf("config: unknown subcommand %q", args[0])
	}
}

func runServe(args []string) error {
	var path string
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.StringVarP(&path, "config", "c", "", "config path (default: built-in defaults)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	logging.Configure(logging.ProfileRuntime, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	srv := admin.New(cfg.Admin.Addr, cfg.Admin.CorsOrigins, descriptor.Default(), cfg.ParcelLimits())
	return srv.Run(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
