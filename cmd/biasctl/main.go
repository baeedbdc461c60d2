// Command biasctl talks to a Bias amplifier directly over its parameter
// endpoint. It reads and writes single paths, captures the live state to a
// snapshot file and applies one back.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openbias/biasd/internal/codec"
	"github.com/openbias/biasd/internal/config"
	"github.com/openbias/biasd/internal/device"
	"github.com/openbias/biasd/internal/engine"
	"github.com/openbias/biasd/internal/logging"
	"github.com/openbias/biasd/internal/models"
	"github.com/openbias/biasd/internal/params"
)

const usage = `usage: biasctl [flags] <command> [args]

commands:
  info                 show model, serial and manufacturer
  read PATH...         read parameter values
  write PATH VALUE     write one value (true/false, integer, float or string)
  capture [-o FILE]    capture the live state as a snapshot (default stdout)
  apply FILE           apply a snapshot file ("-" for stdin)

flags:
`

func main() {
	fs := flag.NewFlagSet("biasctl", flag.ExitOnError)
	var (
		host    = fs.String("host", os.Getenv("BIASD_DEVICE_HOST"), "amplifier host")
		port    = fs.Int("port", 80, "amplifier HTTP port")
		timeout = fs.Duration("timeout", 5*time.Second, "per-request timeout")
		schema  = fs.String("schema", "auto", "parameter schema: auto, legacy, extended or late")
		debug   = fs.Bool("debug", false, "enable debug logging")
	)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	level := "warn"
	if *debug {
		level = "debug"
	}
	slog.SetDefault(logging.NewWriter(config.LoggingSettings{Level: level, Format: "text"}, "biasctl", os.Stderr))

	if fs.NArg() == 0 || *host == "" {
		fs.Usage()
		os.Exit(2)
	}

	client := device.New(device.Config{Host: *host, Port: *port, Timeout: *timeout, ClientID: device.NewClientID()})
	defer client.Disconnect()

	ctx := context.Background()
	if err := run(ctx, client, *schema, fs.Arg(0), fs.Args()[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "biasctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *device.Client, schema, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "info":
		info, err := c.GetDeviceInfo(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "model:        %s\nserial:       %s\nmanufacturer: %s\n", info.Model, info.Serial, info.Manufacturer)
		return nil

	case "read":
		if len(args) == 0 {
			return errors.New("read: at least one PATH is required")
		}
		vals, err := c.ReadValues(ctx, args)
		if err != nil {
			return err
		}
		for _, p := range args {
			v, ok := vals[p]
			if !ok {
				fmt.Fprintf(out, "%s\t<unavailable>\n", p)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", p, describe(p, v))
		}
		return nil

	case "write":
		if len(args) != 2 {
			return errors.New("write: PATH and VALUE are required")
		}
		v, err := parseValue(args[0], args[1])
		if err != nil {
			return err
		}
		ok, err := c.WriteValue(ctx, args[0], v)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("write: device rejected %s", args[0])
		}
		return nil

	case "capture":
		capFlags := flag.NewFlagSet("capture", flag.ContinueOnError)
		file := capFlags.String("o", "", "output file")
		if err := capFlags.Parse(args); err != nil {
			return err
		}
		eng, err := newEngine(ctx, c, schema)
		if err != nil {
			return err
		}
		snap, err := eng.Capture(ctx)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		if *file == "" {
			_, err = fmt.Fprintln(out, string(data))
			return err
		}
		return os.WriteFile(*file, append(data, '\n'), 0644)

	case "apply":
		if len(args) != 1 {
			return errors.New("apply: FILE is required")
		}
		snap, err := readSnapshot(args[0])
		if err != nil {
			return err
		}
		eng, err := newEngine(ctx, c, schema)
		if err != nil {
			return err
		}
		if err := eng.Apply(ctx, snap); err != nil {
			return err
		}
		fmt.Fprintln(out, "applied", args[0])
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func newEngine(ctx context.Context, c *device.Client, schema string) (*engine.Engine, error) {
	s, err := engine.Resolve(ctx, c, schema)
	if err != nil {
		return nil, err
	}
	return engine.New(c, s), nil
}

func readSnapshot(name string) (*models.Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return &snap, nil
}

// describe formats a read value, naming filter types and limiter units for
// table paths.
func describe(path string, v any) string {
	e, ok := params.NewTable(params.Late).Lookup(path)
	if !ok {
		return fmt.Sprint(v)
	}
	switch {
	case e.Key.Field == params.FieldType:
		if code, ok := codec.AsInt(v); ok {
			return fmt.Sprintf("%d (%s)", code, params.FilterTypeName(code))
		}
	case e.Key.Section == params.SectionLimiter && e.Key.Field == params.FieldThreshold:
		return fmt.Sprintf("%v %s", v, params.Limiters()[e.Key.Limiter].Unit)
	}
	return fmt.Sprint(v)
}

// parseValue converts a command-line value to the kind the parameter table
// gives path. Paths outside the table get the most specific kind that parses.
func parseValue(path, s string) (any, error) {
	if e, ok := params.NewTable(params.Late).Lookup(path); ok {
		var (
			v  any
			ok bool
		)
		switch e.Kind {
		case params.KindBool:
			v, ok = codec.AsBool(s)
		case params.KindInt:
			var n int
			n, ok = codec.AsInt(s)
			v = codec.Int(n)
		case params.KindFloat:
			v, ok = codec.AsFloat(s)
		default:
			v, ok = s, true
		}
		if !ok {
			return nil, fmt.Errorf("write: %q is not a valid value for %s", s, path)
		}
		return v, nil
	}

	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return codec.Int(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return s, nil
}
