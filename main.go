package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/kapitanov/chip8tick/internal/console"
	"github.com/kapitanov/chip8tick/internal/gui"
	"github.com/kapitanov/chip8tick/internal/hal"
	"github.com/kapitanov/chip8tick/internal/vm"
	"github.com/kapitanov/chip8tick/internal/web"
	"github.com/spf13/cobra"
	"github.com/sqweek/dialog"
)

func init() {
	// SDL and raylib must be driven from the main OS thread.
	runtime.LockOSThread()
}

type options struct {
	verbose  bool
	logLevel string
	display  string
	listen   string
	scale    int
	seed     uint64
	budget   time.Duration
}

func main() {
	cmd := newRootCommand()

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s [PATH_TO_ROM_FILE]", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "warn", "logging level: debug, info, warn, error")

	cmd.Flags().StringVarP(&opts.display, "display", "d", "sdl", "presenter: sdl, raylib, web, term, none")
	cmd.Flags().StringVar(&opts.listen, "listen", ":9999", "listen address for the web presenter")
	cmd.Flags().IntVar(&opts.scale, "scale", 0, "window pixel scale (0 = presenter default)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed for RND (0 = random)")
	cmd.Flags().DurationVar(&opts.budget, "budget", vm.DefaultBudget, "duration of one cycle")

	cmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return setupLogger(opts)
	}

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		path, err := romPath(args)
		if err != nil {
			return err
		}

		bs, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to load file %q: %w", path, err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, bs, opts)
	}

	cmd.AddCommand(newDisasmCommand())
	return cmd
}

func setupLogger(opts *options) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
	}

	loggerOpts := &slog.HandlerOptions{
		Level: level,
	}

	if opts.verbose {
		loggerOpts.Level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))
	return nil
}

// romPath returns the ROM given on the command line, or asks for one with a
// file dialog.
func romPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	path, err := dialog.File().Filter("CHIP-8 ROM", "ch8", "c8").Title("Open CHIP-8 ROM").Load()
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			return "", errors.New("no ROM file selected")
		}
		return "", fmt.Errorf("unable to open file dialog: %w", err)
	}
	return path, nil
}

func run(ctx context.Context, program []byte, opts *options) error {
	h, shutdown, err := openHAL(opts)
	if err != nil {
		return fmt.Errorf("unable to initialize hal: %w", err)
	}
	defer shutdown()

	for {
		machine, err := vm.New(program, machineOptions(opts)...)
		if err != nil {
			return err
		}

		err = machine.Run(ctx, h)

		if errors.Is(err, vm.ErrQuit) || errors.Is(err, context.Canceled) {
			slog.Info("stopped", "cycles", machine.Cycles())
			return nil
		}

		if errors.Is(err, vm.ErrReboot) {
			slog.Info("reboot")
			continue
		}

		return err
	}
}

func machineOptions(opts *options) []vm.Option {
	vmOpts := []vm.Option{vm.WithBudget(opts.budget)}
	if opts.seed != 0 {
		vmOpts = append(vmOpts, vm.WithRand(rand.New(rand.NewPCG(opts.seed, opts.seed))))
	}
	return vmOpts
}

func openHAL(opts *options) (vm.HAL, func(), error) {
	switch opts.display {
	case "sdl":
		h, err := hal.New(opts.scale)
		if err != nil {
			return nil, nil, err
		}
		return h, h.Shutdown, nil

	case "raylib":
		w := gui.New(opts.scale)
		return w, w.Close, nil

	case "web":
		s := web.NewServer(opts.listen)
		if err := s.Start(); err != nil {
			return nil, nil, err
		}
		return s, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.Shutdown(ctx); err != nil {
				slog.Error("failed to stop web server", "err", err)
			}
		}, nil

	case "term":
		t, err := console.Open()
		if err != nil {
			return nil, nil, err
		}
		return t, func() {
			if err := t.Close(); err != nil {
				slog.Error("failed to restore terminal", "err", err)
			}
		}, nil

	case "none":
		return vm.NopHAL{}, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown display %q", opts.display)
	}
}
