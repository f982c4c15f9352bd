package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/benwiggins/vgmplay/pkg/delay"
	"github.com/benwiggins/vgmplay/pkg/hw"
	"github.com/benwiggins/vgmplay/pkg/speaker"
	"github.com/benwiggins/vgmplay/pkg/vgm"
	"golang.org/x/term"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const (
	backendAuto = "auto"
	backendPort = "port"
	backendEmu  = "emu"
)

var errUsage = errors.New("usage")

type options struct {
	backend string
	burn    int
	info    bool
	verbose bool
	plain   bool
	path    string
	ratio   delay.Ratio // zero means calibrate
}

const usage = "Usage: vgmplay [-backend auto|port|emu] [-burn N] [-info] [-v] [-plain] [file.vgm [n d]]"

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options

	flagSet := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.backend, "backend", backendAuto, "output backend: port (/dev/port), emu (sound card) or auto")
	flagSet.IntVar(&opts.burn, "burn", delay.DefaultBurn, "busy-work units per waiter iteration")
	flagSet.BoolVar(&opts.info, "info", false, "print the header and GD3 tag, then exit")
	flagSet.BoolVar(&opts.verbose, "v", false, "debug logging")
	flagSet.BoolVar(&opts.plain, "plain", false, "disable styled output")

	flagSet.Usage = func() {
		flagSet.SetOutput(stderr)
		fmt.Fprintln(stderr, usage)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			flagSet.Usage()
			return opts, err
		}
		return opts, fmt.Errorf("%w: %v", errUsage, err)
	}

	switch opts.backend {
	case backendAuto, backendPort, backendEmu:
	default:
		return opts, fmt.Errorf("%w: unknown backend %q", errUsage, opts.backend)
	}
	if opts.burn < 1 {
		return opts, fmt.Errorf("%w: -burn must be at least 1", errUsage)
	}

	rest := flagSet.Args()
	switch len(rest) {
	case 0:
	case 1:
		opts.path = rest[0]
	case 3:
		opts.path = rest[0]
		n, errN := strconv.Atoi(rest[1])
		d, errD := strconv.Atoi(rest[2])
		if errN != nil || errD != nil {
			return opts, fmt.Errorf("%w: delay ratio must be two integers, got %q %q", errUsage, rest[1], rest[2])
		}
		r, err := delay.NewRatio(n, d)
		if err != nil {
			return opts, fmt.Errorf("%w: %v", errUsage, err)
		}
		opts.ratio = r
	default:
		return opts, fmt.Errorf("%w: expected a file and an optional n d pair, got %d arguments", errUsage, len(rest))
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n%s\n", err, usage)
		return exitUsage
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	styled := !opts.plain && term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
	out := reporter{w: os.Stdout, errw: os.Stderr, st: newStyles(!styled)}

	if opts.path == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintf(os.Stderr, "Error: no file given\n%s\n", usage)
			return exitUsage
		}
		opts.path, err = browse(".")
		if err != nil {
			out.fail(err)
			return exitError
		}
		if opts.path == "" {
			return exitOK
		}
	}

	f, err := loadFile(opts.path)
	if err != nil {
		out.fail(err)
		return exitError
	}

	out.header(opts.path, f)
	if tag, err := f.GD3(); err == nil {
		out.gd3(tag)
	} else if !errors.Is(err, vgm.ErrNoGD3) {
		logger.Warn("could not read GD3 tag", slog.Any("err", err))
	}
	if opts.info {
		return exitOK
	}

	ratio := opts.ratio
	spin := delay.Spin(opts.burn)
	if ratio == (delay.Ratio{}) {
		cal := &delay.Calibrator{Ticks: delay.NewHostTicks(), Spin: spin, Logger: logger}
		ratio, err = cal.Calibrate()
		if err != nil {
			out.fail(err)
			return exitError
		}
	}
	out.ratio(ratio, opts.ratio == (delay.Ratio{}))

	waiter, err := delay.NewWaiter(ratio.Params(), spin)
	if err != nil {
		out.fail(err)
		return exitError
	}

	output, closeBackend, err := openBackend(opts.backend, f.Header.SN76489Clock, logger)
	if err != nil {
		out.fail(err)
		return exitError
	}
	defer closeBackend()

	stopOnSignal(output)

	in := vgm.NewInterpreter(f.Stream, f.Header.AuxClock(), output, waiter)
	in.Logger = logger

	start := time.Now()
	err = in.Run()
	out.played(time.Since(start), in.Samples(), &f.Header)
	if err != nil {
		out.fail(err)
		return exitError
	}
	return exitOK
}

func loadFile(path string) (*vgm.File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	f, err := vgm.Load(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// openBackend picks where the port writes go. auto tries /dev/port first and
// falls back to the emulator when it cannot be opened.
func openBackend(name string, toneClock uint32, logger *slog.Logger) (hw.Output, func(), error) {
	if name == backendPort || name == backendAuto {
		dp, err := hw.OpenDevPort()
		if err == nil {
			return hw.NewPorts(dp), func() {
				if err := dp.Err(); err != nil {
					logger.Error("port access failed", slog.Any("err", err))
				}
				dp.Close()
			}, nil
		}
		if name == backendPort {
			return nil, nil, err
		}
		logger.Info("falling back to emulated output", slog.Any("err", err))
	}

	emu := hw.NewEmulator(toneClock, vgm.SampleRate)
	if err := speaker.Init(vgm.SampleRate, vgm.SampleRate/20); err != nil {
		return nil, nil, err
	}
	finished := make(chan struct{})
	speaker.Play(emu, func() {
		close(finished)
	})
	return hw.NewPorts(emu), func() {
		emu.Finish()
		select {
		case <-finished:
		case <-time.After(time.Second):
		}
		speaker.Close()
	}, nil
}

// stopOnSignal silences the hardware when the player is interrupted. The
// interpreter's own cleanup does not run on os.Exit.
func stopOnSignal(output hw.Output) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		output.Silence()
		output.SpeakerStop()
		slog.Info("interrupted", slog.String("signal", s.String()))
		os.Exit(exitError)
	}()
}
