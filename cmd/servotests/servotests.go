package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/config"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/logging"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/servo"
)

type options struct {
	Config string `short:"c" long:"config" default:"/cfg/pantracker.yaml" description:"Config file"`
	Dummy  bool   `long:"dummy" description:"Drive a dummy PWM output instead of the servo"`
	Debug  bool   `short:"d" long:"debug" description:"Debug logging"`
}

type angleSetter interface {
	SetAngle(angle float64) error
}

// parseOptions parses args; when ok is false the program should exit with
// code (0 after --help).
func parseOptions(args []string) (opts options, code int, ok bool) {
	if _, err := flags.ParseArgs(&opts, args); err != nil {
		if flagsErr, isFlagsErr := err.(*flags.Error); isFlagsErr && flagsErr.Type == flags.ErrHelp {
			return opts, 0, false
		}
		return opts, 2, false
	}
	return opts, 0, true
}

func main() {
	opts, code, ok := parseOptions(os.Args[1:])
	if !ok {
		os.Exit(code)
	}

	logger, err := logging.New(opts.Debug)
	if err != nil {
		fmt.Println("Failed to create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(opts.Config, logger)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}
	if opts.Dummy {
		cfg.Servo.Backend = config.BackendDummy
	}

	ch, release, err := hardware.Open(cfg.Servo, logger)
	if err != nil {
		fmt.Println("Failed to open PWM output:", err)
		os.Exit(1)
	}
	s := servo.New(ch, cfg.Servo.ServoConfig(), logger)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		if err := s.Stop(); err != nil {
			fmt.Println("Failed to stop servo:", err)
		}
		fmt.Println("\nEnd of program.")
		os.Exit(0)
	}()

	err = servo.Run(s, func(s *servo.Servo) error {
		return prompt(os.Stdin, os.Stdout, s)
	})
	err = multierr.Append(err, release())
	fmt.Println("\nEnd of program.")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// prompt reads angles from in until EOF, moving s to each one.
func prompt(in io.Reader, out io.Writer, s angleSetter) error {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Enter angle between 0 & 180: ")
		line, readErr := reader.ReadString('\n')
		if err := moveTo(out, s, strings.TrimSpace(line)); err != nil {
			return err
		}
		if readErr == io.EOF {
			return nil
		} else if readErr != nil {
			return errors.Wrap(readErr, "failed to read stdin")
		}
	}
}

// moveTo reports bad input to out; only servo failures are returned.
func moveTo(out io.Writer, s angleSetter, field string) error {
	if field == "" {
		return nil
	}
	angle, err := strconv.ParseFloat(field, 64)
	if err != nil {
		fmt.Fprintln(out, "Expected a number, not", field)
		return nil
	}
	err = s.SetAngle(angle)
	if errors.Is(err, servo.ErrInvalidAngle) {
		fmt.Fprintln(out, err)
		return nil
	}
	return err
}
