package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-vocab-client/auth"
	"github.com/jrsteele09/go-vocab-client/internal/cli"
	"github.com/jrsteele09/go-vocab-client/internal/config"
	"github.com/jrsteele09/go-vocab-client/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("Recovered from panic")
			debug.PrintStack()
			exitCode = 1
		}
	}()

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	flags := flag.NewFlagSet("myvocab", flag.ContinueOnError)
	configFile := flags.String("config", os.Getenv(config.ConfigFileVar), "YAML settings file")
	quiet := flags.Bool("q", false, "skip the banner")
	flags.Usage = func() { cli.Usage(flags.Output()) }
	if err := flags.Parse(args); err != nil {
		return 2
	}

	c, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())

	if flags.NArg() > 0 && flags.Arg(0) == "serve" && !*quiet {
		displayAppname(c.GetAppName())
	}

	app, err := cli.NewApp(c, cli.WithIO(os.Stdin, os.Stdout))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		waitForStopSignal()
		cancel()
	}()

	if err := app.Run(ctx, flags.Args()); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			cli.Usage(os.Stderr)
			return 2
		}
		fmt.Fprintln(os.Stderr, "error:", auth.UserMessage(err))
		log.Debug().Err(err).Msg("command failed")
		return 1
	}
	return 0
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
