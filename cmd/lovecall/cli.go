package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/config"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/signaling"
)

type cliArgs struct {
	command    string
	configPath string
	logLevel   string
	debug      bool

	// partner
	persona string
	voice   string
	wait    bool
	offline bool
	camera  string

	// peer
	callID string
	role   string
}

func (a *cliArgs) LogLevel(cfg *config.Config) slog.Level {
	s := cfg.LogLevel
	if a.logLevel != "" {
		s = a.logLevel
	}
	lvl, err := config.ParseLevel(s)
	if err != nil {
		panic(err)
	}
	return lvl
}

func (a *cliArgs) Role() (signaling.Role, error) {
	switch r := signaling.Role(a.role); r {
	case signaling.RoleCaller, signaling.RoleCallee:
		return r, nil
	}
	return "", fmt.Errorf("invalid role [%s], use caller or callee", a.role)
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: lovecall [flags] <command>

commands:
  partner   call the virtual partner
  peer      join a peer call on the relay

flags:
`)
	flag.PrintDefaults()
}

func initCLI() (*cliArgs, *config.Config, *slog.Logger) {
	args := cliArgs{
		command: "partner",
		role:    string(signaling.RoleCaller),
	}
	flag.StringVar(&args.configPath, "config", "", "path to a yaml config file")
	flag.StringVar(&args.logLevel, "log-level", "", "log level, overrides log_level")
	flag.BoolVar(&args.debug, "debug", false, "dump protocol messages")
	flag.StringVar(&args.persona, "persona", "", "persona prompt, overrides persona")
	flag.StringVar(&args.voice, "voice", "", "prebuilt voice name, overrides voice")
	flag.BoolVar(&args.offline, "offline", false, "talk to a local echo instead of the speech model")
	flag.StringVar(&args.camera, "camera", "", "image file sent to the partner as the camera feed, re-read on every snapshot")
	flag.BoolVar(&args.wait, "wait", false, "after a partner call, wait for the partner to call back")
	flag.StringVar(&args.callID, "call-id", "", "peer call id, a new one is generated for callers")
	flag.StringVar(&args.role, "role", args.role, "peer call role: caller or callee")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() > 0 {
		args.command = flag.Arg(0)
	}

	cfg, err := config.Load(args.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if args.persona != "" {
		cfg.Persona = args.persona
	}
	if args.voice != "" {
		cfg.Voice = args.voice
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: args.LogLevel(cfg),
	})))

	return &args, cfg, slog.Default()
}
