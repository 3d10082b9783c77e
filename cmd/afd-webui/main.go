package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"afd-webui/internal/afdcmd"
	"afd-webui/internal/config"
	"afd-webui/internal/fsops"
	"afd-webui/internal/logging"
	"afd-webui/internal/server"
	"afd-webui/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch strings.ToLower(os.Args[1]) {
	case "start":
		err = runStart(os.Args[2:])
	case "stop":
		err = runStop(os.Args[2:])
	case "passwd":
		err = runPasswd(os.Args[2:])
	case "version", "-version", "--version":
		fmt.Println(version.Get().String())
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type commonFlags struct {
	configPath string
	workDir    string
	pidFile    string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to config file (JSON or YAML)")
	fs.StringVar(&c.workDir, "w", os.Getenv("AFD_WORK_DIR"), "AFD work directory (AFD_WORK_DIR)")
	fs.StringVar(&c.pidFile, "P", "", "PID file (default <work_dir>/fifodir/webui.pid)")
}

// load reads the config file and applies the flags given on the command
// line over it.
func (c *commonFlags) load(fs *flag.FlagSet, apply func(*config.Config, string)) (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "w":
			cfg.WorkDir = c.workDir
		case "P":
			cfg.PidFile = c.pidFile
		default:
			if apply != nil {
				apply(&cfg, f.Name)
			}
		}
	})
	if cfg.WorkDir == "" {
		cfg.WorkDir = c.workDir
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	var (
		port    string
		noTLS   bool
		certDir string
		webDir  string
		verbose bool
		mock    bool
	)
	fs.StringVar(&port, "p", "8040", "Port or listen address")
	fs.BoolVar(&noTLS, "no_tls", false, "Serve plain HTTP")
	fs.StringVar(&certDir, "cert", "", "Directory with public-cert.pem and private-key.pem")
	fs.StringVar(&webDir, "web", "", "Directory served below /ui/")
	fs.BoolVar(&verbose, "v", false, "Debug logging to stderr")
	fs.BoolVar(&mock, "mock", false, "Answer AFD commands from mock files")
	_ = fs.Parse(args)

	cfg, err := common.load(fs, func(cfg *config.Config, name string) {
		switch name {
		case "p":
			cfg.Listen = listenAddr(port)
		case "no_tls":
			cfg.NoTLS = noTLS
		case "cert":
			cfg.CertDir = certDir
		case "web":
			cfg.WebDir = webDir
		case "v":
			cfg.Verbose = verbose
		case "mock":
			cfg.Mock = mock
		}
	})
	if err != nil {
		return err
	}

	log, closeLog, err := logging.New(logging.Options{File: cfg.LogFile, Verbose: cfg.Verbose})
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer closeLog()

	runner := &afdcmd.Runner{
		WorkDir:   cfg.WorkDir,
		Mock:      cfg.Mock,
		MockDir:   cfg.MockDir,
		Timeout:   time.Duration(cfg.CommandTimeoutSec) * time.Second,
		MaxOutput: cfg.MaxOutputMB,
		Log:       log.With().Str("component", "afdcmd").Logger(),
	}
	srv := server.New(server.Options{Config: cfg, Exec: runner, Log: log})

	if err := writePid(cfg.PidFile); err != nil {
		return fmt.Errorf("pid file: %w", err)
	}
	defer os.Remove(cfg.PidFile)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("version", version.Get().Version).
			Str("listen", ln.Addr().String()).
			Str("work_dir", cfg.WorkDir).
			Bool("tls", !cfg.NoTLS).
			Bool("mock", cfg.Mock).
			Msg("afd-webui listening")
		var err error
		if cfg.NoTLS {
			err = httpSrv.Serve(ln)
		} else {
			cert, key := cfg.CertFiles()
			err = httpSrv.ServeTLS(ln, cert, key)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return srv.RunMaintenance(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})
	return g.Wait()
}

// listenAddr turns a bare port into ":port".
func listenAddr(p string) string {
	if _, err := strconv.Atoi(p); err == nil {
		return ":" + p
	}
	return p
}

func writePid(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return fsops.WriteFileAtomic(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func runStop(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	_ = fs.Parse(args)
	cfg, err := common.load(fs, nil)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(cfg.PidFile)
	if err != nil {
		return fmt.Errorf("no running server: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return fmt.Errorf("bad pid file %s", cfg.PidFile)
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := p.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal %d: %w", pid, err)
	}
	if err := os.Remove(cfg.PidFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Printf("sent SIGTERM to %d\n", pid)
	return nil
}

func runPasswd(args []string) error {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	var list bool
	fs.BoolVar(&list, "list", false, "List the users instead")
	_ = fs.Parse(args)
	cfg, err := common.load(fs, nil)
	if err != nil {
		return err
	}
	if list {
		users, err := server.Users(cfg.UsersFile)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Println(u)
		}
		return nil
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: afd-webui passwd [-w dir] <user>")
	}
	user := fs.Arg(0)

	pass, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	again, err := readPassword("Repeat: ")
	if err != nil {
		return err
	}
	if pass != again {
		return fmt.Errorf("passwords do not match")
	}
	if pass == "" {
		return fmt.Errorf("empty password")
	}
	if err := server.SetPassword(cfg.UsersFile, user, pass); err != nil {
		return err
	}
	fmt.Printf("password for %s updated in %s\n", user, cfg.UsersFile)
	return nil
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("passwd needs a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	return string(b), err
}

func usage() {
	fmt.Println("afd-webui <command> [flags]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  start   [-w dir] [-p port] [-P pidfile] [-no_tls] [-cert dir] [-v] [-mock] [-config file]")
	fmt.Println("  stop    [-w dir] [-P pidfile]")
	fmt.Println("  passwd  [-w dir] [-list] <user>")
	fmt.Println("  version")
}
