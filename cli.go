package fence

import (
	"bytes"
	gocontext "context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ablecloud-io/fence/config"
	"github.com/ablecloud-io/fence/context"
	"github.com/ablecloud-io/fence/metrics"
	"github.com/ablecloud-io/fence/mold"
	"github.com/ablecloud-io/fence/power"
	"github.com/getsentry/raven-go"
	"github.com/pborman/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

// CLI is the top level of execution for a single fence invocation
type CLI struct {
	c        *cli.Context
	bootTime time.Time

	ctx    gocontext.Context
	cancel gocontext.CancelFunc
	logger *logrus.Entry

	debugFile *os.File

	Stdout io.Writer
	Stderr io.Writer

	Config     *config.Config
	Controller *power.Controller
	Agent      *Agent
}

// NewCLI creates a new *CLI from a *cli.Context
func NewCLI(c *cli.Context) *CLI {
	return &CLI{
		c:        c,
		bootTime: time.Now().UTC(),

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Setup runs one-time preparatory actions and returns a boolean success value
// that is used to determine if it is safe to invoke the Run func. A non-nil
// error means the invocation arguments are unusable.
func (i *CLI) Setup() (bool, error) {
	cfg := config.FromCLIContext(i.c)
	i.Config = cfg

	if i.c.Bool("echo-config") {
		config.WriteEnvConfig(cfg, i.Stdout)
		return false, nil
	}

	i.setupLogging()

	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	ctx = context.FromUUID(ctx, uuid.NewRandom().String())
	ctx = context.FromAction(ctx, cfg.Action)
	ctx = context.FromVMID(ctx, cfg.VMID)
	logger := context.LoggerFromContext(ctx)

	i.ctx = ctx
	i.cancel = cancel
	i.logger = logger

	logger.WithFields(logrus.Fields{
		"plug": cfg.Plug,
		"zone": cfg.Zone,
	}).Debug("read config")

	if err := cfg.Validate(); err != nil {
		logger.WithField("err", err).Error("invalid config")
		return false, err
	}

	i.setupSentry()

	client, err := mold.NewClient(cfg.ClientConfig())
	if err != nil {
		logger.WithField("err", err).Error("couldn't create management api client")
		return false, err
	}

	logger.WithFields(logrus.Fields{
		"base_url":             client.BaseURL(),
		"insecure_skip_verify": cfg.InsecureSkipVerify,
	}).Debug("built client")

	i.Controller = power.NewController(client)

	action, _ := power.ParseAction(cfg.Action)
	i.Agent = NewAgent(i.Controller, &AgentConfig{
		Action:       action,
		VMID:         cfg.VMID,
		Delay:        time.Duration(cfg.Delay) * time.Second,
		PowerTimeout: time.Duration(cfg.PowerTimeout) * time.Second,
		PowerWait:    time.Duration(cfg.PowerWait) * time.Second,
		RetryOn:      cfg.RetryOn,
	}, i.Stdout, i.Stderr)

	return true, nil
}

// Run performs the action and returns the exit code for the process
func (i *CLI) Run() ExitCode {
	defer i.cancel()
	defer i.closeDebugFile()

	i.logger.Debug("starting signal handler")
	go i.signalHandler()

	code := i.Agent.Run(i.ctx)

	i.flushMetrics()

	i.logger.WithFields(logrus.Fields{
		"exit_code": int(code),
		"uptime":    time.Since(i.bootTime),
	}).Debug("done")

	return code
}

func (i *CLI) setupLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	logrus.SetOutput(i.Stderr)
	logrus.SetLevel(logrus.WarnLevel)

	if i.Config.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else if i.Config.Quiet {
		logrus.SetLevel(logrus.ErrorLevel)
	}

	if i.Config.DebugFile != "" {
		f, err := os.OpenFile(i.Config.DebugFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
		if err != nil {
			logrus.WithField("err", err).Warn("couldn't open debug file")
		} else {
			i.debugFile = f
			logrus.SetOutput(io.MultiWriter(i.Stderr, f))
		}
	}

	if i.Config.Syslog {
		if err := addSyslogHook(); err != nil {
			logrus.WithField("err", err).Debug("couldn't connect to syslog")
		}
	}
}

func (i *CLI) setupSentry() {
	if i.Config.SentryDSN == "" {
		return
	}

	err := raven.SetDSN(i.Config.SentryDSN)
	if err != nil {
		i.logger.WithField("err", err).Error("couldn't set DSN in raven")
	}
}

func (i *CLI) flushMetrics() {
	librato := i.Config.LibratoConfig()
	if librato.Enabled() {
		if err := metrics.FlushLibrato(librato); err != nil {
			i.logger.WithField("err", err).Warn("couldn't flush metrics")
		}
		return
	}

	if i.logger.Logger.IsLevelEnabled(logrus.DebugLevel) {
		buf := &bytes.Buffer{}
		metrics.WriteOnce(buf)
		i.logger.WithField("metrics", buf.String()).Debug("invocation metrics")
	}
}

func (i *CLI) closeDebugFile() {
	if i.debugFile == nil {
		return
	}

	logrus.SetOutput(i.Stderr)
	if err := i.debugFile.Close(); err != nil {
		fmt.Fprintf(i.Stderr, "couldn't close debug file: %v\n", err)
	}
}

func (i *CLI) signalHandler() {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(signalChan)

	select {
	case sig := <-signalChan:
		i.logger.WithField("signal", sig).Warn("signal received, cancelling action")
		i.cancel()
	case <-i.ctx.Done():
	}
}
