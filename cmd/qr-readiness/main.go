package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qrforge/scan-readiness/pkg/camera"
	"github.com/qrforge/scan-readiness/pkg/config"
	"github.com/qrforge/scan-readiness/pkg/decode"
	"github.com/qrforge/scan-readiness/pkg/logging"
	"github.com/qrforge/scan-readiness/pkg/readiness"
	"github.com/qrforge/scan-readiness/pkg/render"
	"github.com/qrforge/scan-readiness/pkg/server"
	"github.com/qrforge/scan-readiness/pkg/shutdown"
	"github.com/qrforge/scan-readiness/pkg/verify"
)

var version = "dev"

const usageText = `usage: qr-readiness <command> [flags]

commands:
  serve    run the HTTP API (default)
  assess   score a style and print context, print the assessment as JSON
  render   export a styled symbol to a file
  verify   watch camera frames until the expected payload is read
`

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "assess":
		err = runAssess(args, os.Stdout)
	case "render":
		err = runRender(args)
	case "verify":
		err = runVerify(args, os.Stdout)
	case "help", "-h", "--help":
		fmt.Print(usageText)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usageText)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file if present, then applies mounted
// secrets and environment overrides. A missing file is only an error when
// the path was given explicitly.
func loadConfig(path string) (*config.Config, string, error) {
	env := config.LoadFromEnv()

	explicit := path != ""
	if !explicit {
		path = env.ConfigFile
	}

	cfg, err := config.Load(path)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, path, err
		}
		cfg = config.Default()
		path = ""
	}

	secrets, err := config.LoadSecretsFromFiles(env.SecretsDir)
	if err != nil {
		return nil, path, err
	}
	if err := config.InjectSecretsIntoConfig(cfg, secrets); err != nil {
		return nil, path, err
	}

	cfg.ApplyEnv(env)
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, path, nil
}

func newAssessor(cfg *config.Config, logger *logrus.Logger) *readiness.Assessor {
	return readiness.NewAssessor(readiness.Options{
		ContrastThreshold: cfg.Readiness.ContrastThreshold,
		Substrate:         cfg.Readiness.Substrate,
	}, logger)
}

func newDetector(cfg *config.Config, logger *logrus.Logger) *decode.Adapter {
	return decode.NewAdapter(decode.NewZXingDecoder(cfg.Verify.TryHarder), logger)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	logging.LogStartup(logger, version, strconv.Itoa(cfg.Server.Port))
	logging.LogConfigurationLoaded(logger, path, cfg.Readiness.ContrastThreshold, cfg.Readiness.Substrate)

	renderer, err := render.NewQRRenderer(cfg.Readiness.Substrate, logger)
	if err != nil {
		return err
	}

	detector := newDetector(cfg, logger)
	controller := verify.NewController(
		camera.NewDirectoryCamera(cfg.Verify.FrameDir, logger),
		verify.NewRefreshScheduler(cfg.Verify.RefreshRate),
		detector,
		logger,
	)

	srv := server.NewServer(cfg, server.Services{
		Assessor:   newAssessor(cfg, logger),
		Renderer:   renderer,
		Detector:   detector,
		Controller: controller,
	}, logger)

	shutdownTimeout, _ := cfg.ParseDuration(cfg.Server.ShutdownTimeout)
	manager := shutdown.NewManager(shutdownTimeout, logger)
	manager.RegisterHandler("http-server", srv.Shutdown)
	manager.RegisterHandler("verify-controller", func(ctx context.Context) error {
		controller.Close()
		return nil
	})

	serverDone := make(chan struct{})
	var serverErr error
	go func() {
		defer close(serverDone)
		if err := srv.Start(); err != nil {
			logging.LogError(logger, err, "http-server", nil)
			serverErr = err
		}
	}()

	start := time.Now()
	reason := manager.WaitForShutdownOr(serverDone)
	logging.LogShutdownInitiated(logger, reason)
	logging.LogShutdownComplete(logger, time.Since(start).Seconds())

	if reason == "done" {
		return serverErr
	}
	return nil
}

func runAssess(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("assess", flag.ContinueOnError)
	fg := fs.String("fg", "#000000", "foreground color")
	bg := fs.String("bg", "#FFFFFF", `background color or "transparent"`)
	ec := fs.String("ec", "M", "error correction level (L, M, Q, H)")
	distance := fs.Float64("distance", 0, "viewing distance in feet")
	width := fs.Float64("width", 0, "print width in inches, 0 if undecided")
	threshold := fs.Float64("threshold", readiness.DefaultContrastThreshold, "minimum contrast percent")
	substrate := fs.String("substrate", readiness.DefaultSubstrate, "surface color assumed behind transparent backgrounds")
	verbose := fs.Bool("v", false, "log at debug level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := logging.LogLevelWarn
	if *verbose {
		level = logging.LogLevelDebug
	}
	logger := logging.NewLogger(level)
	logger.SetOutput(os.Stderr)

	if *distance < 0 || *width < 0 {
		return fmt.Errorf("distance and width must not be negative")
	}

	style := readiness.StyleConfig{
		Foreground:      *fg,
		Background:      *bg,
		ErrorCorrection: readiness.ErrorCorrection(strings.ToUpper(*ec)),
	}
	if !style.ErrorCorrection.Valid() {
		return fmt.Errorf("invalid error correction level %q", *ec)
	}

	assessor := readiness.NewAssessor(readiness.Options{ContrastThreshold: *threshold, Substrate: *substrate}, logger)
	assessment := assessor.Assess(style, readiness.Dimensions{DistanceFt: *distance, PrintWidthIn: *width})

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(assessment)
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	data := fs.String("data", "", "payload to encode")
	fg := fs.String("fg", "#000000", "foreground color")
	bg := fs.String("bg", "#FFFFFF", `background color or "transparent"`)
	ec := fs.String("ec", "M", "error correction level (L, M, Q, H)")
	logo := fs.String("logo", "", "optional logo image")
	formatName := fs.String("format", "png", "svg, png or jpeg")
	size := fs.Int("size", render.DefaultSize, "edge length in pixels")
	output := fs.String("o", "", "output file (defaults to a name derived from -name)")
	name := fs.String("name", "", "file name hint")
	substrate := fs.String("substrate", readiness.DefaultSubstrate, "color transparent areas flatten onto for JPEG")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := render.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.LogLevelWarn)
	logger.SetOutput(os.Stderr)

	renderer, err := render.NewQRRenderer(*substrate, logger)
	if err != nil {
		return err
	}

	path := *output
	if path == "" {
		path = render.FileName(*name, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	style := readiness.StyleConfig{
		Data:            *data,
		Foreground:      *fg,
		Background:      *bg,
		ErrorCorrection: readiness.ErrorCorrection(strings.ToUpper(*ec)),
		Logo:            *logo,
	}
	if err := renderer.Export(f, style, format, *size); err != nil {
		os.Remove(path)
		return err
	}

	fmt.Println(filepath.Clean(path))
	return nil
}

// verifyOutcome is printed when a verify run ends
type verifyOutcome struct {
	Status  verify.ScanStatus `json:"status"`
	Payload string            `json:"payload,omitempty"`
	Frames  int               `json:"frames"`
	Reason  string            `json:"reason"`
}

// apply records the latest update. The payload always mirrors the current
// frame so a lost detection does not leave an earlier payload behind.
func (o *verifyOutcome) apply(u verify.Update) {
	o.Status = u.Status
	o.Frames = u.Frames
	o.Payload = ""
	if u.Result != nil {
		o.Payload = u.Result.Payload
	}
}

func runVerify(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	expected := fs.String("expected", "", "payload the code must carry")
	dir := fs.String("dir", "", "frame directory (overrides verify.frame_dir)")
	imagePath := fs.String("image", "", "verify a single image instead of a frame directory")
	timeout := fs.Duration("timeout", 0, "give up after this long, 0 waits for a signal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*expected) == "" {
		return fmt.Errorf("-expected is required")
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dir != "" {
		cfg.Verify.FrameDir = *dir
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	logger.SetOutput(os.Stderr)

	var cam camera.Camera = camera.NewDirectoryCamera(cfg.Verify.FrameDir, logger)
	if *imagePath != "" {
		frame, err := camera.LoadFrame(*imagePath)
		if err != nil {
			return err
		}
		cam = camera.NewStaticCamera(frame)
	}

	controller := verify.NewController(cam, verify.NewRefreshScheduler(cfg.Verify.RefreshRate), newDetector(cfg, logger), logger)

	var (
		mu       sync.Mutex
		outcome  verifyOutcome
		doneOnce sync.Once
	)
	done := make(chan struct{})
	finish := func() { doneOnce.Do(func() { close(done) }) }

	controller.Subscribe(func(u verify.Update) {
		mu.Lock()
		outcome.apply(u)
		mu.Unlock()

		if u.Status != u.Previous {
			logging.LogWithSessionID(logger, u.SessionID).WithFields(logrus.Fields{
				"from": u.Previous,
				"to":   u.Status,
			}).Info("Verification status changed")
		}
		if u.Status == verify.StatusSuccess {
			finish()
		}
	})

	if err := controller.Open(context.Background(), *expected); err != nil {
		return err
	}

	if *timeout > 0 {
		timer := time.AfterFunc(*timeout, finish)
		defer timer.Stop()
	}

	manager := shutdown.NewManager(5*time.Second, logger)
	manager.RegisterHandler("verify-controller", func(ctx context.Context) error {
		controller.Close()
		return nil
	})
	reason := manager.WaitForShutdownOr(done)

	mu.Lock()
	outcome.Reason = reason
	final := outcome
	mu.Unlock()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(final); err != nil {
		return err
	}

	if final.Status != verify.StatusSuccess {
		return fmt.Errorf("verification ended with status %s", final.Status)
	}
	return nil
}
