package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/bhava/internal/config"
	"github.com/ayusman/bhava/internal/logging"
	"github.com/ayusman/bhava/internal/store"
)

// Exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitNoFaces = 2
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	parser := argparse.NewParser("bhava", "Facial emotion analysis")
	envFile := parser.String("e", "env", &argparse.Options{Help: "Path to .env file", Default: ".env"})
	logLevel := parser.String("l", "log-level", &argparse.Options{Help: "Override log level"})

	serveCmd := parser.NewCommand("serve", "Run the HTTP and WebSocket service")
	serveAddr := serveCmd.String("a", "addr", &argparse.Options{Help: "Listen address"})
	serveModel := serveCmd.String("m", "model", &argparse.Options{Help: "Path to ONNX emotion model"})
	serveDevice := serveCmd.String("d", "device", &argparse.Options{Help: "Inference device: auto, cpu, cuda, cuda-fp16, openvino, vulkan"})
	serveStatic := serveCmd.String("s", "static", &argparse.Options{Help: "Directory of static web files"})

	analyzeCmd := parser.NewCommand("analyze", "Analyze the faces in one image file")
	analyzeImage := analyzeCmd.StringPositional(&argparse.Options{Help: "Image file", Required: true})
	analyzeModel := analyzeCmd.String("m", "model", &argparse.Options{Help: "Path to ONNX emotion model"})
	analyzeDevice := analyzeCmd.String("d", "device", &argparse.Options{Help: "Inference device"})
	analyzeWidth := analyzeCmd.Int("", "width", &argparse.Options{Help: "Resize width before analysis, 0 keeps the original", Default: 800})
	analyzeHeight := analyzeCmd.Int("", "height", &argparse.Options{Help: "Resize height before analysis, 0 keeps the original", Default: 600})
	analyzeJSON := analyzeCmd.Flag("j", "json", &argparse.Options{Help: "Print the result as JSON"})
	analyzeAnnotate := analyzeCmd.String("o", "annotate", &argparse.Options{Help: "Write an annotated copy of the image to this path"})

	modelsCmd := parser.NewCommand("models", "Manage the model registry")
	addCmd := modelsCmd.NewCommand("add", "Register a model checkpoint")
	addName := addCmd.String("n", "name", &argparse.Options{Help: "Model name", Required: true})
	addPath := addCmd.String("p", "path", &argparse.Options{Help: "Path to the ONNX file", Required: true})
	addVersion := addCmd.String("v", "version", &argparse.Options{Help: "Model version"})
	addActivate := addCmd.Flag("", "activate", &argparse.Options{Help: "Make this the active model"})
	listCmd := modelsCmd.NewCommand("list", "List registered models")
	activateCmd := modelsCmd.NewCommand("activate", "Select the model loaded on the next start")
	activateName := activateCmd.StringPositional(&argparse.Options{Help: "Model name", Required: true})
	removeCmd := modelsCmd.NewCommand("remove", "Remove a model from the registry")
	removeName := removeCmd.StringPositional(&argparse.Options{Help: "Model name", Required: true})

	if err := parser.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		return exitError
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitError
	}

	switch {
	case serveCmd.Happened():
		override(&cfg.BindAddress, *serveAddr)
		override(&cfg.ModelPath, *serveModel)
		override(&cfg.Device, *serveDevice)
		override(&cfg.StaticDir, *serveStatic)
		err = serve(cfg, log)

	case analyzeCmd.Happened():
		override(&cfg.ModelPath, *analyzeModel)
		override(&cfg.Device, *analyzeDevice)
		err = analyze(cfg, log, analyzeOptions{
			Image:    *analyzeImage,
			Width:    *analyzeWidth,
			Height:   *analyzeHeight,
			JSON:     *analyzeJSON,
			Annotate: *analyzeAnnotate,
		}, os.Stdout)

	case modelsCmd.Happened():
		err = withStore(cfg, func(s *store.Store) error {
			switch {
			case addCmd.Happened():
				return addModel(s, os.Stdout, *addName, *addVersion, *addPath, *addActivate)
			case listCmd.Happened():
				return listModels(s, os.Stdout)
			case activateCmd.Happened():
				return activateModel(s, os.Stdout, *activateName)
			case removeCmd.Happened():
				return removeModel(s, os.Stdout, *removeName)
			}
			return errors.New("missing models subcommand")
		})
	}

	return exitCode(err, log)
}

func exitCode(err error, log logrus.FieldLogger) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errNoFaces):
		fmt.Fprintln(os.Stderr, "No faces detected.")
		return exitNoFaces
	default:
		log.WithError(err).Error("bhava failed")
		return exitError
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func withStore(cfg config.Config, fn func(*store.Store) error) error {
	s, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open model registry: %w", err)
	}
	defer s.Close()
	return fn(s)
}
