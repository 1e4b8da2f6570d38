package main

import (
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/bhava/internal/app"
	"github.com/ayusman/bhava/internal/config"
	"github.com/ayusman/bhava/internal/inference"
	"github.com/ayusman/bhava/internal/store"
)

var errNoFaces = errors.New("no faces detected")

type analyzeOptions struct {
	Image    string
	Width    int
	Height   int
	JSON     bool
	Annotate string
}

func analyze(cfg config.Config, log *logrus.Logger, opts analyzeOptions, out io.Writer) error {
	var st *store.Store
	if cfg.ModelPath == "" {
		s, err := store.New(cfg.DatabasePath())
		if err != nil {
			return err
		}
		defer s.Close()
		st = s
	}

	a, err := app.New(app.FromSettings(cfg, st, log))
	if err != nil {
		return err
	}
	defer a.Close()

	return analyzeFile(a.Engine(), opts, out)
}

// analyzeFile runs the engine over one image file and prints the result.
func analyzeFile(engine *inference.Engine, opts analyzeOptions, out io.Writer) error {
	src, err := inference.ReadImage(opts.Image)
	if err != nil {
		return err
	}
	defer src.Close()

	img := inference.ResizeForAnalysis(src, opts.Width, opts.Height)
	defer img.Close()

	result, err := engine.Analyze(img)
	if errors.Is(err, inference.ErrNoFaceDetected) {
		return errNoFaces
	}
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printResult(out, result)
	}

	if opts.Annotate != "" {
		if err := inference.Annotate(&img, result); err != nil {
			return fmt.Errorf("annotate %s: %w", opts.Annotate, err)
		}
		if err := inference.WriteImage(opts.Annotate, img); err != nil {
			return err
		}
	}
	return nil
}

func printResult(out io.Writer, result *inference.Result) {
	for _, f := range result.Faces {
		fmt.Fprintln(out, "Emotion probabilities for detected face:")
		for _, s := range f.Emotions {
			fmt.Fprintf(out, "  %s: %.2f\n", s.Label, s.Value)
		}
	}
}
