package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/rimage"

	"shogicam"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "predict":
		err = predict(os.Args[2:])
	case "corners":
		err = corners(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s predict [-m model.onnx] [-gote] [-config file] [-debug dir] <image>...\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "       %s corners <input.jpg> [output.jpg]\n", os.Args[0])
}

type predictFlags struct {
	configPath string
	debugDir   string
	verbose    bool
}

func newPredictFlags() (*flag.FlagSet, *predictFlags) {
	pf := &predictFlags{}
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	fs.String("m", "models/shogicam.onnx", "ONNX model")
	fs.String("url", "", "inference service url (instead of -m)")
	fs.Bool("gote", false, "photographs are taken from gote's side")
	fs.StringVar(&pf.configPath, "config", "", "YAML config; flags given explicitly override it")
	fs.StringVar(&pf.debugDir, "debug", "", "write annotated boards here")
	fs.BoolVar(&pf.verbose, "v", false, "debug logging")
	return fs, pf
}

// applyFlags copies the model and orientation flags that were set onto cfg.
// Without a model from either source the -m default is used.
func applyFlags(cfg *shogicam.Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "m":
			cfg.ModelPath, cfg.ModelURL = f.Value.String(), ""
		case "url":
			cfg.ModelURL, cfg.ModelPath = f.Value.String(), ""
		case "gote":
			cfg.Orientation = shogicam.NearSide.String()
			if f.Value.String() == "true" {
				cfg.Orientation = shogicam.FarSide.String()
			}
		}
	})
	if cfg.ModelPath == "" && cfg.ModelURL == "" {
		cfg.ModelPath = fs.Lookup("m").DefValue
	}
}

func predict(args []string) error {
	fs, pf := newPredictFlags()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("need at least one image")
	}

	cfg := &shogicam.Config{}
	if pf.configPath != "" {
		var err error
		cfg, err = shogicam.LoadConfig(pf.configPath)
		if err != nil {
			return err
		}
	}
	applyFlags(cfg, fs)
	if _, _, err := cfg.Validate("flags"); err != nil {
		return err
	}
	orientation, err := shogicam.ParseOrientation(cfg.Orientation)
	if err != nil {
		return err
	}

	logger := logging.NewLogger("shogicam")
	if pf.verbose {
		logger = logging.NewDebugLogger("shogicam")
	}

	model, err := shogicam.LoadModel(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := model.Close(); err != nil {
			logger.Warnf("closing model: %v", err)
		}
	}()

	pipeline, err := shogicam.NewPipeline(cfg, model, logger)
	if err != nil {
		return err
	}

	paths := fs.Args()
	results := make([]*shogicam.Analysis, len(paths))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			img, err := rimage.ReadImageFromFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			a, err := pipeline.Analyze(ctx, img, orientation)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = a
			if pf.debugDir != "" {
				out := filepath.Join(pf.debugDir, filepath.Base(outputName(path, "_board")))
				if err := rimage.WriteImageToFile(out, shogicam.DrawAnalysis(a)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, a := range results {
		if len(results) > 1 {
			fmt.Printf("%s\n", paths[i])
		}
		fmt.Printf("corner detection score: %f\n", a.Board.Score)
		fmt.Println(a.Board.String())
		fmt.Printf("sfen: %s\n", a.Board.SFEN())
	}
	return nil
}

func corners(args []string) error {
	if len(args) < 1 {
		usage()
		return fmt.Errorf("need an input image")
	}

	inputFile := args[0]

	// input.jpg -> input_output.jpg unless given
	outputFile := outputName(inputFile, "_output")
	if len(args) >= 2 {
		outputFile = args[1]
	}

	input, err := rimage.ReadImageFromFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	fmt.Printf("Image size: %dx%d\n", input.Bounds().Dx(), input.Bounds().Dy())

	det, err := shogicam.FindBoard(input)
	if err != nil {
		return fmt.Errorf("finding board corners: %w", err)
	}

	c := det.Corners
	fmt.Printf("Found corners (score %f):\n", det.Score)
	fmt.Printf("  Top-left:     (%0.1f, %0.1f)\n", c[0].X, c[0].Y)
	fmt.Printf("  Top-right:    (%0.1f, %0.1f)\n", c[1].X, c[1].Y)
	fmt.Printf("  Bottom-right: (%0.1f, %0.1f)\n", c[2].X, c[2].Y)
	fmt.Printf("  Bottom-left:  (%0.1f, %0.1f)\n", c[3].X, c[3].Y)

	if err := rimage.WriteImageToFile(outputFile, shogicam.DrawCorners(input, c)); err != nil {
		return fmt.Errorf("writing output image: %w", err)
	}

	fmt.Printf("Saved output image to %s\n", outputFile)
	return nil
}

func outputName(input, suffix string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(filepath.Base(input), ext)
	if ext == "" {
		ext = ".png"
	}
	return filepath.Join(filepath.Dir(input), base+suffix+ext)
}
