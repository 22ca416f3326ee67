package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"rasterkit/internal/colormodel"
	"rasterkit/internal/imaging"
	"rasterkit/internal/logger"
	"rasterkit/internal/models"
	"rasterkit/internal/opencv/conversion"
	"rasterkit/internal/raster"
	"rasterkit/internal/services"
	"rasterkit/internal/shutdown"
)

const (
	AppName    = "rasterkit"
	AppVersion = "1.0.0"
)

type options struct {
	operations string
	width      int
	height     int
	scale      float64
	workers    int
	threshold  string
	grayscale  bool
	jsonLogs   bool
	list       bool
}

func main() {
	opts := parseFlags(os.Args[1:])

	config := models.NewProcessingConfiguration()
	if err := config.LoadFromEnvironment(); err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}
	if err := applyOptions(config, opts); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	appLogger := newLogger(config.GetLogLevel(), opts.jsonLogs)

	if opts.list {
		for _, name := range config.GetAvailableOperations() {
			fmt.Println(name)
		}
		return
	}

	shutdownMgr := shutdown.NewManager(appLogger)
	shutdownMgr.Listen()

	processingService := services.NewProcessingService(config, models.NewProcessingStateRepository(), appLogger)
	shutdownMgr.Register("processing service", processingService)

	appLogger.Info("Main", "starting", map[string]interface{}{
		"app":     AppName,
		"version": AppVersion,
		"workers": processingService.GetWorkerCount(),
	})

	err := run(shutdownMgr, processingService, config, opts, os.Stdout)
	shutdownMgr.Shutdown()

	if err != nil {
		appLogger.Error("Main", err, nil)
		os.Exit(1)
	}
}

func run(
	shutdownMgr *shutdown.Manager,
	processingService *services.ProcessingService,
	config *models.ProcessingConfiguration,
	opts options,
	out io.Writer,
) error {
	input, err := prepareInput(opts)
	if err != nil {
		return err
	}

	operations, err := resolveOperations(opts.operations, config.GetAvailableOperations())
	if err != nil {
		return err
	}

	table := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(table, "operation\ttime\tsimilarity\tchanged\tpsnr\n")

	for _, operation := range operations {
		result, err := processingService.Process(shutdownMgr.Context(), input, operation)
		if err != nil {
			return err
		}

		fmt.Fprintf(table, "%s\t%s\t%.3f\t%.3f\t%s\n",
			operation,
			result.ProcessTime.Round(time.Microsecond),
			result.Similarity,
			result.Metrics.ChangedPixelRatio,
			formatPSNR(result.Metrics.PSNR))
	}

	stats := processingService.GetProcessingStats()
	fmt.Fprintf(table, "total\t%s\t\t\t\n", stats.AverageTime.Round(time.Microsecond))

	return table.Flush()
}

func parseFlags(args []string) options {
	var opts options

	fs := flag.NewFlagSet(AppName, flag.ExitOnError)
	fs.StringVar(&opts.operations, "ops", "all", "comma-separated operations to run, or \"all\"")
	fs.IntVar(&opts.width, "width", 640, "synthetic input width")
	fs.IntVar(&opts.height, "height", 480, "synthetic input height")
	fs.Float64Var(&opts.scale, "scale", 1.0, "resample the input by this factor before processing")
	fs.IntVar(&opts.workers, "workers", 0, "worker goroutines (0 keeps RASTERKIT_WORKERS or GOMAXPROCS)")
	fs.StringVar(&opts.threshold, "threshold", "", "comma-separated threshold levels, e.g. 85,170")
	fs.BoolVar(&opts.grayscale, "grayscale", false, "convert the input to grayscale with OpenCV first")
	fs.BoolVar(&opts.jsonLogs, "json-logs", false, "write JSON logs instead of console output")
	fs.BoolVar(&opts.list, "list", false, "list available operations and exit")
	_ = fs.Parse(args)

	return opts
}

func applyOptions(config *models.ProcessingConfiguration, opts options) error {
	if opts.workers < 0 {
		return models.NewValidationError("workers", opts.workers, "must not be negative")
	}
	if opts.workers > 0 {
		config.UpdatePerformanceSettings(models.PerformanceSettings{
			MaxWorkers:            opts.workers,
			EnableParallelization: opts.workers > 1,
		})
	}

	if opts.threshold != "" {
		levels, err := models.ParseLevels(opts.threshold)
		if err != nil {
			return err
		}
		if err := config.SetOperationParameter(models.OperationThreshold, models.ParamThresholdLevels, levels); err != nil {
			return err
		}
	}

	if opts.scale <= 0 || math.IsNaN(opts.scale) {
		return models.NewValidationError("scale", opts.scale, "must be positive")
	}

	return nil
}

func newLogger(level string, jsonLogs bool) logger.Logger {
	if jsonLogs {
		return logger.NewZerolog(os.Stderr, logger.ParseLevel(level))
	}
	return logger.NewConsoleLogger(logger.ParseLevel(level))
}

func prepareInput(opts options) (*raster.Buffer, error) {
	input, err := syntheticInput(opts.width, opts.height)
	if err != nil {
		return nil, fmt.Errorf("input creation failed: %w", err)
	}

	if opts.scale != 1.0 {
		width := int(math.Round(float64(opts.width) * opts.scale))
		height := int(math.Round(float64(opts.height) * opts.scale))
		input, err = imaging.Resize(input, max(width, 1), max(height, 1))
		if err != nil {
			return nil, fmt.Errorf("input resize failed: %w", err)
		}
	}

	if opts.grayscale {
		input, err = conversion.ConvertToGrayscale(input)
		if err != nil {
			return nil, fmt.Errorf("grayscale conversion failed: %w", err)
		}
	}

	return input, nil
}

// syntheticInput sweeps hue across the columns and value down the rows.
func syntheticInput(width, height int) (*raster.Buffer, error) {
	if err := raster.ValidateDimensions(width, height, "synthetic input"); err != nil {
		return nil, err
	}

	buf, err := raster.New(width, height, raster.BGRA)
	if err != nil {
		return nil, err
	}

	for y := 0; y < height; y++ {
		value := 1.0 - float64(y)/float64(height)
		for x := 0; x < width; x++ {
			hue := 360.0 * float64(x) / float64(width)
			c, err := colormodel.HSVToRGB(hue, 1.0, value)
			if err != nil {
				return nil, err
			}
			if err := buf.SetPixel(x, y, c); err != nil {
				return nil, err
			}
		}
	}

	return buf, nil
}

func resolveOperations(list string, available []string) ([]string, error) {
	if list == "" || list == "all" {
		return available, nil
	}

	known := make(map[string]bool, len(available))
	for _, name := range available {
		known[name] = true
	}

	var operations []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !known[name] {
			return nil, models.NewValidationError("ops", name, "operation not found")
		}
		operations = append(operations, name)
	}

	if len(operations) == 0 {
		return nil, models.NewValidationError("ops", list, "no operations selected")
	}
	return operations, nil
}

func formatPSNR(psnr float64) string {
	if math.IsInf(psnr, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", psnr)
}
