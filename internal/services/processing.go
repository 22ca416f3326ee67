package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"rasterkit/internal/logger"
	"rasterkit/internal/models"
	"rasterkit/internal/processing/chain"
	"rasterkit/internal/processing/effects"
	"rasterkit/internal/processing/filters"
	"rasterkit/internal/processing/histogram"
	"rasterkit/internal/raster"
	"rasterkit/internal/workerpool"
)

const maxHistorySize = 16

// ProcessingResult is the output of one Process call.
type ProcessingResult struct {
	Buffer     *raster.Buffer
	Operation  string
	Parameters map[string]interface{}
	Histogram  *histogram.Histogram
	// Similarity is the histogram overlap between result and input, in [0,1].
	Similarity  float64
	Metrics     ChangeMetrics
	ProcessTime time.Duration
}

// ChangeMetrics summarizes how far the result moved from the input.
type ChangeMetrics struct {
	ChangedPixelRatio float64
	MeanAbsoluteError float64
	PSNR              float64
}

// ProcessingStats contains processing performance statistics
type ProcessingStats struct {
	TotalProcessed     int
	FailedRuns         int
	AverageTime        time.Duration
	LastProcessingTime time.Time
}

// ProcessingService runs named operations on buffers.
type ProcessingService struct {
	configRepo *models.ProcessingConfiguration
	stateRepo  *models.ProcessingStateRepository
	logger     logger.Logger
	pool       *workerpool.Pool

	mu        sync.RWMutex
	history   []ProcessingResult
	processed int
	failed    int
	totalTime time.Duration
	lastRun   time.Time
}

// NewProcessingService sizes its worker pool from the configuration's
// performance settings. With parallelization disabled every operation runs
// on the calling goroutine.
func NewProcessingService(
	configRepo *models.ProcessingConfiguration,
	stateRepo *models.ProcessingStateRepository,
	log logger.Logger,
) *ProcessingService {
	if log == nil {
		log = logger.NewNop()
	}

	var pool *workerpool.Pool
	settings := configRepo.GetPerformanceSettings()
	if settings.EnableParallelization && settings.MaxWorkers > 1 {
		pool = workerpool.New(settings.MaxWorkers)
	}

	return &ProcessingService{
		configRepo: configRepo,
		stateRepo:  stateRepo,
		logger:     log,
		pool:       pool,
	}
}

// Process runs operation on a copy of input using the configured
// parameters. The input buffer is never modified.
func (ps *ProcessingService) Process(ctx context.Context, input *raster.Buffer, operation string) (*ProcessingResult, error) {
	params, err := ps.configRepo.GetOperationParameters(operation)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation parameters: %w", err)
	}
	return ps.ProcessWithParameters(ctx, input, operation, params.Parameters)
}

// ProcessWithParameters is Process with caller-supplied parameters in place
// of the configured ones.
func (ps *ProcessingService) ProcessWithParameters(
	ctx context.Context,
	input *raster.Buffer,
	operation string,
	parameters map[string]interface{},
) (*ProcessingResult, error) {
	if err := raster.ValidateBufferForOperation(input, operation); err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}

	pipeline, err := ps.buildChain(operation)
	if err != nil {
		return nil, err
	}

	ps.stateRepo.StartProcessing(operation)
	startTime := time.Now()

	ps.logger.Debug("ProcessingService", "operation started", map[string]interface{}{
		"operation": operation,
		"width":     input.Width(),
		"height":    input.Height(),
		"steps":     pipeline.StepNames(),
	})

	ps.stateRepo.UpdateProgress("Processing", 0.2)
	output, err := pipeline.Execute(ctx, input, parameters)
	if err != nil {
		ps.stateRepo.FailProcessing("Failed")
		ps.recordFailure()
		ps.logger.Error("ProcessingService", err, map[string]interface{}{
			"operation": operation,
		})
		return nil, fmt.Errorf("operation %s failed: %w", operation, err)
	}

	ps.stateRepo.UpdateProgress("Analyzing result", 0.8)
	result, err := ps.analyze(input, output)
	if err != nil {
		ps.stateRepo.FailProcessing("Failed")
		ps.recordFailure()
		return nil, fmt.Errorf("result analysis failed: %w", err)
	}

	result.Operation = operation
	result.Parameters = models.CopyParameters(parameters)
	result.ProcessTime = time.Since(startTime)

	ps.stateRepo.CompleteProcessing()
	ps.recordSuccess(*result)

	ps.logger.Info("ProcessingService", "operation completed", map[string]interface{}{
		"operation":  operation,
		"duration":   result.ProcessTime.String(),
		"similarity": result.Similarity,
		"changed":    result.Metrics.ChangedPixelRatio,
	})

	return result, nil
}

// buildChain maps an operation name onto its processing steps.
func (ps *ProcessingService) buildChain(operation string) (*chain.Chain, error) {
	switch operation {
	case models.OperationInvert:
		return chain.New(ps.logger, effects.NewInvertStep(ps.pool)), nil
	case models.OperationThreshold:
		return chain.New(ps.logger, effects.NewThresholdStep(ps.pool)), nil
	case models.OperationPosterize:
		return chain.New(ps.logger, effects.NewPosterizeStep(ps.pool)), nil
	case models.OperationBrightness:
		return chain.New(ps.logger, filters.NewBrightnessStep(ps.pool)), nil
	}

	step, err := filters.NewPresetStep(ps.pool, operation)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return chain.New(ps.logger, step), nil
}

func (ps *ProcessingService) analyze(input, output *raster.Buffer) (*ProcessingResult, error) {
	before, err := histogram.Build(ps.pool, input)
	if err != nil {
		return nil, err
	}
	after, err := histogram.Build(ps.pool, output)
	if err != nil {
		return nil, err
	}
	metrics, err := calculateChangeMetrics(input, output)
	if err != nil {
		return nil, err
	}

	return &ProcessingResult{
		Buffer:     output,
		Histogram:  after,
		Similarity: after.Compare(before),
		Metrics:    metrics,
	}, nil
}

// calculateChangeMetrics compares the color bytes of two buffers of equal
// geometry. PSNR is +Inf for identical buffers.
func calculateChangeMetrics(original, processed *raster.Buffer) (ChangeMetrics, error) {
	if err := raster.ValidateSameGeometry(original, processed, "change metrics"); err != nil {
		return ChangeMetrics{}, err
	}

	bpp := original.BytesPerPixel()
	var changed int
	var absSum, sqSum float64

	for y := 0; y < original.Height(); y++ {
		a := original.Row(y)
		b := processed.Row(y)
		for x := 0; x+bpp <= len(a); x += bpp {
			pixelChanged := false
			for c := 0; c < 3; c++ {
				d := float64(a[x+c]) - float64(b[x+c])
				if d != 0 {
					pixelChanged = true
				}
				absSum += math.Abs(d)
				sqSum += d * d
			}
			if pixelChanged {
				changed++
			}
		}
	}

	pixels := float64(original.PixelCount())
	samples := 3 * pixels
	metrics := ChangeMetrics{
		ChangedPixelRatio: float64(changed) / pixels,
		MeanAbsoluteError: absSum / samples,
		PSNR:              math.Inf(1),
	}
	if mse := sqSum / samples; mse > 0 {
		metrics.PSNR = 10 * math.Log10(255*255/mse)
	}
	return metrics, nil
}

func (ps *ProcessingService) recordSuccess(result ProcessingResult) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.processed++
	ps.totalTime += result.ProcessTime
	ps.lastRun = time.Now()

	ps.history = append(ps.history, result)
	if len(ps.history) > maxHistorySize {
		ps.history = ps.history[len(ps.history)-maxHistorySize:]
	}
}

func (ps *ProcessingService) recordFailure() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.failed++
}

// GetProcessingStats returns processing performance statistics
func (ps *ProcessingService) GetProcessingStats() ProcessingStats {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	stats := ProcessingStats{
		TotalProcessed:     ps.processed,
		FailedRuns:         ps.failed,
		LastProcessingTime: ps.lastRun,
	}
	if ps.processed > 0 {
		stats.AverageTime = ps.totalTime / time.Duration(ps.processed)
	}
	return stats
}

// GetProcessingHistory returns the most recent results, oldest first
func (ps *ProcessingService) GetProcessingHistory() []ProcessingResult {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return append([]ProcessingResult(nil), ps.history...)
}

// GetLatestResult returns the most recent processing result
func (ps *ProcessingService) GetLatestResult() *ProcessingResult {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if len(ps.history) == 0 {
		return nil
	}
	latest := ps.history[len(ps.history)-1]
	return &latest
}

// ClearHistory clears the processing history
func (ps *ProcessingService) ClearHistory() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.history = nil
}

// GetProcessingState returns the current processing state
func (ps *ProcessingService) GetProcessingState() models.ProcessingState {
	return ps.stateRepo.GetState()
}

// GetAvailableOperations returns every operation name Process accepts
func (ps *ProcessingService) GetAvailableOperations() []string {
	return ps.configRepo.GetAvailableOperations()
}

// GetWorkerCount returns the number of pool workers, 1 when sequential
func (ps *ProcessingService) GetWorkerCount() int {
	if ps.pool == nil {
		return 1
	}
	return ps.pool.NumWorkers()
}

// Shutdown releases the worker pool. Later calls run sequentially.
func (ps *ProcessingService) Shutdown() {
	ps.ClearHistory()
	if ps.pool != nil {
		ps.pool.Close()
	}
	ps.logger.Info("ProcessingService", "processing service shut down", nil)
}
