package services

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rasterkit/internal/colormodel"
	"rasterkit/internal/logger"
	"rasterkit/internal/models"
	"rasterkit/internal/raster"
)

func newTestService(t *testing.T) *ProcessingService {
	t.Helper()
	svc := NewProcessingService(models.NewProcessingConfiguration(), models.NewProcessingStateRepository(), logger.NewNop())
	t.Cleanup(svc.Shutdown)
	return svc
}

func filled(t *testing.T, c colormodel.Color) *raster.Buffer {
	t.Helper()
	buf, err := raster.NewFilled(9, 7, raster.BGRA, c)
	require.NoError(t, err)
	return buf
}

func TestProcessInvert(t *testing.T) {
	svc := newTestService(t)
	input := filled(t, colormodel.Color{R: 10, G: 20, B: 30})
	original := input.Clone()

	result, err := svc.Process(context.Background(), input, models.OperationInvert)
	require.NoError(t, err)

	px, err := result.Buffer.Pixel(4, 3)
	require.NoError(t, err)
	assert.Equal(t, colormodel.Color{R: 245, G: 235, B: 225}, px)
	assert.True(t, input.Equal(original))

	assert.Equal(t, models.OperationInvert, result.Operation)
	assert.Equal(t, 0.0, result.Similarity)
	assert.Equal(t, 1.0, result.Metrics.ChangedPixelRatio)
	assert.InDelta(t, 215.0, result.Metrics.MeanAbsoluteError, 1e-9)
	assert.Equal(t, 3*63, result.Histogram.Count())
}

func TestProcessUnchangedResult(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Process(context.Background(), filled(t, colormodel.White), models.OperationThreshold)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.Similarity)
	assert.Equal(t, 0.0, result.Metrics.ChangedPixelRatio)
	assert.True(t, math.IsInf(result.Metrics.PSNR, 1))
}

func TestProcessUsesConfiguredParameters(t *testing.T) {
	config := models.NewProcessingConfiguration()
	require.NoError(t, config.SetOperationParameter(models.OperationBrightness, models.ParamBrightnessLevel, -40))
	svc := NewProcessingService(config, models.NewProcessingStateRepository(), logger.NewNop())
	defer svc.Shutdown()

	result, err := svc.Process(context.Background(), filled(t, colormodel.Gray(100)), models.OperationBrightness)
	require.NoError(t, err)

	px, err := result.Buffer.Pixel(0, 0)
	require.NoError(t, err)
	assert.Equal(t, colormodel.Gray(60), px)
	assert.Equal(t, -40, result.Parameters[models.ParamBrightnessLevel])
}

func TestProcessPreset(t *testing.T) {
	svc := newTestService(t)
	input := filled(t, colormodel.Gray(90))

	result, err := svc.Process(context.Background(), input, "emboss")
	require.NoError(t, err)

	px, err := result.Buffer.Pixel(4, 3)
	require.NoError(t, err)
	assert.Equal(t, colormodel.Gray(128), px)
}

func TestProcessUnknownOperation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Process(context.Background(), filled(t, colormodel.Black), "swirl")
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = svc.ProcessWithParameters(context.Background(), filled(t, colormodel.Black), "swirl", nil)
	assert.ErrorIs(t, err, raster.ErrInvalidArgument)
}

func TestProcessInvalidParametersCountAsFailure(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ProcessWithParameters(context.Background(), filled(t, colormodel.Black), models.OperationThreshold,
		map[string]interface{}{models.ParamThresholdLevels: []int{200, 100}})
	assert.ErrorIs(t, err, raster.ErrInvalidArgument)

	stats := svc.GetProcessingStats()
	assert.Equal(t, 0, stats.TotalProcessed)
	assert.Equal(t, 1, stats.FailedRuns)
	assert.False(t, svc.GetProcessingState().IsActive)
}

func TestProcessRejectsNilInput(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Process(context.Background(), nil, models.OperationInvert)
	assert.ErrorIs(t, err, raster.ErrInvalidArgument)
}

func TestProcessHonoursCancellation(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Process(ctx, filled(t, colormodel.Black), "blur_low")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatsAndHistory(t *testing.T) {
	svc := newTestService(t)
	input := filled(t, colormodel.Gray(50))

	for i := 0; i < maxHistorySize+3; i++ {
		_, err := svc.Process(context.Background(), input, models.OperationPosterize)
		require.NoError(t, err)
	}

	stats := svc.GetProcessingStats()
	assert.Equal(t, maxHistorySize+3, stats.TotalProcessed)
	assert.False(t, stats.LastProcessingTime.IsZero())
	assert.Len(t, svc.GetProcessingHistory(), maxHistorySize)

	latest := svc.GetLatestResult()
	require.NotNil(t, latest)
	px, err := latest.Buffer.Pixel(0, 0)
	require.NoError(t, err)
	assert.Equal(t, colormodel.Gray(0), px)

	state := svc.GetProcessingState()
	assert.Equal(t, "Complete", state.CurrentStage)
	assert.Equal(t, models.OperationPosterize, state.Operation)

	svc.ClearHistory()
	assert.Nil(t, svc.GetLatestResult())
}

func TestSequentialWhenParallelizationDisabled(t *testing.T) {
	config := models.NewProcessingConfiguration()
	config.UpdatePerformanceSettings(models.PerformanceSettings{MaxWorkers: 8, EnableParallelization: false})
	svc := NewProcessingService(config, models.NewProcessingStateRepository(), nil)
	defer svc.Shutdown()

	assert.Equal(t, 1, svc.GetWorkerCount())
	_, err := svc.Process(context.Background(), filled(t, colormodel.White), "sharpen")
	assert.NoError(t, err)
}

func TestProcessAfterShutdownRunsSequentially(t *testing.T) {
	svc := NewProcessingService(models.NewProcessingConfiguration(), models.NewProcessingStateRepository(), nil)
	svc.Shutdown()

	result, err := svc.Process(context.Background(), filled(t, colormodel.Black), models.OperationInvert)
	require.NoError(t, err)
	px, err := result.Buffer.Pixel(8, 6)
	require.NoError(t, err)
	assert.Equal(t, colormodel.White, px)
}

func TestShutdownDuringProcessing(t *testing.T) {
	config := models.NewProcessingConfiguration()
	config.UpdatePerformanceSettings(models.PerformanceSettings{MaxWorkers: 4, EnableParallelization: true})
	svc := NewProcessingService(config, models.NewProcessingStateRepository(), nil)
	input, err := raster.NewFilled(64, 64, raster.BGRA, colormodel.Gray(90))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				if _, err := svc.Process(context.Background(), input, "blur_low"); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	svc.Shutdown()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestHistoryKeepsItsOwnParameters(t *testing.T) {
	svc := newTestService(t)
	levels := []int{60, 120}
	params := map[string]interface{}{models.ParamThresholdLevels: levels}

	result, err := svc.ProcessWithParameters(context.Background(), filled(t, colormodel.Gray(90)), models.OperationThreshold, params)
	require.NoError(t, err)

	levels[0] = 0
	params[models.ParamThresholdLevels] = []int{1}
	params["extra"] = true

	want := map[string]interface{}{models.ParamThresholdLevels: []int{60, 120}}
	assert.Equal(t, want, result.Parameters)
	assert.Equal(t, want, svc.GetLatestResult().Parameters)
	assert.Equal(t, want, svc.GetProcessingHistory()[0].Parameters)
}

func TestCalculateChangeMetricsRejectsMismatchedBuffers(t *testing.T) {
	small, err := raster.New(2, 2, raster.BGR)
	require.NoError(t, err)
	_, err = calculateChangeMetrics(small, filled(t, colormodel.Black))
	assert.ErrorIs(t, err, raster.ErrInvalidDimension)
}
