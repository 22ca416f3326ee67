package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestDefaultsCoverPresetsAndEffects(t *testing.T) {
	pc := NewProcessingConfiguration()

	ops := pc.GetAvailableOperations()
	assert.Contains(t, ops, "blur_low")
	assert.Contains(t, ops, "emboss")
	assert.Contains(t, ops, OperationInvert)
	assert.Contains(t, ops, OperationThreshold)
	assert.Contains(t, ops, OperationPosterize)
	assert.Contains(t, ops, OperationBrightness)
	assert.IsIncreasing(t, ops)

	params, err := pc.GetOperationParameters(OperationThreshold)
	require.NoError(t, err)
	assert.Equal(t, []int{200}, params.Parameters[ParamThresholdLevels])

	params, err = pc.GetOperationParameters(OperationPosterize)
	require.NoError(t, err)
	assert.Equal(t, 64, params.Parameters[ParamPosterizeStep])

	assert.True(t, pc.GetPerformanceSettings().MaxWorkers >= 1)
	assert.Equal(t, "sharpen", pc.GetCurrentOperation())
}

func TestSetOperationParameterValidatesRanges(t *testing.T) {
	pc := NewProcessingConfiguration()

	tests := []struct {
		name    string
		op      string
		param   string
		value   interface{}
		wantErr bool
	}{
		{"step in range", OperationPosterize, ParamPosterizeStep, 32, false},
		{"step zero", OperationPosterize, ParamPosterizeStep, 0, true},
		{"step too large", OperationPosterize, ParamPosterizeStep, 300, true},
		{"levels ok", OperationThreshold, ParamThresholdLevels, []int{85, 170}, false},
		{"level above 255", OperationThreshold, ParamThresholdLevels, []int{10, 256}, true},
		{"descending levels", OperationThreshold, ParamThresholdLevels, []int{170, 85}, true},
		{"repeated level", OperationThreshold, ParamThresholdLevels, []int{85, 85}, true},
		{"empty levels", OperationThreshold, ParamThresholdLevels, []int{}, true},
		{"wrong type", OperationPosterize, ParamPosterizeStep, "big", true},
		{"negative brightness", OperationBrightness, ParamBrightnessLevel, -40, false},
		{"unknown op", "warp", "x", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pc.SetOperationParameter(tt.op, tt.param, tt.value)
			if tt.wantErr {
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			params, err := pc.GetOperationParameters(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.value, params.Parameters[tt.param])
		})
	}
}

func TestParametersAreCopied(t *testing.T) {
	pc := NewProcessingConfiguration()
	levels := []int{50, 100}
	require.NoError(t, pc.SetOperationParameter(OperationThreshold, ParamThresholdLevels, levels))
	levels[0] = 0

	params, err := pc.GetOperationParameters(OperationThreshold)
	require.NoError(t, err)
	got := params.Parameters[ParamThresholdLevels].([]int)
	assert.Equal(t, []int{50, 100}, got)

	got[1] = 1
	again, err := pc.GetOperationParameters(OperationThreshold)
	require.NoError(t, err)
	assert.Equal(t, []int{50, 100}, again.Parameters[ParamThresholdLevels])
}

func TestResetOperationToDefaults(t *testing.T) {
	pc := NewProcessingConfiguration()
	require.NoError(t, pc.SetOperationParameter(OperationPosterize, ParamPosterizeStep, 16))
	require.NoError(t, pc.ResetOperationToDefaults(OperationPosterize))

	params, err := pc.GetOperationParameters(OperationPosterize)
	require.NoError(t, err)
	assert.Equal(t, 64, params.Parameters[ParamPosterizeStep])
}

func TestLoadFromEnvironment(t *testing.T) {
	pc := NewProcessingConfiguration()
	err := pc.loadFrom(envOf(map[string]string{
		"DEBUG":               "1",
		"RASTERKIT_WORKERS":   "3",
		"RASTERKIT_THRESHOLD": "85, 170",
	}))
	require.NoError(t, err)

	assert.Equal(t, "debug", pc.GetLogLevel())
	assert.Equal(t, PerformanceSettings{MaxWorkers: 3, EnableParallelization: true}, pc.GetPerformanceSettings())

	params, err := pc.GetOperationParameters(OperationThreshold)
	require.NoError(t, err)
	assert.Equal(t, []int{85, 170}, params.Parameters[ParamThresholdLevels])
}

func TestLoadFromEnvironmentLogLevelWinsOverDebug(t *testing.T) {
	pc := NewProcessingConfiguration()
	require.NoError(t, pc.loadFrom(envOf(map[string]string{"LOG_LEVEL": "WARN", "DEBUG": "1"})))
	assert.Equal(t, "warn", pc.GetLogLevel())
}

func TestLoadFromEnvironmentRejectsBadValues(t *testing.T) {
	var ve *ValidationError

	pc := NewProcessingConfiguration()
	assert.ErrorAs(t, pc.loadFrom(envOf(map[string]string{"RASTERKIT_WORKERS": "0"})), &ve)
	assert.ErrorAs(t, pc.loadFrom(envOf(map[string]string{"RASTERKIT_THRESHOLD": "a,b"})), &ve)
	assert.ErrorAs(t, pc.loadFrom(envOf(map[string]string{"RASTERKIT_THRESHOLD": "300"})), &ve)
	assert.ErrorAs(t, pc.loadFrom(envOf(map[string]string{"RASTERKIT_THRESHOLD": "170,85"})), &ve)
}

func TestCopyParameters(t *testing.T) {
	src := map[string]interface{}{ParamThresholdLevels: []int{85, 170}, ParamPosterizeStep: 32}
	dst := CopyParameters(src)

	src[ParamThresholdLevels].([]int)[0] = 0
	src[ParamPosterizeStep] = 8

	assert.Equal(t, []int{85, 170}, dst[ParamThresholdLevels])
	assert.Equal(t, 32, dst[ParamPosterizeStep])
	assert.Nil(t, CopyParameters(nil))
}

func TestStateRepositoryLifecycle(t *testing.T) {
	repo := NewProcessingStateRepository()
	assert.False(t, repo.GetState().IsActive)

	repo.StartProcessing("blur_low")
	repo.UpdateProgress("convolve", 0.5)
	state := repo.GetState()
	assert.True(t, state.IsActive)
	assert.Equal(t, "blur_low", state.Operation)
	assert.Equal(t, "convolve", state.CurrentStage)

	repo.CompleteProcessing()
	state = repo.GetState()
	assert.False(t, state.IsActive)
	assert.Equal(t, "Complete", state.CurrentStage)
	assert.Equal(t, 1.0, state.Progress)
}
