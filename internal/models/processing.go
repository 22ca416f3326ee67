package models

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"rasterkit/internal/processing/effects"
	"rasterkit/internal/processing/filters"
)

// Operation names understood by the processing service besides the
// convolution presets.
const (
	OperationInvert     = "invert"
	OperationThreshold  = "threshold"
	OperationPosterize  = "posterize"
	OperationBrightness = "brightness"
)

// Parameter keys shared with the processing steps.
const (
	ParamThresholdLevels = "threshold_levels"
	ParamPosterizeStep   = "posterize_step"
	ParamBrightnessLevel = "brightness_level"
)

// ProcessingState represents the current state of a processing run
type ProcessingState struct {
	IsActive     bool
	Operation    string
	CurrentStage string
	Progress     float64
	StartTime    time.Time
	Duration     time.Duration
}

// OperationParameters contains operation-specific configuration
type OperationParameters struct {
	Name       string
	Parameters map[string]interface{}
	Defaults   map[string]interface{}
	Ranges     map[string]ParameterRange
}

// ParameterRange defines valid range for a parameter. For []int values the
// bounds apply to every element.
type ParameterRange struct {
	Min     interface{}
	Max     interface{}
	Options []interface{}
}

// ProcessingConfiguration manages processing settings
type ProcessingConfiguration struct {
	mu                  sync.RWMutex
	currentOperation    string
	operationParameters map[string]OperationParameters
	performanceSettings PerformanceSettings
	logLevel            string
}

// PerformanceSettings contains performance-related configuration
type PerformanceSettings struct {
	MaxWorkers            int
	EnableParallelization bool
}

// NewProcessingConfiguration creates a configuration holding every preset
// and effect with its default parameters.
func NewProcessingConfiguration() *ProcessingConfiguration {
	config := &ProcessingConfiguration{
		operationParameters: make(map[string]OperationParameters),
		performanceSettings: PerformanceSettings{
			MaxWorkers:            runtime.GOMAXPROCS(0),
			EnableParallelization: true,
		},
		logLevel: "info",
	}

	config.initializeDefaultOperations()

	return config
}

// initializeDefaultOperations sets up default parameters for all operations
func (pc *ProcessingConfiguration) initializeDefaultOperations() {
	for _, name := range filters.PresetNames() {
		pc.operationParameters[name] = newOperation(name, nil, nil)
	}

	pc.operationParameters[OperationInvert] = newOperation(OperationInvert, nil, nil)

	pc.operationParameters[OperationThreshold] = newOperation(OperationThreshold,
		map[string]interface{}{
			ParamThresholdLevels: []int{effects.DefaultThreshold},
		},
		map[string]ParameterRange{
			ParamThresholdLevels: {Min: 0, Max: 255},
		})

	pc.operationParameters[OperationPosterize] = newOperation(OperationPosterize,
		map[string]interface{}{
			ParamPosterizeStep: effects.DefaultPosterizeStep,
		},
		map[string]ParameterRange{
			ParamPosterizeStep: {Min: 1, Max: 256},
		})

	pc.operationParameters[OperationBrightness] = newOperation(OperationBrightness,
		map[string]interface{}{
			ParamBrightnessLevel: 32,
		},
		map[string]ParameterRange{
			ParamBrightnessLevel: {Min: -255, Max: 255},
		})

	pc.currentOperation = filters.PresetSharpen
}

func newOperation(name string, defaults map[string]interface{}, ranges map[string]ParameterRange) OperationParameters {
	op := OperationParameters{
		Name:       name,
		Parameters: make(map[string]interface{}, len(defaults)),
		Defaults:   make(map[string]interface{}, len(defaults)),
		Ranges:     make(map[string]ParameterRange, len(ranges)),
	}
	for k, v := range defaults {
		op.Parameters[k] = copyValue(v)
		op.Defaults[k] = copyValue(v)
	}
	for k, v := range ranges {
		op.Ranges[k] = v
	}
	return op
}

// LoadFromEnvironment applies LOG_LEVEL, DEBUG, RASTERKIT_WORKERS and
// RASTERKIT_THRESHOLD. Unset variables leave the current values alone.
func (pc *ProcessingConfiguration) LoadFromEnvironment() error {
	return pc.loadFrom(os.Getenv)
}

func (pc *ProcessingConfiguration) loadFrom(getenv func(string) string) error {
	if level := getenv("LOG_LEVEL"); level != "" {
		pc.SetLogLevel(level)
	} else if getenv("DEBUG") == "1" {
		pc.SetLogLevel("debug")
	}

	if value := getenv("RASTERKIT_WORKERS"); value != "" {
		workers, err := strconv.Atoi(value)
		if err != nil || workers < 1 {
			return NewValidationError("RASTERKIT_WORKERS", value, "must be a positive integer")
		}
		settings := pc.GetPerformanceSettings()
		settings.MaxWorkers = workers
		settings.EnableParallelization = workers > 1
		pc.UpdatePerformanceSettings(settings)
	}

	if value := getenv("RASTERKIT_THRESHOLD"); value != "" {
		levels, err := ParseLevels(value)
		if err != nil {
			return err
		}
		if err := pc.SetOperationParameter(OperationThreshold, ParamThresholdLevels, levels); err != nil {
			return err
		}
	}

	return nil
}

// ParseLevels reads a comma-separated list of integers such as "85,170".
func ParseLevels(value string) ([]int, error) {
	fields := strings.Split(value, ",")
	levels := make([]int, 0, len(fields))
	for _, field := range fields {
		level, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, NewValidationError(ParamThresholdLevels, value, "levels must be comma-separated integers")
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// GetCurrentOperation returns the currently selected operation
func (pc *ProcessingConfiguration) GetCurrentOperation() string {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.currentOperation
}

// SetCurrentOperation changes the current operation
func (pc *ProcessingConfiguration) SetCurrentOperation(operation string) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if _, exists := pc.operationParameters[operation]; !exists {
		return NewValidationError("operation", operation, "operation not found")
	}

	pc.currentOperation = operation
	return nil
}

// GetOperationParameters returns a copy of the parameters for operation
func (pc *ProcessingConfiguration) GetOperationParameters(operation string) (OperationParameters, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	params, exists := pc.operationParameters[operation]
	if !exists {
		return OperationParameters{}, NewValidationError("operation", operation, "operation not found")
	}

	return copyOperationParameters(params), nil
}

// SetOperationParameter updates a specific parameter for an operation
func (pc *ProcessingConfiguration) SetOperationParameter(operation, paramName string, value interface{}) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	params, exists := pc.operationParameters[operation]
	if !exists {
		return NewValidationError("operation", operation, "operation not found")
	}

	if err := validateParameter(params, paramName, value); err != nil {
		return err
	}

	params.Parameters[paramName] = copyValue(value)
	pc.operationParameters[operation] = params

	return nil
}

// GetAvailableOperations returns the sorted operation names
func (pc *ProcessingConfiguration) GetAvailableOperations() []string {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	operations := make([]string, 0, len(pc.operationParameters))
	for name := range pc.operationParameters {
		operations = append(operations, name)
	}
	sort.Strings(operations)

	return operations
}

// GetPerformanceSettings returns current performance settings
func (pc *ProcessingConfiguration) GetPerformanceSettings() PerformanceSettings {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.performanceSettings
}

// UpdatePerformanceSettings updates performance configuration
func (pc *ProcessingConfiguration) UpdatePerformanceSettings(settings PerformanceSettings) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.performanceSettings = settings
}

func (pc *ProcessingConfiguration) GetLogLevel() string {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.logLevel
}

func (pc *ProcessingConfiguration) SetLogLevel(level string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.logLevel = strings.ToLower(strings.TrimSpace(level))
}

// ResetOperationToDefaults resets operation parameters to default values
func (pc *ProcessingConfiguration) ResetOperationToDefaults(operation string) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	params, exists := pc.operationParameters[operation]
	if !exists {
		return NewValidationError("operation", operation, "operation not found")
	}

	for key, value := range params.Defaults {
		params.Parameters[key] = copyValue(value)
	}

	pc.operationParameters[operation] = params
	return nil
}

// validateParameter checks a value against the parameter's range, if any
func validateParameter(params OperationParameters, paramName string, value interface{}) error {
	paramRange, hasRange := params.Ranges[paramName]
	if !hasRange {
		return nil
	}

	if len(paramRange.Options) > 0 {
		for _, option := range paramRange.Options {
			if value == option {
				return nil
			}
		}
		return NewValidationError(paramName, value, "value not in allowed options")
	}

	switch v := value.(type) {
	case int:
		return checkIntRange(paramName, value, v, paramRange)
	case []int:
		if len(v) == 0 {
			return NewValidationError(paramName, value, "at least one value required")
		}
		for i, item := range v {
			if err := checkIntRange(paramName, value, item, paramRange); err != nil {
				return err
			}
			if i > 0 && item <= v[i-1] {
				return NewValidationError(paramName, value, "values must be strictly ascending")
			}
		}
	case float64:
		if min, ok := paramRange.Min.(float64); ok && v < min {
			return NewValidationError(paramName, value, "value below minimum")
		}
		if max, ok := paramRange.Max.(float64); ok && v > max {
			return NewValidationError(paramName, value, "value above maximum")
		}
	default:
		return NewValidationError(paramName, value, fmt.Sprintf("unsupported type %T", value))
	}

	return nil
}

func checkIntRange(paramName string, value interface{}, v int, paramRange ParameterRange) error {
	if min, ok := paramRange.Min.(int); ok && v < min {
		return NewValidationError(paramName, value, "value below minimum")
	}
	if max, ok := paramRange.Max.(int); ok && v > max {
		return NewValidationError(paramName, value, "value above maximum")
	}
	return nil
}

func copyOperationParameters(src OperationParameters) OperationParameters {
	dst := OperationParameters{
		Name:       src.Name,
		Parameters: make(map[string]interface{}, len(src.Parameters)),
		Defaults:   make(map[string]interface{}, len(src.Defaults)),
		Ranges:     make(map[string]ParameterRange, len(src.Ranges)),
	}

	for k, v := range src.Parameters {
		dst.Parameters[k] = copyValue(v)
	}
	for k, v := range src.Defaults {
		dst.Defaults[k] = copyValue(v)
	}
	for k, v := range src.Ranges {
		dst.Ranges[k] = v
	}

	return dst
}

// copyValue detaches slice values so callers cannot alias stored parameters.
// CopyParameters returns a copy of params that shares no slices with it.
func CopyParameters(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(params))
	for k, v := range params {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v interface{}) interface{} {
	if levels, ok := v.([]int); ok {
		return append([]int(nil), levels...)
	}
	return v
}

// ValidationError represents a parameter validation error
type ValidationError struct {
	Parameter string
	Value     interface{}
	Message   string
}

// NewValidationError creates a new validation error
func NewValidationError(parameter string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Parameter: parameter,
		Value:     value,
		Message:   message,
	}
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for parameter '%s' with value '%v': %s",
		ve.Parameter, ve.Value, ve.Message)
}

// ProcessingStateRepository tracks the run in progress
type ProcessingStateRepository struct {
	mu    sync.RWMutex
	state ProcessingState
}

func NewProcessingStateRepository() *ProcessingStateRepository {
	return &ProcessingStateRepository{}
}

// GetState returns the current processing state
func (psr *ProcessingStateRepository) GetState() ProcessingState {
	psr.mu.RLock()
	defer psr.mu.RUnlock()
	return psr.state
}

// StartProcessing marks processing as active
func (psr *ProcessingStateRepository) StartProcessing(operation string) {
	psr.mu.Lock()
	defer psr.mu.Unlock()

	psr.state = ProcessingState{
		IsActive:     true,
		Operation:    operation,
		CurrentStage: "Initializing",
		StartTime:    time.Now(),
	}
}

// UpdateProgress updates processing progress and stage
func (psr *ProcessingStateRepository) UpdateProgress(stage string, progress float64) {
	psr.mu.Lock()
	defer psr.mu.Unlock()

	if psr.state.IsActive {
		psr.state.CurrentStage = stage
		psr.state.Progress = progress
	}
}

// CompleteProcessing marks processing as complete
func (psr *ProcessingStateRepository) CompleteProcessing() {
	psr.mu.Lock()
	defer psr.mu.Unlock()

	psr.state.IsActive = false
	psr.state.CurrentStage = "Complete"
	psr.state.Progress = 1.0
	psr.state.Duration = time.Since(psr.state.StartTime)
}

// FailProcessing records the stage at which a run stopped
func (psr *ProcessingStateRepository) FailProcessing(stage string) {
	psr.mu.Lock()
	defer psr.mu.Unlock()

	psr.state.IsActive = false
	psr.state.CurrentStage = stage
	psr.state.Duration = time.Since(psr.state.StartTime)
}
