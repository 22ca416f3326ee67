// Package chain runs raster operations as an ordered list of steps.
//
// A Step receives the buffer produced by the step before it and must not
// modify it. A step that leaves the image unchanged may return its input
// as-is; the chain copies at the end whenever the final buffer is still the
// caller's input, so Execute never hands back an alias of what it was given.
package chain

import (
	"context"
	"fmt"
	"slices"
	"time"

	"rasterkit/internal/logger"
	"rasterkit/internal/raster"
)

const component = "ProcessingChain"

type Step interface {
	Apply(ctx context.Context, input *raster.Buffer, params map[string]interface{}) (*raster.Buffer, error)
	Name() string
	ShouldExecute(params map[string]interface{}) bool
}

type Chain struct {
	steps  []Step
	logger logger.Logger
}

// New builds a chain that reports per-step timing to log at debug level.
// A nil log discards everything.
func New(log logger.Logger, steps ...Step) *Chain {
	if log == nil {
		log = logger.NewNop()
	}
	return &Chain{
		steps:  slices.Clone(steps),
		logger: log,
	}
}

func (c *Chain) Execute(ctx context.Context, input *raster.Buffer, params map[string]interface{}) (*raster.Buffer, error) {
	if err := raster.ValidateBufferForOperation(input, "chain"); err != nil {
		return nil, err
	}

	current := input
	for i, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !step.ShouldExecute(params) {
			c.logger.Debug(component, "step skipped", map[string]interface{}{
				"step":  step.Name(),
				"index": i,
			})
			continue
		}

		started := time.Now()
		next, err := step.Apply(ctx, current, params)
		if err != nil {
			return nil, fmt.Errorf("step %s failed: %w", step.Name(), err)
		}
		if next == nil {
			return nil, fmt.Errorf("step %s returned no buffer: %w", step.Name(), raster.ErrInvalidArgument)
		}

		c.logger.Debug(component, "step applied", map[string]interface{}{
			"step":     step.Name(),
			"index":    i,
			"duration": time.Since(started).String(),
		})
		current = next
	}

	if current == input {
		return input.Clone(), nil
	}
	return current, nil
}

func (c *Chain) AddStep(step Step) {
	c.steps = append(c.steps, step)
}

func (c *Chain) InsertStep(index int, step Step) error {
	if index < 0 || index > len(c.steps) {
		return fmt.Errorf("insert at %d of %d steps: %w", index, len(c.steps), raster.ErrOutOfBounds)
	}
	c.steps = slices.Insert(c.steps, index, step)
	return nil
}

func (c *Chain) RemoveStep(index int) error {
	if index < 0 || index >= len(c.steps) {
		return fmt.Errorf("remove at %d of %d steps: %w", index, len(c.steps), raster.ErrOutOfBounds)
	}
	c.steps = slices.Delete(c.steps, index, index+1)
	return nil
}

func (c *Chain) StepCount() int {
	return len(c.steps)
}

// StepNames lists step names in execution order.
func (c *Chain) StepNames() []string {
	names := make([]string, len(c.steps))
	for i, step := range c.steps {
		names[i] = step.Name()
	}
	return names
}
