package usecase

import (
	"context"
	"fmt"
)

// Pipeline runs named steps in order and stops at the first failure. Steps
// already done are not undone.
type Pipeline struct {
	steps []Step
}

type Step struct {
	Name string
	Fn   func(context.Context) error
}

// StepError tags a failure with the step that produced it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

func (p *Pipeline) AddStep(name string, fn func(context.Context) error) *Pipeline {
	p.steps = append(p.steps, Step{Name: name, Fn: fn})
	return p
}

func (p *Pipeline) Run(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: step.Name, Err: err}
		}
		if err := step.Fn(ctx); err != nil {
			return &StepError{Step: step.Name, Err: err}
		}
	}
	return nil
}
