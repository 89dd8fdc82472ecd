package pipeline

import (
	"time"

	"github.com/dvloznov/walletflow/internal/domain"
)

// PipelineStep represents a single stage of diagram generation.
type PipelineStep interface {
	Execute(state *PipelineState)
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Settings Settings
	Ref      time.Time // reference date for records without date or year

	Records      []domain.TransactionRecord // working set, replaced by each step
	Participants []string
	Periods      []PeriodBlock
	Stats        Stats
}

// Stats counts records as they move through the pipeline.
type Stats struct {
	Input      int `json:"input"`
	Aggregated int `json:"aggregated"`
	Netted     int `json:"netted"`
}

// Step 1: AggregateStep sums same-direction transactions per bucket.
type AggregateStep struct{}

func (s *AggregateStep) Execute(state *PipelineState) {
	if state.Settings.AggregatePeriod != PeriodNone {
		state.Records = aggregateAt(state.Records, state.Settings.AggregatePeriod, state.Ref)
	}
	state.Stats.Aggregated = len(state.Records)
}

// Step 2: OffsetStep nets reverse transactions per bucket.
type OffsetStep struct{}

func (s *OffsetStep) Execute(state *PipelineState) {
	if state.Settings.Offset && state.Settings.AggregatePeriod != PeriodNone {
		state.Records = offsetAt(state.Records, state.Settings.AggregatePeriod, state.Ref)
	}
	state.Stats.Netted = len(state.Records)
}

// Step 3: CollectParticipantsStep derives the sorted participant list.
type CollectParticipantsStep struct{}

func (s *CollectParticipantsStep) Execute(state *PipelineState) {
	state.Participants = CollectParticipants(state.Records)
}

// Step 4: GroupPeriodsStep orders the final records into period blocks.
type GroupPeriodsStep struct{}

func (s *GroupPeriodsStep) Execute(state *PipelineState) {
	groups := groupByPeriodAt(state.Records, state.Settings.AggregatePeriod, state.Ref)
	keys := SortedPeriodKeys(groups)
	state.Periods = make([]PeriodBlock, 0, len(keys))
	for _, key := range keys {
		state.Periods = append(state.Periods, PeriodBlock{Key: key, Records: groups[key]})
	}
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(state *PipelineState) {
	for _, step := range p.steps {
		step.Execute(state)
	}
}

// NewDiagramPipeline creates the standard aggregate → offset → participants →
// periods pipeline.
func NewDiagramPipeline() *Pipeline {
	return NewPipeline(
		&AggregateStep{},
		&OffsetStep{},
		&CollectParticipantsStep{},
		&GroupPeriodsStep{},
	)
}
