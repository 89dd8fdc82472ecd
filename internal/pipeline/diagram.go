package pipeline

import (
	"strings"

	"github.com/dvloznov/walletflow/internal/domain"
)

// PeriodBlock is one period section of the diagram: the records of a bucket
// in their relative order.
type PeriodBlock struct {
	Key     string                     `json:"key"`
	Records []domain.TransactionRecord `json:"-"`
}

// Diagram is the result of running the pipeline over a record set.
type Diagram struct {
	Settings     Settings
	Participants []string
	Periods      []PeriodBlock
	Stats        Stats
}

// BuildDiagram runs aggregation, netting, participant extraction and period
// grouping over records. The input slice is not modified.
//
// With AggregatePeriod none, aggregation and netting are both skipped
// regardless of the Offset setting.
func BuildDiagram(records []domain.TransactionRecord, opts OptionSet) *Diagram {
	settings := Resolve(opts)

	state := &PipelineState{
		Settings: settings,
		Ref:      settings.Now(),
		Records:  append([]domain.TransactionRecord(nil), records...),
		Stats:    Stats{Input: len(records)},
	}
	NewDiagramPipeline().Execute(state)

	return &Diagram{
		Settings:     settings,
		Participants: state.Participants,
		Periods:      state.Periods,
		Stats:        state.Stats,
	}
}

// GenerateSequenceDiagram renders records as Mermaid sequence diagram text.
func GenerateSequenceDiagram(records []domain.TransactionRecord, opts OptionSet) string {
	return BuildDiagram(records, opts).String()
}

// Records returns the final record set in diagram order.
func (d *Diagram) Records() []domain.TransactionRecord {
	var records []domain.TransactionRecord
	for _, p := range d.Periods {
		records = append(records, p.Records...)
	}
	return records
}

// Lines returns the diagram text line by line: header, autonumber,
// participant declarations, then one note plus the arrows per period.
func (d *Diagram) Lines() []string {
	lines := []string{DiagramHeader, indent + AutonumberDirective}
	for _, p := range d.Participants {
		lines = append(lines, indent+"participant "+p)
	}

	first := d.firstParticipant()
	for _, period := range d.Periods {
		lines = append(lines, indent+"Note right of "+first+": "+period.Key)
		for _, r := range period.Records {
			lines = append(lines, indent+RenderLine(r))
		}

		if d.Settings.ShowNotes {
			byParticipant, byCurrency := balanceChanges(period.Records)
			if note, ok := currencyTotalNote(first, period.Key, byCurrency); ok {
				lines = append(lines, note)
			}
			if note, ok := participantBalanceNote(first, byParticipant); ok {
				lines = append(lines, note)
			}
		}
	}
	return lines
}

// String joins Lines with newlines, without a trailing newline.
func (d *Diagram) String() string {
	return strings.Join(d.Lines(), "\n")
}

// firstParticipant anchors the period notes. Records without any currency
// produce no participants; their notes anchor on the empty UnknownWallet
// participant their arrows use.
func (d *Diagram) firstParticipant() string {
	if len(d.Participants) > 0 {
		return d.Participants[0]
	}
	return ParticipantLabel(UnknownWallet, "")
}
