package pipeline

import (
	"time"
)

// Settings is the normalized configuration of one diagram generation run.
type Settings struct {
	Offset          bool
	AggregatePeriod Period
	ShowNotes       bool

	// Now supplies the reference date for records that carry neither a date
	// nor a year. Defaults to time.Now.
	Now func() time.Time
}

// DefaultSettings nets reverse transactions within yearly buckets and omits
// balance notes.
func DefaultSettings() Settings {
	return Settings{
		Offset:          true,
		AggregatePeriod: DefaultPeriod,
		ShowNotes:       false,
		Now:             time.Now,
	}
}

// OptionSet is accepted by GenerateSequenceDiagram: either the Options
// object form or the positional Legacy form. A nil OptionSet means defaults.
type OptionSet interface {
	settings() Settings
}

// Options is the object form of the generation options. Unset fields
// take their defaults: Offset true, AggregatePeriod year, ShowNotes false.
type Options struct {
	Offset          *bool            `json:"offset,omitempty"`
	AggregatePeriod Period           `json:"aggregate_period,omitempty"`
	ShowNotes       *bool            `json:"show_notes,omitempty"`
	Now             func() time.Time `json:"-"`
}

func (o Options) settings() Settings {
	s := DefaultSettings()
	if o.Offset != nil {
		s.Offset = *o.Offset
	}
	if o.AggregatePeriod.Valid() {
		s.AggregatePeriod = o.AggregatePeriod
	}
	if o.ShowNotes != nil {
		s.ShowNotes = *o.ShowNotes
	}
	if o.Now != nil {
		s.Now = o.Now
	}
	return s
}

// Legacy is the positional boolean form generateSequenceDiagram(records,
// offset[, showNotes]) kept for old callers. The aggregation period is the
// default.
type Legacy struct {
	Offset    bool
	ShowNotes bool
}

func (l Legacy) settings() Settings {
	s := DefaultSettings()
	s.Offset = l.Offset
	s.ShowNotes = l.ShowNotes
	return s
}

// Settings can be passed back in as an OptionSet; an unknown period or a
// missing clock falls back to the default.
func (s Settings) settings() Settings {
	if !s.AggregatePeriod.Valid() {
		s.AggregatePeriod = DefaultPeriod
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// Resolve normalizes any accepted option form into Settings.
func Resolve(opts OptionSet) Settings {
	if opts == nil {
		return DefaultSettings()
	}
	return opts.settings()
}

// Bool returns a pointer to v, for filling Options.
func Bool(v bool) *bool {
	return &v
}
