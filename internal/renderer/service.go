package renderer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/walletflow/internal/cache"
	"github.com/dvloznov/walletflow/internal/csvimport"
	"github.com/dvloznov/walletflow/internal/domain"
	"github.com/dvloznov/walletflow/internal/logger"
	"github.com/dvloznov/walletflow/internal/mermaid"
	"github.com/dvloznov/walletflow/internal/pipeline"
)

// Request is one diagram render.
type Request struct {
	Records []domain.TransactionRecord
	Options pipeline.Options
	// Currencies restricts the input to records filed under these codes.
	// Empty keeps every record.
	Currencies []string
}

// Result is a rendered diagram plus what the caller needs to present it.
type Result struct {
	Diagram      string         `json:"diagram"`
	LiveURL      string         `json:"live_url"`
	Participants []string       `json:"participants"`
	Periods      []string       `json:"periods"`
	Stats        pipeline.Stats `json:"stats"`
	Cached       bool           `json:"cached"`
}

// Service renders diagrams, memoizing results in a cache when one is set.
type Service struct {
	cache    cache.Cache
	ttl      time.Duration
	defaults pipeline.Options
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache stores results in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.ttl = ttl
	}
}

// WithDefaults sets the options used for fields a request leaves unset.
func WithDefaults(opts pipeline.Options) Option {
	return func(s *Service) {
		s.defaults = opts
	}
}

// WithClock replaces time.Now as the reference date for undated records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a render service.
func NewService(opts ...Option) *Service {
	s := &Service{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render filters, transforms and renders req.Records.
func (s *Service) Render(ctx context.Context, req Request) (*Result, error) {
	log := logger.FromContext(ctx)

	opts := s.resolve(req.Options)
	settings := pipeline.Resolve(opts)
	key := s.cacheKey(req, settings)

	if s.cache != nil {
		if cached, ok := s.lookup(ctx, key); ok {
			log.Info().
				Str("cache_key", key[:12]).
				Int("records", len(req.Records)).
				Msg("Served diagram from cache")
			return cached, nil
		}
	}

	records := csvimport.FilterByCurrency(req.Records, req.Currencies)
	d := pipeline.BuildDiagram(records, opts)
	text := d.String()

	liveURL, err := mermaid.EncodeLiveURL(text)
	if err != nil {
		return nil, fmt.Errorf("Render: failed to build share link: %w", err)
	}

	result := &Result{
		Diagram:      text,
		LiveURL:      liveURL,
		Participants: append([]string{}, d.Participants...),
		Periods:      make([]string, 0, len(d.Periods)),
		Stats:        d.Stats,
	}
	for _, p := range d.Periods {
		result.Periods = append(result.Periods, p.Key)
	}

	log.Info().
		Int("input_records", len(req.Records)).
		Int("filtered_records", d.Stats.Input).
		Int("aggregated_records", d.Stats.Aggregated).
		Int("netted_records", d.Stats.Netted).
		Int("participants", len(d.Participants)).
		Int("periods", len(d.Periods)).
		Str("aggregate_period", string(settings.AggregatePeriod)).
		Bool("offset", settings.Offset).
		Msg("Rendered diagram")

	if s.cache != nil {
		s.store(ctx, key, result)
	}
	return result, nil
}

// RenderCSV parses a Koinly CSV export and renders it.
func (s *Service) RenderCSV(ctx context.Context, r io.Reader, req Request) (*Result, error) {
	records, err := csvimport.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("RenderCSV: %w", err)
	}
	req.Records = records
	return s.Render(ctx, req)
}

// resolve fills the fields a request leaves unset from the service defaults.
func (s *Service) resolve(opts pipeline.Options) pipeline.Options {
	if opts.Offset == nil {
		opts.Offset = s.defaults.Offset
	}
	if !opts.AggregatePeriod.Valid() {
		opts.AggregatePeriod = s.defaults.AggregatePeriod
	}
	if opts.ShowNotes == nil {
		opts.ShowNotes = s.defaults.ShowNotes
	}
	if opts.Now == nil {
		opts.Now = s.now
	}
	return opts
}

func (s *Service) lookup(ctx context.Context, key string) (*Result, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("Diagram cache read failed, rendering")
		}
		return nil, false
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Discarding undecodable cache entry")
		return nil, false
	}
	result.Cached = true
	return &result, true
}

func (s *Service) store(ctx context.Context, key string, result *Result) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Diagram cache write failed")
	}
}

// cacheKey hashes everything that influences the output. Amounts are
// written with strconv so that NaN hashes like any other value. Undated
// records bucket by the current day, which then becomes part of the key.
func (s *Service) cacheKey(req Request, settings pipeline.Settings) string {
	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			io.WriteString(h, strconv.Quote(p))
			h.Write([]byte{0})
		}
	}

	write(strconv.FormatBool(settings.Offset), string(settings.AggregatePeriod), strconv.FormatBool(settings.ShowNotes))

	codes := append([]string(nil), req.Currencies...)
	for i := range codes {
		codes[i] = strings.ToUpper(strings.TrimSpace(codes[i]))
	}
	sort.Strings(codes)
	write(strings.Join(codes, ","))

	undated := false
	for _, r := range req.Records {
		write(
			strconv.Itoa(r.Year), r.Date,
			r.FromWallet, r.ToWallet, r.FromCurrency, r.ToCurrency,
			strconv.FormatFloat(r.FromAmount, 'g', -1, 64),
			strconv.FormatFloat(r.ToAmount, 'g', -1, 64),
		)
		if _, ok := pipeline.ParseDate(r.Date); !ok && (r.Year <= 0 || r.Year > 9999) {
			undated = true
		}
	}
	if undated {
		write(settings.Now().UTC().Format("2006-01-02"))
	}

	return hex.EncodeToString(h.Sum(nil))
}
