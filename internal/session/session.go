// Package session runs one live call through the analysis pipeline:
// normalize, buffer, classify, aggregate, and maybe request a suggestion.
package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/parley/internal/analytics"
	"github.com/hpungsan/parley/internal/buffer"
	"github.com/hpungsan/parley/internal/classify"
	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/suggest"
	"github.com/hpungsan/parley/internal/transcript"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle   State = "IDLE"
	StateActive State = "ACTIVE"
	StateEnded  State = "ENDED"
)

// Default pipeline sizes.
const (
	DefaultContextWindow = 5
	DefaultSnippetSize   = 3
	DefaultPlatform      = "unknown"
)

// Options configures one session.
type Options struct {
	BufferCapacity int
	ContextWindow  int
	SnippetSize    int

	Analytics analytics.Options
	Policy    suggest.Policy

	// SpeakerMap resolves raw speaker labels from the speech-to-text source.
	SpeakerMap transcript.SpeakerMap

	// Clock defaults to time.Now.
	Clock func() time.Time
	// AfterFunc arms the cooldown release timer and defaults to time.AfterFunc.
	// Delays are computed from Clock, so a fake Clock needs a matching AfterFunc.
	AfterFunc func(d time.Duration, f func()) Timer
}

// Timer is the handle returned by Options.AfterFunc.
type Timer interface {
	Stop() bool
}

func wallAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DefaultOptions returns the default session options.
func DefaultOptions() Options {
	return Options{
		BufferCapacity: buffer.DefaultCapacity,
		ContextWindow:  DefaultContextWindow,
		SnippetSize:    DefaultSnippetSize,
		Policy:         suggest.DefaultPolicy(),
	}
}

func (o Options) withDefaults() Options {
	if o.BufferCapacity <= 0 {
		o.BufferCapacity = buffer.DefaultCapacity
	}
	if o.ContextWindow <= 0 {
		o.ContextWindow = DefaultContextWindow
	}
	if o.SnippetSize <= 0 {
		o.SnippetSize = DefaultSnippetSize
	}
	if o.Analytics.KeyObjectionMin <= 0 {
		o.Analytics.KeyObjectionMin = o.Policy.ObjectionThreshold
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.AfterFunc == nil {
		o.AfterFunc = wallAfterFunc
	}
	return o
}

// Deps are the collaborators a session uses.
type Deps struct {
	// Registry defaults to the built-in lexicon.
	Registry *classify.Registry
	// Generator is the suggestion collaborator; nil disables suggestions.
	Generator suggest.Generator
	// Sink receives events; nil discards them.
	Sink   Sink
	Logger logrus.FieldLogger
}

// Summary is the final snapshot returned by End. It extends the aggregator
// summary with session identity, duration and message totals.
type Summary struct {
	SessionID  string    `json:"session_id"`
	Platform   string    `json:"platform"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`

	// TotalMessages counts every accepted event, final or not.
	TotalMessages int `json:"total_messages"`

	analytics.Summary
}

// IngestResult reports what one ingest did.
type IngestResult struct {
	Utterance  *transcript.Utterance `json:"utterance,omitempty"`
	Dropped    bool                  `json:"dropped"`
	DropReason string                `json:"drop_reason,omitempty"`
	Detections []classify.Detection  `json:"detections"`
	Sentiment  classify.Sentiment    `json:"sentiment,omitempty"`
	// Suggestion is "dispatch", "defer", "skip" or "disabled".
	Suggestion       string   `json:"suggestion,omitempty"`
	ClassifierErrors []string `json:"classifier_errors,omitempty"`
}

// Session owns the buffer, aggregator and trigger of one call. All methods are
// safe for concurrent use; ingests are serialized in call order.
type Session struct {
	mu sync.Mutex

	id       string
	platform string
	state    State
	opts     Options

	registry   *classify.Registry
	normalizer *transcript.Normalizer
	generator  suggest.Generator
	sink       Sink
	log        logrus.FieldLogger

	buf     *buffer.Rolling
	agg     *analytics.Aggregator
	trigger *suggest.Trigger
	timer   Timer

	startedAt     time.Time
	totalMessages int
	final         *Summary

	inflight sync.WaitGroup
}

// New creates an IDLE session. An empty id gets a generated ULID.
func New(id string, opts Options, deps Deps) (*Session, error) {
	if id == "" {
		var err error
		if id, err = transcript.NewID(); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	opts = opts.withDefaults()

	if deps.Registry == nil {
		deps.Registry = classify.NewRegistry(nil)
	}
	if deps.Sink == nil {
		deps.Sink = discardSink{}
	}
	if deps.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		deps.Logger = l
	}

	return &Session{
		id:         id,
		state:      StateIdle,
		opts:       opts,
		registry:   deps.Registry,
		normalizer: transcript.NewNormalizer(opts.SpeakerMap, opts.Clock),
		generator:  deps.Generator,
		sink:       deps.Sink,
		log:        deps.Logger.WithField("session_id", id),
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Platform returns the platform tag given to Start.
func (s *Session) Platform() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.platform
}

// Start moves IDLE to ACTIVE and allocates the per-call state.
func (s *Session) Start(platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateActive:
		return errors.NewAlreadyActive(s.id)
	case StateEnded:
		return errors.NewSessionEnded(s.id)
	}

	platform = strings.TrimSpace(platform)
	if platform == "" {
		platform = DefaultPlatform
	}
	s.platform = platform
	s.buf = buffer.New(s.opts.BufferCapacity)
	s.agg = analytics.New(s.opts.Analytics)
	s.trigger = suggest.NewTrigger(s.opts.Policy)
	s.startedAt = s.opts.Clock()
	s.state = StateActive

	s.log.WithField("platform", platform).Info("session started")
	return nil
}

// Ingest processes one raw speech event. It fails only with SESSION_NOT_ACTIVE;
// malformed events are dropped and reported in the result.
func (s *Session) Ingest(raw transcript.RawEvent) (IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return IngestResult{}, errors.NewSessionNotActive(s.id, string(s.state))
	}

	u, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.log.WithField("reason", err.Error()).Debug("dropped utterance")
		return IngestResult{Dropped: true, DropReason: err.Error()}, nil
	}
	s.totalMessages++
	now := s.opts.Clock()

	if !u.IsFinal {
		s.sink.Emit(CaptionUpdated{EventHeader: newHeader(EventCaptionUpdated, s.id, now), Utterance: u})
		return IngestResult{Utterance: &u, Detections: []classify.Detection{}}, nil
	}

	s.buf.Append(u)
	window := s.buf.ContextWindow(s.opts.ContextWindow)
	s.agg.RecordUtterance(u)

	res := IngestResult{Utterance: &u, Detections: []classify.Detection{}}
	for _, c := range s.registry.Classifiers() {
		d, err := classify.Run(c, u, window, s.opts.SnippetSize)
		if err != nil {
			s.log.WithFields(logrus.Fields{"classifier": c.Name(), "utterance_id": u.ID}).WithError(err).Warn("classifier failed")
			res.ClassifierErrors = append(res.ClassifierErrors, err.Error())
			continue
		}
		if d == nil {
			continue
		}
		s.agg.RecordDetection(*d)
		res.Detections = append(res.Detections, *d)
		s.sink.Emit(DetectionOccurred{EventHeader: newHeader(EventDetectionOccurred, s.id, now), Detection: *d})
	}

	sentimentRecorded := false
	if scorer := s.registry.Scorer(); scorer != nil {
		sent, ok, err := classify.RunScorer(scorer, u)
		switch {
		case err != nil:
			s.log.WithFields(logrus.Fields{"classifier": scorer.Name(), "utterance_id": u.ID}).WithError(err).Warn("classifier failed")
			res.ClassifierErrors = append(res.ClassifierErrors, err.Error())
		case ok:
			sample := analytics.SentimentSample{Value: sent, TimestampMs: u.TimestampMs}
			s.agg.RecordSentiment(sample)
			res.Sentiment = sent
			sentimentRecorded = true
			sum := s.agg.Summary()
			s.sink.Emit(SentimentUpdated{
				EventHeader: newHeader(EventSentimentUpdated, s.id, now),
				Sample:      sample,
				Average:     sum.SentimentAverage,
				Trend:       sum.SentimentTrend,
			})
		}
	}

	res.Suggestion = s.evaluateTrigger(now, res.Detections, sentimentRecorded)
	return res, nil
}

func (s *Session) evaluateTrigger(now time.Time, detections []classify.Detection, sentimentRecorded bool) string {
	if s.generator == nil {
		return "disabled"
	}
	c, decision := s.trigger.Evaluate(now, suggest.Input{
		Detections:        detections,
		Summary:           s.agg.Summary(),
		SentimentRecorded: sentimentRecorded,
	})
	switch decision {
	case suggest.Dispatch:
		s.dispatch(now, c)
	case suggest.Defer:
		s.schedulePending(now)
	}
	return decision.String()
}

// dispatch sends c to the generator without waiting. Caller holds s.mu.
func (s *Session) dispatch(now time.Time, c suggest.Candidate) {
	reqID, err := transcript.NewID()
	if err != nil {
		s.log.WithError(err).Warn("suggestion request id")
		return
	}
	req := suggest.Request{
		ID:        reqID,
		SessionID: s.id,
		Platform:  s.platform,
		Reason:    c.Reason,
		Detection: c.Detection,
		Context:   suggest.FormatContext(s.buf.ContextWindow(s.opts.ContextWindow)),
		Summary:   s.agg.Summary(),
		CreatedAt: now.UTC(),
	}
	s.log.WithFields(logrus.Fields{"request_id": reqID, "reason": c.Reason}).Info("suggestion dispatched")

	gen, sink, log, id := s.generator, s.sink, s.log, s.id
	clock := s.opts.Clock
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		sug, err := generate(gen, req)
		if err != nil {
			perr := errors.NewSuggestionRequestFailed(req.ID, err)
			log.WithFields(logrus.Fields{"request_id": req.ID, "reason": req.Reason}).WithError(err).Warn("suggestion request failed")
			sink.Emit(SuggestionFailed{
				EventHeader: newHeader(EventSuggestionFailed, id, clock()),
				RequestID:   req.ID,
				Reason:      req.Reason,
				Code:        string(perr.Code),
				Error:       perr.Message,
			})
			return
		}
		if sug.RequestID == "" {
			sug.RequestID = req.ID
		}
		sink.Emit(SuggestionReady{
			EventHeader: newHeader(EventSuggestionReady, id, clock()),
			Reason:      req.Reason,
			Suggestion:  sug,
		})
	}()
}

// generate calls the collaborator, converting a panic into an error.
func generate(gen suggest.Generator, req suggest.Request) (sug suggest.Suggestion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	return gen.Generate(context.Background(), req)
}

// schedulePending arms a timer that releases the pending candidate when the
// cooldown elapses. Caller holds s.mu.
func (s *Session) schedulePending(now time.Time) {
	delay := max(s.trigger.ReadyAt().Sub(now), 0)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.opts.AfterFunc(delay, s.releasePending)
}

func (s *Session) releasePending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return
	}
	now := s.opts.Clock()
	c, decision := s.trigger.Poll(now)
	switch decision {
	case suggest.Dispatch:
		s.dispatch(now, c)
	case suggest.Defer:
		s.schedulePending(now)
	}
}

// Summary returns the live summary while ACTIVE and the final summary once ENDED.
func (s *Session) Summary() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return Summary{}, errors.NewSessionNotActive(s.id, string(s.state))
	case StateEnded:
		return *s.final, nil
	}
	return s.snapshot(s.opts.Clock()), nil
}

// End moves ACTIVE to ENDED, returns the final summary and releases the
// buffer and aggregator. In-flight suggestion requests are not cancelled.
func (s *Session) End() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return Summary{}, errors.NewSessionNotActive(s.id, string(s.state))
	case StateEnded:
		return Summary{}, errors.NewSessionEnded(s.id)
	}

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.trigger.Discard()

	final := s.snapshot(s.opts.Clock())
	s.final = &final
	s.state = StateEnded

	s.buf.Clear()
	s.buf = nil
	s.agg = nil
	s.trigger = nil

	s.log.WithFields(logrus.Fields{
		"duration_ms":      final.DurationMs,
		"total_messages":   final.TotalMessages,
		"total_utterances": final.TotalUtterances,
	}).Info("session ended")
	return final, nil
}

// Wait blocks until every dispatched suggestion request has finished.
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) snapshot(now time.Time) Summary {
	return Summary{
		SessionID:     s.id,
		Platform:      s.platform,
		StartedAt:     s.startedAt.UTC(),
		EndedAt:       now.UTC(),
		DurationMs:    max(now.Sub(s.startedAt).Milliseconds(), 0),
		TotalMessages: s.totalMessages,
		Summary:       s.agg.Summary(),
	}
}
