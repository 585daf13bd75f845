// Package analytics maintains the rolling and cumulative metrics of one
// session: talk ratio, sentiment history, detection histories and key moments.
package analytics

import (
	"math"

	"github.com/hpungsan/parley/internal/classify"
	"github.com/hpungsan/parley/internal/transcript"
)

// Default history caps.
const (
	DefaultSentimentCap    = 50
	DefaultDetectionCap    = 100
	DefaultKeyMomentCap    = 20
	DefaultKeyObjectionMin = 0.6
)

// SentimentSample is one scored client utterance.
type SentimentSample struct {
	Value       classify.Sentiment `json:"value"`
	TimestampMs int64              `json:"timestamp_ms"`
}

// KeyMoment is a detection worth surfacing in the session report.
type KeyMoment struct {
	DetectionID string             `json:"detection_id"`
	Kind        classify.Kind      `json:"kind"`
	Subtype     string             `json:"subtype"`
	Speaker     transcript.Speaker `json:"speaker"`
	Confidence  float64            `json:"confidence"`
	TimestampMs int64              `json:"timestamp_ms"`
	Quote       string             `json:"quote,omitempty"`
}

// Options configures history sizes and the key-moment filter.
type Options struct {
	SentimentCap int
	DetectionCap int
	KeyMomentCap int

	// KeyObjectionMin is the confidence at which an objection becomes a key moment.
	KeyObjectionMin float64
}

func (o Options) withDefaults() Options {
	if o.SentimentCap <= 0 {
		o.SentimentCap = DefaultSentimentCap
	}
	if o.DetectionCap <= 0 {
		o.DetectionCap = DefaultDetectionCap
	}
	if o.KeyMomentCap <= 0 {
		o.KeyMomentCap = DefaultKeyMomentCap
	}
	if o.KeyObjectionMin <= 0 {
		o.KeyObjectionMin = DefaultKeyObjectionMin
	}
	return o
}

// Aggregator is owned by exactly one session and is not safe for concurrent use.
type Aggregator struct {
	opts Options

	talk       TalkRatio
	sentiment  capped[SentimentSample]
	detections map[classify.Kind]*capped[classify.Detection]
	keyMoments capped[KeyMoment]

	kindCounts    map[classify.Kind]int
	subtypeCounts map[classify.Kind]map[string]int

	totalUtterances int
	totalDetections int

	// last recorded utterance, used to quote key moments
	last transcript.Utterance
}

// New creates an empty aggregator.
func New(opts Options) *Aggregator {
	opts = opts.withDefaults()
	a := &Aggregator{
		opts:          opts,
		sentiment:     capped[SentimentSample]{limit: opts.SentimentCap},
		detections:    make(map[classify.Kind]*capped[classify.Detection], len(classify.Kinds)),
		keyMoments:    capped[KeyMoment]{limit: opts.KeyMomentCap},
		kindCounts:    make(map[classify.Kind]int, len(classify.Kinds)),
		subtypeCounts: make(map[classify.Kind]map[string]int, len(classify.Kinds)),
	}
	for _, k := range classify.Kinds {
		a.detections[k] = &capped[classify.Detection]{limit: opts.DetectionCap}
		a.subtypeCounts[k] = make(map[string]int)
	}
	return a
}

// RecordUtterance credits the utterance's character count to its speaker.
func (a *Aggregator) RecordUtterance(u transcript.Utterance) {
	a.talk.Add(u.Speaker, int64(transcript.CountChars(u.Text)))
	a.totalUtterances++
	a.last = u
}

// RecordDetection appends d to its kind's capped history.
func (a *Aggregator) RecordDetection(d classify.Detection) {
	h, ok := a.detections[d.Kind]
	if !ok {
		h = &capped[classify.Detection]{limit: a.opts.DetectionCap}
		a.detections[d.Kind] = h
		a.subtypeCounts[d.Kind] = make(map[string]int)
	}
	h.push(d)
	a.kindCounts[d.Kind]++
	a.subtypeCounts[d.Kind][d.Subtype]++
	a.totalDetections++

	if a.isKeyMoment(d) {
		km := KeyMoment{
			DetectionID: d.ID,
			Kind:        d.Kind,
			Subtype:     d.Subtype,
			Speaker:     d.Speaker,
			Confidence:  d.Confidence,
			TimestampMs: d.TimestampMs,
		}
		if a.last.ID != "" && a.last.ID == d.SourceUtteranceID {
			km.Quote = a.last.Text
		}
		a.keyMoments.push(km)
	}
}

// RecordSentiment appends s to the sentiment history.
func (a *Aggregator) RecordSentiment(s SentimentSample) {
	a.sentiment.push(s)
}

func (a *Aggregator) isKeyMoment(d classify.Detection) bool {
	switch d.Kind {
	case classify.KindObjection:
		return d.Confidence >= a.opts.KeyObjectionMin
	case classify.KindQuestion:
		return d.Strength == classify.StrengthStrong
	case classify.KindBuyingSignal:
		return true
	}
	return false
}

// Summary is a point-in-time view of the aggregator.
type Summary struct {
	SentimentAverage    float64               `json:"sentiment_average"`
	SentimentTrend      Trend                 `json:"sentiment_trend"`
	SentimentSamples    int                   `json:"sentiment_samples"`
	TalkRatio           TalkRatio             `json:"talk_ratio"`
	TalkRatioPercent    TalkPercent           `json:"talk_ratio_percent"`
	DetectionCounts     map[classify.Kind]int `json:"detection_counts"`
	ObjectionsBySubtype map[string]int        `json:"objections_by_subtype"`
	QuestionsBySubtype  map[string]int        `json:"questions_by_subtype"`
	SignalsBySubtype    map[string]int        `json:"buying_signals_by_subtype"`
	TotalUtterances     int                   `json:"total_utterances"`
	TotalDetections     int                   `json:"total_detections"`
	KeyMoments          []KeyMoment           `json:"key_moments"`
}

// Summary computes the current summary. It does not modify the aggregator.
func (a *Aggregator) Summary() Summary {
	samples := a.sentiment.items
	counts := make(map[classify.Kind]int, len(classify.Kinds))
	for _, k := range classify.Kinds {
		counts[k] = a.kindCounts[k]
	}
	return Summary{
		SentimentAverage:    average(samples),
		SentimentTrend:      trendOf(samples),
		SentimentSamples:    len(samples),
		TalkRatio:           a.talk,
		TalkRatioPercent:    a.talk.Percent(),
		DetectionCounts:     counts,
		ObjectionsBySubtype: copyCounts(a.subtypeCounts[classify.KindObjection]),
		QuestionsBySubtype:  copyCounts(a.subtypeCounts[classify.KindQuestion]),
		SignalsBySubtype:    copyCounts(a.subtypeCounts[classify.KindBuyingSignal]),
		TotalUtterances:     a.totalUtterances,
		TotalDetections:     a.totalDetections,
		KeyMoments:          a.keyMoments.snapshot(),
	}
}

// average is the mean sentiment value rounded to 3 decimals; 0 when empty.
func average(samples []SentimentSample) float64 {
	return round3(mean(samples))
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// capped is a FIFO list that drops its oldest entry past limit.
type capped[T any] struct {
	items []T
	limit int
}

func (c *capped[T]) push(v T) {
	if len(c.items) >= c.limit {
		// shift in place so the backing array does not grow
		copy(c.items, c.items[1:])
		c.items[len(c.items)-1] = v
		return
	}
	c.items = append(c.items, v)
}

func (c *capped[T]) snapshot() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}
