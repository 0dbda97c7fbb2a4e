// Package batch runs an inference gateway over a list of messages, one at a time,
// and collects per-message results with aggregate counts.
package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/umputun/spamdash/lib/gateway"
	"github.com/umputun/spamdash/lib/msgcheck"
)

// Runner classifies batches with the given gateway
type Runner struct {
	gw     gateway.Gateway
	onItem func(idx int, item Item)
}

// Item is a result for a single message, either Result or Err is set
type Item struct {
	Message string
	Result  msgcheck.Result
	Err     error
}

// OK returns true if the message was classified
func (it Item) OK() bool { return it.Err == nil }

// Kind returns error kind of a failed item, empty for successful ones
func (it Item) Kind() msgcheck.ErrKind { return msgcheck.Kind(it.Err) }

// ResultText returns the label or "ERROR: <kind>" for failed items
func (it Item) ResultText() string {
	if it.Err != nil {
		return "ERROR: " + string(it.Kind())
	}
	return string(it.Result.Label)
}

// Summary is aggregated counts of a batch
type Summary struct {
	Spam   int `json:"spam"`
	Ham    int `json:"ham"`
	Errors int `json:"errors"`
	Total  int `json:"total"`
}

// SpamPercent returns percentage of spam items
func (s Summary) SpamPercent() float64 { return s.percent(s.Spam) }

// HamPercent returns percentage of ham items
func (s Summary) HamPercent() float64 { return s.percent(s.Ham) }

// ErrorPercent returns percentage of failed items
func (s Summary) ErrorPercent() float64 { return s.percent(s.Errors) }

func (s Summary) percent(n int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(s.Total)
}

// Report is a batch result, items are in input order
type Report struct {
	Items   []Item
	Summary Summary
}

func (r *Report) add(it Item) {
	r.Items = append(r.Items, it)
	r.Summary.Total++
	switch {
	case it.Err != nil:
		r.Summary.Errors++
	case it.Result.IsSpam():
		r.Summary.Spam++
	default:
		r.Summary.Ham++
	}
}

// NewRunner makes a batch runner
func NewRunner(gw gateway.Gateway) *Runner {
	return &Runner{gw: gw}
}

// WithProgress sets a function called after each processed item
func (r *Runner) WithProgress(fn func(idx int, item Item)) *Runner {
	r.onItem = fn
	return r
}

// Run classifies messages in order. Blank messages are dropped first, msgcheck.ErrEmptyBatch returned
// if nothing is left. Per-message failures are recorded in items and don't stop the batch.
// Unavailable model and canceled context stop it, the partial report is returned with the error.
func (r *Runner) Run(ctx context.Context, messages []string) (Report, error) {
	msgs := make([]string, 0, len(messages))
	for _, m := range messages {
		if m = strings.TrimSpace(m); m != "" {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) == 0 {
		return Report{Items: []Item{}}, msgcheck.ErrEmptyBatch
	}

	res := Report{Items: make([]Item, 0, len(msgs))}
	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("batch stopped at %d of %d: %w", i, len(msgs), err)
		}
		result, err := r.gw.Infer(ctx, msg)
		if err != nil && (errors.Is(err, msgcheck.ErrModelUnavailable) || ctx.Err() != nil) {
			return res, fmt.Errorf("batch stopped at %d of %d: %w", i, len(msgs), err)
		}
		if err != nil {
			log.Printf("[WARN] batch item %d failed with %s: %v", i, r.gw.Name(), err)
		}
		item := Item{Message: msg, Result: result, Err: err}
		res.add(item)
		if r.onItem != nil {
			r.onItem(i, item)
		}
	}
	return res, nil
}

// WriteCSV writes the report as csv with Message,Result header
func WriteCSV(w io.Writer, rep Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Message", "Result"}); err != nil {
		return fmt.Errorf("can't write csv header: %w", err)
	}
	for _, it := range rep.Items {
		if err := cw.Write([]string{it.Message, it.ResultText()}); err != nil {
			return fmt.Errorf("can't write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("can't flush csv: %w", err)
	}
	return nil
}
