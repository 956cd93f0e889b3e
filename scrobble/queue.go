package scrobble

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/kinema-cli/kinema/catalog"
	"github.com/kinema-cli/kinema/filesystem"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/where"
)

// pending is one undelivered stopped report.
type pending struct {
	Timestamp int64                  `json:"timestamp"`
	Report    catalog.PlaybackReport `json:"report"`
}

var queueMu sync.Mutex

// Enqueue appends a stopped report to the offline queue.
func Enqueue(report catalog.PlaybackReport) error {
	queueMu.Lock()
	defer queueMu.Unlock()

	f, err := filesystem.API().OpenFile(where.Queue(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(pending{
		Timestamp: time.Now().Unix(),
		Report:    report,
	})
}

// Queued returns the reports waiting in the offline queue.
func Queued() ([]catalog.PlaybackReport, error) {
	queueMu.Lock()
	defer queueMu.Unlock()

	entries, err := readQueue()
	if err != nil {
		return nil, err
	}

	reports := make([]catalog.PlaybackReport, len(entries))
	for i, e := range entries {
		reports[i] = e.Report
	}
	return reports, nil
}

func readQueue() ([]pending, error) {
	content, err := filesystem.API().ReadFile(where.Queue())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []pending
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var p pending
		if err := json.Unmarshal(line, &p); err != nil {
			log.Warnf("dropping malformed queue entry: %s", err)
			continue
		}
		entries = append(entries, p)
	}

	return entries, scanner.Err()
}

func writeQueue(entries []pending) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}

	return filesystem.API().WriteFile(where.Queue(), buf.Bytes(), 0o644)
}

// Reconcile replays queued stopped reports in order. Delivered entries leave
// the queue; the rest stay for the next run. It returns how many were delivered.
func Reconcile(ctx context.Context, client Client) (int, error) {
	queueMu.Lock()
	defer queueMu.Unlock()

	entries, err := readQueue()
	if err != nil || len(entries) == 0 {
		return 0, err
	}

	var (
		failed    []pending
		delivered int
	)

	for i, e := range entries {
		if ctx.Err() != nil {
			failed = append(failed, entries[i:]...)
			break
		}

		if err := client.ReportStopped(ctx, e.Report); err != nil {
			log.Warnf("replay stopped report for %s: %s", e.Report.ItemID, err)
			failed = append(failed, e)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return 0, ctx.Err()
	}

	log.Infof("replayed %d queued playback reports", delivered)
	return delivered, writeQueue(failed)
}
