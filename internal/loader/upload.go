package loader

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bookrec/internal/storage/weaviate"
)

// BatchClient is the batch part of the vector service client.
type BatchClient interface {
	BatchObjects(ctx context.Context, objects []weaviate.Object) ([]error, error)
}

// LoadError describes one record that did not make it into the index.
type LoadError struct {
	Index  int    `json:"index"`
	BookID string `json:"book_id"`
	Reason string `json:"reason"`
}

func (e LoadError) Error() string {
	return fmt.Sprintf("import failed at %d (%s): %s", e.Index, e.BookID, e.Reason)
}

// Report accumulates per-item outcomes. There is no rollback: Succeeded items stay stored.
type Report struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []LoadError   `json:"failures"`
	Duration  time.Duration `json:"duration"`
}

type Options struct {
	Class     string
	BatchSize int
	Workers   int
	// Progress receives the progress bar; nil hides it.
	Progress io.Writer
}

type Uploader struct {
	client    BatchClient
	validator *Validator
	opts      Options
	log       *logrus.Logger
}

func NewUploader(client BatchClient, validator *Validator, opts Options, log *logrus.Logger) *Uploader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Uploader{client: client, validator: validator, opts: opts, log: log}
}

type indexed struct {
	index  int
	record Record
}

// Upload validates and sends records in batches. It never stops on an item failure:
// invalid records, rejected objects and whole failed batches all land in the report.
func (u *Uploader) Upload(ctx context.Context, records []Record) *Report {
	start := time.Now()
	c := &collector{log: u.log, report: &Report{Total: len(records), Failures: []LoadError{}}}
	if len(records) == 0 {
		return c.report
	}

	bar := u.newBar(len(records))

	var valid []indexed
	for i, r := range records {
		if u.validator != nil {
			if err := u.validator.Validate(r); err != nil {
				c.fail(i, r.BookID, err.Error())
				_ = bar.Add(1)
				continue
			}
		}
		valid = append(valid, indexed{index: i, record: r})
	}

	var g errgroup.Group
	g.SetLimit(u.opts.Workers)
	for lo := 0; lo < len(valid); lo += u.opts.BatchSize {
		hi := min(lo+u.opts.BatchSize, len(valid))
		batch := valid[lo:hi]
		g.Go(func() error {
			u.sendBatch(ctx, batch, c)
			_ = bar.Add(len(batch))
			return nil
		})
	}
	_ = g.Wait()
	_ = bar.Finish()

	report := c.report
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Index < report.Failures[j].Index
	})
	report.Duration = time.Since(start)
	return report
}

func (u *Uploader) sendBatch(ctx context.Context, batch []indexed, c *collector) {
	started := time.Now()
	defer func() { batchDuration.Observe(time.Since(started).Seconds()) }()

	objects := make([]weaviate.Object, len(batch))
	for i, it := range batch {
		objects[i] = weaviate.Object{Class: u.opts.Class, Properties: it.record.Properties()}
	}

	results, err := u.client.BatchObjects(ctx, objects)
	if err != nil {
		u.log.WithError(err).WithFields(logrus.Fields{
			"first": batch[0].index,
			"size":  len(batch),
		}).Error("batch.failed")
		for _, it := range batch {
			c.fail(it.index, it.record.BookID, err.Error())
		}
		return
	}

	for i, it := range batch {
		if i >= len(results) {
			c.fail(it.index, it.record.BookID, "no result for object")
			continue
		}
		if results[i] != nil {
			c.fail(it.index, it.record.BookID, results[i].Error())
			continue
		}
		c.succeed()
	}
}

// collector gathers outcomes of one Upload call from concurrent batches.
type collector struct {
	log    *logrus.Logger
	mu     sync.Mutex
	report *Report
}

func (c *collector) fail(index int, bookID, reason string) {
	itemsTotal.WithLabelValues("failed").Inc()
	c.log.WithFields(logrus.Fields{"index": index, "book_id": bookID}).Warnf("import failed: %s", reason)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Failed++
	c.report.Failures = append(c.report.Failures, LoadError{Index: index, BookID: bookID, Reason: reason})
}

func (c *collector) succeed() {
	itemsTotal.WithLabelValues("success").Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Succeeded++
}

func (u *Uploader) newBar(total int) *progressbar.ProgressBar {
	w := u.opts.Progress
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("uploading books"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}
