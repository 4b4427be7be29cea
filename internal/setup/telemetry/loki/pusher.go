package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/lumi/internal/setup/config"
)

// ErrUnexpectedStatusCode is returned when Loki responds with an unexpected status code.
var ErrUnexpectedStatusCode = errors.New("unexpected status code from Loki")

// Pusher handles batching and sending log entries to Loki.
type Pusher struct {
	config    config.Loki
	cancel    context.CancelFunc
	client    *http.Client
	quit      chan struct{}
	entries   chan entry
	waitGroup sync.WaitGroup
	batch     [][2]string
	pushURL   string
	dropped   atomic.Int64
}

// NewPusher creates a new Loki pusher with the given configuration.
func NewPusher(ctx context.Context, config config.Loki) *Pusher {
	config.BatchMaxSize = max(config.BatchMaxSize, 1)
	config.BatchMaxWaitMS = max(config.BatchMaxWaitMS, 100)

	ctx, cancel := context.WithCancel(ctx)

	pusher := &Pusher{
		config:  config,
		cancel:  cancel,
		client:  &http.Client{Timeout: 10 * time.Second},
		quit:    make(chan struct{}),
		entries: make(chan entry, config.BatchMaxSize*2),
		batch:   make([][2]string, 0, config.BatchMaxSize),
		pushURL: config.URL + "/loki/api/v1/push",
	}

	pusher.waitGroup.Add(1)
	go pusher.run(ctx)

	return pusher
}

// AddEntry queues a log entry. Entries are dropped rather than blocking the
// caller when the queue is full.
func (p *Pusher) AddEntry(e entry) {
	select {
	case p.entries <- e:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (p *Pusher) Dropped() int64 {
	return p.dropped.Load()
}

// Stop flushes queued entries and shuts down the pusher.
func (p *Pusher) Stop() {
	close(p.quit)
	p.waitGroup.Wait()
	p.cancel()
}

// run batches entries and sends them when the batch is full or the wait expires.
func (p *Pusher) run(ctx context.Context) {
	defer p.waitGroup.Done()

	ticker := time.NewTicker(time.Duration(p.config.BatchMaxWaitMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			p.drain()
			p.flush(ctx)
			return
		case e := <-p.entries:
			p.append(e)
			if len(p.batch) >= p.config.BatchMaxSize {
				p.flush(ctx)
			}
		case <-ticker.C:
			p.flush(ctx)
		}
	}
}

func (p *Pusher) append(e entry) {
	p.batch = append(p.batch, [2]string{strconv.FormatInt(e.timestamp, 10), e.line})
}

// drain moves every queued entry into the batch.
func (p *Pusher) drain() {
	for {
		select {
		case e := <-p.entries:
			p.append(e)
		default:
			return
		}
	}
}

func (p *Pusher) flush(ctx context.Context) {
	if len(p.batch) == 0 {
		return
	}

	if err := p.send(ctx, p.batch); err != nil {
		// Logging through zap here would feed back into this pusher
		log.Printf("failed to send Loki batch of %d entries: %v", len(p.batch), err)
	}
	p.batch = p.batch[:0]
}

// send transmits a batch to Loki as gzipped JSON.
func (p *Pusher) send(ctx context.Context, values [][2]string) error {
	payload, err := sonic.Marshal(pushRequest{
		Streams: []stream{{Stream: p.config.Labels, Values: values}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return fmt.Errorf("failed to compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.pushURL, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	if p.config.Username != "" && p.config.Password != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	return nil
}
