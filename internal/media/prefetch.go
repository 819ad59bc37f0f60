package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/reelfeed/engine/internal/models"
)

// PrefetcherConfig controls how far and how much the prefetcher warms.
type PrefetcherConfig struct {
	Ahead     int
	HeadBytes int64
	CacheDir  string
	Workers   int
	QueueSize int
}

type warmJob struct {
	key string
}

// Prefetcher warms the head bytes of upcoming playback sources into a local
// cache directory so the next pages start without a network stall. Work is
// bounded: a full queue drops the job rather than backing up the scroll path.
type Prefetcher struct {
	resolver   *SourceResolver
	downloader *manager.Downloader
	cfg        PrefetcherConfig
	logger     *slog.Logger

	jobs   chan warmJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.Mutex
	warmed map[string]struct{}
}

// NewPrefetcher constructs a background warmer over the resolver's store.
func NewPrefetcher(resolver *SourceResolver, cfg PrefetcherConfig, logger *slog.Logger) *Prefetcher {
	if cfg.Ahead <= 0 {
		cfg.Ahead = 2
	}
	if cfg.HeadBytes <= 0 {
		cfg.HeadBytes = 512 * 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 8
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Prefetcher{
		resolver:   resolver,
		downloader: resolver.Downloader(),
		cfg:        cfg,
		logger:     logger,
		jobs:       make(chan warmJob, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
		warmed:     make(map[string]struct{}),
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}

	return p
}

// WarmAhead schedules warming for the pages after the settled index.
func (p *Prefetcher) WarmAhead(ctx context.Context, entries []models.FeedEntry, index int) {
	for i := index + 1; i <= index+p.cfg.Ahead && i < len(entries); i++ {
		key, ok := p.resolver.Key(entries[i].Video.SourceURL)
		if !ok {
			continue
		}

		p.mu.Lock()
		if _, done := p.warmed[key]; done {
			p.mu.Unlock()
			continue
		}
		p.warmed[key] = struct{}{}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-p.ctx.Done():
			return
		case p.jobs <- warmJob{key: key}:
		default:
			// Queue full: forget the key so a later settle can retry.
			p.mu.Lock()
			delete(p.warmed, key)
			p.mu.Unlock()
		}
	}
}

func (p *Prefetcher) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			if err := p.warm(job.key); err != nil {
				p.logger.Warn("prefetch failed", "key", job.key, "error", err)
				p.mu.Lock()
				delete(p.warmed, job.key)
				p.mu.Unlock()
			}
		}
	}
}

func (p *Prefetcher) warm(key string) error {
	path := filepath.Join(p.cfg.CacheDir, cacheFileName(key))
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer file.Close()

	_, err = p.downloader.Download(p.ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(p.resolver.bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=0-%d", p.cfg.HeadBytes-1)),
	})
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("download head: %w", err)
	}

	return nil
}

// Close stops the workers and drops any queued work.
func (p *Prefetcher) Close() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

func cacheFileName(key string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(key) + ".head"
}
