package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/optimus/internal/config"
	"github.com/samvad-hq/optimus/internal/domain"
	"github.com/samvad-hq/optimus/internal/logger"
	"github.com/samvad-hq/optimus/internal/storage"
	"github.com/samvad-hq/optimus/pkg/optimus"
	"github.com/samvad-hq/optimus/pkg/publishers"
	"github.com/samvad-hq/optimus/pkg/sources"
)

// StdoutOutput writes the optimized image to standard output.
const StdoutOutput = "-"

// ImageOptimizer is the API surface the runtime needs from optimus.Client.
type ImageOptimizer interface {
	Optimize(ctx context.Context, image []byte, option optimus.Option) ([]byte, error)
	Endpoint() string
}

// ImageReader resolves and reads an image reference.
type ImageReader interface {
	Read(ctx context.Context, ref string) ([]byte, error)
}

// EventPublisher publishes run events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
	Size() int
	Close() error
}

// Job describes one image to optimize.
type Job struct {
	Source string
	Option optimus.Option
	// Output is the destination path; empty derives one from Source,
	// StdoutOutput writes to Stdout.
	Output string
}

// Optimizer wires together the API client, image sources, run history and
// publishers.
type Optimizer struct {
	client         ImageOptimizer
	reader         ImageReader
	store          storage.Store
	events         EventPublisher
	log            logger.Logger
	defaultOption  optimus.Option
	requestTimeout time.Duration

	// Stdout receives images for StdoutOutput jobs.
	Stdout    io.Writer
	now       func() time.Time
	newID     func() string
	writeFile func(path string, data []byte) error
}

// NewOptimizer builds an optimizer runtime from config.
func NewOptimizer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Optimizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := optimus.New(cfg.APIKey,
		optimus.WithEndpoint(cfg.Endpoint),
		optimus.WithLogger(log),
	)

	var s3 sources.Source
	if cfg.MinIO.Endpoint != "" {
		src, err := sources.NewS3Source(sources.S3Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Region:    cfg.MinIO.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 source: %w", err)
		}
		s3 = src
	}
	reader := sources.DefaultRegistry(sources.DefaultHTTPClient(cfg.SourceTimeout), s3)

	store, err := storage.NewStore(cfg.HistoryType, cfg.HistoryPath, storage.Options{
		RunTTL:          cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init history storage: %w", err)
	}
	log.DebugObj("history storage initialized", "storage_config", map[string]any{
		"type":                     cfg.HistoryType,
		"path":                     cfg.HistoryPath,
		"run_ttl_seconds":          int(cfg.HistoryTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.HistoryCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	o := newOptimizer(client, reader, store, fanout, log)
	o.defaultOption = cfg.Option
	o.requestTimeout = cfg.RequestTimeout
	return o, nil
}

func newOptimizer(client ImageOptimizer, reader ImageReader, store storage.Store, events EventPublisher, log logger.Logger) *Optimizer {
	if log == nil {
		log = logger.NopLogger{}
	}
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	return &Optimizer{
		client:        client,
		reader:        reader,
		store:         store,
		events:        events,
		log:           log,
		defaultOption: optimus.OptionOptimize,
		Stdout:        os.Stdout,
		now:           time.Now,
		newID:         uuid.NewString,
		writeFile: func(path string, data []byte) error {
			if dir := filepath.Dir(path); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			return os.WriteFile(path, data, 0o644)
		},
	}
}

// buildFanout loads the publishers file. An empty path disables publishing.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run optimizes one image. The returned run is also recorded and published;
// history and publishing failures are logged, not returned.
func (o *Optimizer) Run(ctx context.Context, job Job) (domain.Run, error) {
	if o == nil || o.client == nil || o.reader == nil {
		return domain.Run{}, fmt.Errorf("optimizer is not initialized")
	}

	option := job.Option
	if option == "" {
		option = o.defaultOption
	}

	run := domain.Run{
		ID:        o.newID(),
		Source:    job.Source,
		Option:    string(option),
		Endpoint:  o.client.Endpoint(),
		StartedAt: o.now().UTC(),
	}

	out, err := o.execute(ctx, job, option, &run)
	run.FinishedAt = o.now().UTC()
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		if kind := optimus.KindOf(err); kind != 0 {
			run.ErrorKind = kind.String()
		}
	} else {
		run.Status = domain.RunStatusSucceeded
		run.OutputBytes = len(out)
	}

	o.finish(ctx, run)
	return run, err
}

func (o *Optimizer) execute(ctx context.Context, job Job, option optimus.Option, run *domain.Run) ([]byte, error) {
	image, err := o.reader.Read(ctx, job.Source)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	run.InputBytes = len(image)

	callCtx := ctx
	if o.requestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.requestTimeout)
		defer cancel()
	}

	out, err := o.client.Optimize(callCtx, image, option)
	if err != nil {
		return nil, err
	}

	dest := job.Output
	if dest == "" {
		dest = OutputPath(job.Source, option)
	}
	run.Output = dest

	if dest == StdoutOutput {
		if _, err := o.Stdout.Write(out); err != nil {
			return nil, fmt.Errorf("write stdout: %w", err)
		}
		return out, nil
	}
	if err := o.writeFile(dest, out); err != nil {
		return nil, fmt.Errorf("write output %s: %w", dest, err)
	}
	return out, nil
}

func (o *Optimizer) finish(ctx context.Context, run domain.Run) {
	fields := map[string]any{
		"run_id":       run.ID,
		"source":       run.Source,
		"option":       run.Option,
		"status":       run.Status,
		"input_bytes":  run.InputBytes,
		"output_bytes": run.OutputBytes,
		"elapsed_ms":   run.Duration().Milliseconds(),
	}
	if run.Status == domain.RunStatusFailed {
		fields["error_kind"] = run.ErrorKind
		fields["error"] = run.Error
		o.log.ErrorObj("optimization failed", "run", fields)
	} else {
		o.log.InfoObj("optimization completed", "run", fields)
	}

	if err := o.store.Record(run); err != nil {
		o.log.WarnObj("history record failed", "error", err.Error())
	}

	if o.events == nil || o.events.Size() == 0 {
		return
	}
	delivered, err := o.events.Publish(ctx, publishers.NewEvent(run))
	if err != nil {
		o.log.WarnObj("run event publish failed", "publish_error", map[string]any{
			"run_id":    run.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}

// History returns up to limit recent runs, newest first.
func (o *Optimizer) History(limit int) ([]domain.Run, error) {
	if o == nil || o.store == nil {
		return nil, fmt.Errorf("optimizer is not initialized")
	}
	return o.store.Recent(limit)
}

// Close releases the history store and publishers.
func (o *Optimizer) Close() error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.events != nil {
		if err := o.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
	}
	if o.store != nil {
		if err := o.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

// OutputPath derives the destination for source: "<name>.webp" for WebP
// conversions, "<name>.optimized<ext>" otherwise. Remote sources land in the
// working directory.
func OutputPath(source string, option optimus.Option) string {
	name := source
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
		if j := strings.IndexAny(name, "?#"); j >= 0 {
			name = name[:j]
		}
		name = filepath.Base(filepath.FromSlash(name))
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "image"
	}
	if option == optimus.OptionWebP {
		return base + ".webp"
	}
	return base + ".optimized" + ext
}
