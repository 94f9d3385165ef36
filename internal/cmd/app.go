package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/3leaps/docshed/internal/config"
	"github.com/3leaps/docshed/pkg/artifact"
	"github.com/3leaps/docshed/pkg/generate"
	"github.com/3leaps/docshed/pkg/jobqueue"
	"github.com/3leaps/docshed/pkg/preload"
	"github.com/3leaps/docshed/pkg/registry"
	"github.com/3leaps/docshed/pkg/resolve"
)

// app holds the assembled service components shared by the serve, generate,
// and jobs commands.
type app struct {
	layout    *artifact.Layout
	resolver  *resolve.Resolver
	queue     *jobqueue.Queue
	extractor *preload.Extractor
	mirror    artifact.Mirror
}

// buildApp assembles components from configuration. The generation runner
// writes into the artifact tree and replicates finished trees to the mirror
// when one is configured.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if err := os.MkdirAll(cfg.Docs.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create docs root: %w", err)
	}

	layout, err := artifact.NewLayout(cfg.Docs.Root)
	if err != nil {
		return nil, err
	}

	regClient, err := registry.New(registry.Config{
		BaseURL:           cfg.Registry.URL,
		RequestsPerSecond: cfg.Registry.RequestsPerSecond,
		Timeout:           cfg.Registry.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create registry client: %w", err)
	}

	var mirror artifact.Mirror
	if cfg.Mirror.Bucket != "" {
		mirror, err = artifact.NewS3Mirror(ctx, artifact.MirrorConfig{
			Bucket:          cfg.Mirror.Bucket,
			Prefix:          cfg.Mirror.Prefix,
			Region:          cfg.Mirror.Region,
			Endpoint:        cfg.Mirror.Endpoint,
			Profile:         cfg.Mirror.Profile,
			AccessKeyID:     cfg.Mirror.AccessKeyID,
			SecretAccessKey: cfg.Mirror.SecretAccessKey,
			ForcePathStyle:  cfg.Mirror.ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("create artifact mirror: %w", err)
		}
	}

	resolverOpts := []resolve.Option{resolve.WithLogger(logger)}
	if mirror != nil {
		resolverOpts = append(resolverOpts, resolve.WithMirror(mirror))
	}
	resolver, err := resolve.New(regClient, layout, resolverOpts...)
	if err != nil {
		return nil, err
	}

	gen, err := generate.NewExec(generate.ExecConfig{
		Command: cfg.Generator.Command,
		Args:    cfg.Generator.Args,
	})
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	runner := func(jobCtx context.Context, record *jobqueue.Record, manifest map[string]any) error {
		outDir := layout.Dir(record.Name, record.Version)
		if err := gen.Generate(jobCtx, record.Name, record.Version, manifest, outDir); err != nil {
			return err
		}
		if mirror != nil {
			key := artifact.Key(record.Name, record.Version)
			if err := mirror.Push(jobCtx, key, outDir); err != nil {
				// Mirror replication is best effort; the local artifact is
				// already complete and servable.
				logger.Warn("mirror push failed",
					zap.String("artifact", key),
					zap.Error(err))
			}
		}
		return nil
	}

	queue, err := jobqueue.New(jobqueue.Options{
		Store:     jobqueue.NewStore(cfg.Queue.Dir),
		Runner:    runner,
		Workers:   cfg.Queue.Workers,
		Buffer:    cfg.Queue.Buffer,
		Retention: cfg.Queue.Retention,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create job queue: %w", err)
	}

	extractor, err := preload.NewExtractor(preload.Config{
		DocsRoot:  cfg.Docs.Root,
		CacheSize: cfg.Preload.CacheSize,
		Exclude:   cfg.Preload.Exclude,
	})
	if err != nil {
		_ = queue.Close()
		return nil, fmt.Errorf("create preload extractor: %w", err)
	}

	return &app{
		layout:    layout,
		resolver:  resolver,
		queue:     queue,
		extractor: extractor,
		mirror:    mirror,
	}, nil
}

// Close releases component resources in dependency order.
func (a *app) Close() {
	if a.queue != nil {
		_ = a.queue.Close()
	}
	if a.mirror != nil {
		_ = a.mirror.Close()
	}
}
