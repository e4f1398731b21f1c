// Package redisindex stores the corpus fingerprint index and source texts in
// Redis so several engine processes can share one corpus.
package redisindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/corpus"
	"github.com/darved2305/VeriTextAI/internal/model"
)

const (
	sourcesKey      = "sources"
	fingerprintsKey = "fingerprints"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key; defaults to "veritext".
	Prefix string
}

type Index struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func New(ctx context.Context, opts Options, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("redis corpus index connected", zap.String("addr", opts.Addr))
	return NewFromClient(client, opts.Prefix, logger), nil
}

func NewFromClient(client *redis.Client, prefix string, logger *zap.Logger) *Index {
	if prefix == "" {
		prefix = "veritext"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{client: client, prefix: prefix, logger: logger}
}

func (x *Index) Close() error {
	return x.client.Close()
}

func (x *Index) fpKey(hash uint64) string {
	return x.prefix + ":fp:" + strconv.FormatUint(hash, 16)
}

func (x *Index) srcKey(id string) string {
	return x.prefix + ":src:" + id
}

func (x *Index) Lookup(ctx context.Context, hash uint64) ([]string, error) {
	ids, err := x.client.SMembers(ctx, x.fpKey(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("lookup fingerprint: %w", err)
	}
	return ids, nil
}

func (x *Index) LookupBatch(ctx context.Context, hashes []uint64) (map[uint64][]string, error) {
	cmds := make([]*redis.StringSliceCmd, len(hashes))
	_, err := x.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, h := range hashes {
			cmds[i] = p.SMembers(ctx, x.fpKey(h))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lookup fingerprint batch: %w", err)
	}
	out := make(map[uint64][]string)
	for i, cmd := range cmds {
		if ids := cmd.Val(); len(ids) > 0 {
			out[hashes[i]] = ids
		}
	}
	return out, nil
}

func (x *Index) Source(ctx context.Context, id string) (*corpus.Source, error) {
	fields, err := x.client.HGetAll(ctx, x.srcKey(id)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return nil, fmt.Errorf("%w: %s", corpus.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	return &corpus.Source{
		ID:     id,
		URL:    fields["url"],
		Title:  fields["title"],
		Author: fields["author"],
		Type:   model.SourceType(fields["type"]),
		Text:   fields["text"],
	}, nil
}

// Add indexes src. Re-adding an ID overwrites its metadata; stale hashes of a
// previous version stay until the key space is rebuilt.
func (x *Index) Add(ctx context.Context, src corpus.Source) error {
	if src.ID == "" {
		return fmt.Errorf("source id is required")
	}
	hashes, err := corpus.Fingerprints(ctx, src)
	if err != nil {
		return err
	}
	_, err = x.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, x.srcKey(src.ID), map[string]any{
			"url":    src.URL,
			"title":  src.Title,
			"author": src.Author,
			"type":   string(src.Type),
			"text":   src.Text,
		})
		p.SAdd(ctx, x.prefix+":"+sourcesKey, src.ID)
		members := make([]any, 0, len(hashes))
		for _, h := range hashes {
			p.SAdd(ctx, x.fpKey(h), src.ID)
			members = append(members, strconv.FormatUint(h, 16))
		}
		if len(members) > 0 {
			p.PFAdd(ctx, x.prefix+":"+fingerprintsKey, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("index source %s: %w", src.ID, err)
	}
	x.logger.Debug("source indexed", zap.String("source_id", src.ID), zap.Int("fingerprints", len(hashes)))
	return nil
}

// Stats reports the source count and an approximate fingerprint count.
func (x *Index) Stats(ctx context.Context) (corpus.Stats, error) {
	sources, err := x.client.SCard(ctx, x.prefix+":"+sourcesKey).Result()
	if err != nil {
		return corpus.Stats{}, fmt.Errorf("count sources: %w", err)
	}
	fps, err := x.client.PFCount(ctx, x.prefix+":"+fingerprintsKey).Result()
	if err != nil {
		return corpus.Stats{}, fmt.Errorf("count fingerprints: %w", err)
	}
	return corpus.Stats{Sources: int(sources), Fingerprints: int(fps)}, nil
}
