package redis

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

type Adapter struct {
	client         *redis.Client
	indexName      string
	indexPrefix    string
	dialectVersion int
}

type Option func(*Adapter)

const (
	defaultIndexName      = "chunk-idx"
	defaultIndexPrefix    = "chunk:"
	defaultDialectVersion = 2
)

func New(ctx context.Context, client *redis.Client, options ...Option) (*Adapter, error) {
	a := &Adapter{
		client:         client,
		indexName:      defaultIndexName,
		indexPrefix:    defaultIndexPrefix,
		dialectVersion: defaultDialectVersion,
	}

	for _, o := range options {
		o(a)
	}

	log.Println(
		"init redis adapter,",
		"index name:", a.indexName,
		"prefix:", a.indexPrefix,
		"dialect version:", a.dialectVersion,
	)

	return a, a.init(ctx)
}

func WithIndexName(indexName string) Option {
	return func(a *Adapter) {
		a.indexName = indexName
	}
}

func WithIndexPrefix(prefix string) Option {
	return func(a *Adapter) {
		a.indexPrefix = prefix
	}
}

func WithDialectVersion(version int) Option {
	return func(a *Adapter) {
		a.dialectVersion = version
	}
}

const adapterName = "redis"

func (a *Adapter) Name() string {
	return adapterName
}

func (a *Adapter) init(ctx context.Context) error {
	indexes, err := a.client.FT_List(ctx).Result()
	if err != nil {
		return err
	}
	for _, existingIndex := range indexes {
		if existingIndex == a.indexName {
			log.Println("redis index already exists:", a.indexName)
			return nil
		}
	}
	return a.createIndex(ctx)
}

func (a *Adapter) dropIndex(ctx context.Context) error {
	_, err := a.client.FTDropIndexWithArgs(ctx,
		a.indexName,
		&redis.FTDropIndexOptions{
			DeleteDocs: true,
		},
	).Result()
	if err != nil {
		return err
	}
	log.Println("dropped redis index:", a.indexName)
	return nil
}

func (a *Adapter) createIndex(ctx context.Context) error {
	_, err := a.client.FTCreate(ctx,
		a.indexName,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []any{a.indexPrefix},
		},
		&redis.FieldSchema{
			FieldName: "text",
			FieldType: redis.SearchFieldTypeText,
		},
		&redis.FieldSchema{
			FieldName: "chunk_id",
			FieldType: redis.SearchFieldTypeTag,
		},
		&redis.FieldSchema{
			FieldName: "topic",
			FieldType: redis.SearchFieldTypeTag,
		},
		&redis.FieldSchema{
			FieldName: "source",
			FieldType: redis.SearchFieldTypeTag,
		},
	).Result()
	if err != nil {
		return fmt.Errorf("error creating redis index: %v", err)
	}
	log.Println("created redis index:", a.indexName)
	return nil
}
