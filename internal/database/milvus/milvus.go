// Package milvus wraps the Milvus SDK client for the optional remote vector
// index backend.
package milvus

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"articleqa/internal/config"
)

// Collection schema for passage storage. One collection holds the passages
// of all indexed documents; queries filter by document identifier.
const (
	FieldID            = "id"
	FieldDocumentID    = "document_id"
	FieldSequenceIndex = "sequence_index"
	FieldPage          = "page"
	FieldText          = "text"
	FieldEmbedding     = "embedding"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient holds the Milvus client instance and its configuration.
type MilvusClient struct {
	Client client.Client
	Config *config.MilvusConfig
}

// GetClient creates and returns the singleton Milvus client.
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("failed to connect to Milvus: %w", err)
			return
		}
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// EnsureCollection creates the passage collection, its vector index and loads
// it, when it does not exist yet. dim is the embedding dimension.
func (c *MilvusClient) EnsureCollection(ctx context.Context, dim int) error {
	collName := c.Config.Collection

	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(collName).
			WithDescription("passages of indexed documents and their embedding vectors").
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldDocumentID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(512)).
			WithField(entity.NewField().WithName(FieldSequenceIndex).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldPage).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
		if err != nil {
			return fmt.Errorf("failed to build vector index: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, collName, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on field '%s': %w", FieldEmbedding, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

// HealthCheck verifies the Milvus connection.
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// Close safely shuts down the Milvus connection.
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}
