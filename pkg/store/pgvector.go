package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// PGVectorStore keeps chunks in a Postgres table with a pgvector column and
// answers queries by cosine distance.
type PGVectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

var _ types.VectorStore = (*PGVectorStore)(nil)

func NewPGVector(ctx context.Context, config VectorStoreConfig) (*PGVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid table name %q", config.TableName)
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PGVectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PGVectorStore) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL DEFAULT '',
			title TEXT,
			content TEXT,
			chunk_index INTEGER,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING hnsw (embedding vector_cosine_ops)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (vs *PGVectorStore) Count(ctx context.Context) (int, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

// Add writes every row inside one transaction, so either all rows are
// committed or none are.
func (vs *PGVectorStore) Add(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadata []map[string]interface{}) error {
	if err := checkAligned(ids, vectors, texts, metadata); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, url, title, content, chunk_index, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.config.TableName)

	for start := 0; start < len(ids); start += vs.config.BatchSize {
		end := start + vs.config.BatchSize
		if end > len(ids) {
			end = len(ids)
		}

		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			meta, err := json.Marshal(metadata[i])
			if err != nil {
				return fmt.Errorf("failed to encode metadata for %s: %w", ids[i], err)
			}
			batch.Queue(stmt,
				ids[i],
				metaString(metadata[i], models.MetaURL),
				metaString(metadata[i], models.MetaTitle),
				texts[i],
				metaInt(metadata[i], models.MetaChunkID),
				pgvector.NewVector(vectors[i]),
				string(meta),
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert documents: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (vs *PGVectorStore) Query(ctx context.Context, queryEmbedding []float32, limit int) ([]models.StoreItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := fmt.Sprintf(`
		SELECT content, metadata, embedding <=> $1 AS distance
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(queryEmbedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var items []models.StoreItem
	for rows.Next() {
		var (
			item models.StoreItem
			meta []byte
		)
		if err := rows.Scan(&item.Text, &meta, &item.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &item.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return items, nil
}

func (vs *PGVectorStore) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}
