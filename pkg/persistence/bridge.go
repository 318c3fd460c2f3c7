// Package persistence bridges the in-memory kernel store to PostgreSQL: it
// flattens a store's three entity mappings and three id counters into
// ordered rows at shutdown, and rebuilds the store from those rows at
// startup. A bridge with no prior save is a no-op load, so a fresh kernel
// and a resumed one start through the same code path.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
	"github.com/ekaya-inc/ekaya-engine/pkg/retry"
)

func nsToTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// Bridge persists and restores a kernel.Store's contents against a single
// PostgreSQL database, identified by the fixed kernel_counters row id=1.
type Bridge struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	retry  *retry.Config
}

// New returns a Bridge over an already-connected pool.
func New(pool *pgxpool.Pool, logger *zap.Logger) *Bridge {
	return &Bridge{pool: pool, logger: logger.Named("persistence"), retry: retry.DefaultConfig()}
}

// PoolConfig holds the settings needed to open the pool a Bridge runs
// against.
type PoolConfig struct {
	DSN             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens a pgxpool against cfg.DSN, applying pool-size and lifetime
// bounds, and verifies it with a ping before returning.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse persistence DSN: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create persistence pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping persistence database: %w", err)
	}
	return pool, nil
}

// Save flattens the store's current contents and replaces the prior
// snapshot in a single transaction, so a crash mid-save never leaves a
// half-written snapshot behind.
func (b *Bridge) Save(ctx context.Context, store *kernel.Store) error {
	concepts, relationships, types, nextConceptID, nextRelationshipID, nextTypeID := store.Snapshot()

	return retry.DoIfRetryable(ctx, b.retry, func() error {
		tx, err := b.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin snapshot transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if _, err := tx.Exec(ctx, `TRUNCATE kernel_concepts, kernel_relationships, kernel_relationship_types`); err != nil {
			return fmt.Errorf("truncate snapshot tables: %w", err)
		}

		for i, c := range concepts {
			row, err := conceptToRow(c, int64(i))
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO kernel_concepts (id, seq, name, description, creator, created_at, modified_at, metadata)
				VALUES ($1, $2, $3, $4, $5, to_timestamp($6 / 1e9), to_timestamp($7 / 1e9), $8)`,
				row.ID, row.Seq, row.Name, row.Description, row.Creator, row.CreatedAtNS, row.ModifiedAtNS, row.Metadata,
			); err != nil {
				return fmt.Errorf("insert concept %d: %w", row.ID, err)
			}
		}

		for i, t := range types {
			row, err := relationshipTypeToRow(t, int64(i))
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO kernel_relationship_types (id, seq, name, description, metadata, logical, inheritance, validation, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				row.ID, row.Seq, row.Name, row.Description, row.Metadata, row.Logical, row.Inheritance, row.Validation, row.Status,
			); err != nil {
				return fmt.Errorf("insert relationship type %d: %w", row.ID, err)
			}
		}

		for i, r := range relationships {
			row, err := relationshipToRow(r, int64(i))
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO kernel_relationships (id, seq, source_id, target_id, type_id, probability, confidence, creator, metadata)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				row.ID, row.Seq, row.SourceID, row.TargetID, row.TypeID, row.Probability, row.Confidence, row.Creator, row.Metadata,
			); err != nil {
				return fmt.Errorf("insert relationship %d: %w", row.ID, err)
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO kernel_counters (id, next_concept_id, next_relationship_id, next_type_id)
			VALUES (1, $1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET
				next_concept_id = EXCLUDED.next_concept_id,
				next_relationship_id = EXCLUDED.next_relationship_id,
				next_type_id = EXCLUDED.next_type_id`,
			int64(nextConceptID), int64(nextRelationshipID), int64(nextTypeID),
		); err != nil {
			return fmt.Errorf("upsert counters: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit snapshot transaction: %w", err)
		}

		b.logger.Info("saved kernel snapshot",
			zap.Int("concepts", len(concepts)),
			zap.Int("relationship_types", len(types)),
			zap.Int("relationships", len(relationships)))
		return nil
	})
}

// Load rebuilds store from the most recently saved snapshot. If no
// snapshot row exists (first boot), Load leaves store untouched and
// returns nil.
func (b *Bridge) Load(ctx context.Context, store *kernel.Store) error {
	var nextConceptID, nextRelationshipID, nextTypeID int64
	err := retry.DoIfRetryable(ctx, b.retry, func() error {
		return b.pool.QueryRow(ctx, `SELECT next_concept_id, next_relationship_id, next_type_id FROM kernel_counters WHERE id = 1`).
			Scan(&nextConceptID, &nextRelationshipID, &nextTypeID)
	})
	if err == pgx.ErrNoRows {
		b.logger.Info("no prior kernel snapshot found, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load counters: %w", err)
	}

	concepts, err := b.loadConcepts(ctx)
	if err != nil {
		return err
	}
	types, err := b.loadRelationshipTypes(ctx)
	if err != nil {
		return err
	}
	relationships, err := b.loadRelationships(ctx)
	if err != nil {
		return err
	}

	store.Restore(concepts, relationships, types, kernel.ID(nextConceptID), kernel.ID(nextRelationshipID), kernel.ID(nextTypeID))
	b.logger.Info("restored kernel snapshot",
		zap.Int("concepts", len(concepts)),
		zap.Int("relationship_types", len(types)),
		zap.Int("relationships", len(relationships)))
	return nil
}

func (b *Bridge) loadConcepts(ctx context.Context) ([]*kernel.Concept, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id, seq, name, description, creator,
		       extract(epoch from created_at) * 1e9, extract(epoch from modified_at) * 1e9, metadata
		FROM kernel_concepts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query concepts: %w", err)
	}
	defer rows.Close()

	var out []*kernel.Concept
	for rows.Next() {
		var row conceptRow
		var createdNS, modifiedNS float64
		if err := rows.Scan(&row.ID, &row.Seq, &row.Name, &row.Description, &row.Creator, &createdNS, &modifiedNS, &row.Metadata); err != nil {
			return nil, fmt.Errorf("scan concept row: %w", err)
		}
		row.CreatedAtNS = int64(createdNS)
		row.ModifiedAtNS = int64(modifiedNS)
		c, err := rowToConcept(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (b *Bridge) loadRelationshipTypes(ctx context.Context) ([]*kernel.RelationshipType, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id, seq, name, description, metadata, logical, inheritance, validation, status
		FROM kernel_relationship_types ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query relationship types: %w", err)
	}
	defer rows.Close()

	var out []*kernel.RelationshipType
	for rows.Next() {
		var row relationshipTypeRow
		if err := rows.Scan(&row.ID, &row.Seq, &row.Name, &row.Description, &row.Metadata, &row.Logical, &row.Inheritance, &row.Validation, &row.Status); err != nil {
			return nil, fmt.Errorf("scan relationship type row: %w", err)
		}
		t, err := rowToRelationshipType(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (b *Bridge) loadRelationships(ctx context.Context) ([]*kernel.Relationship, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id, seq, source_id, target_id, type_id, probability, confidence, creator, metadata
		FROM kernel_relationships ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var out []*kernel.Relationship
	for rows.Next() {
		var row relationshipRow
		if err := rows.Scan(&row.ID, &row.Seq, &row.SourceID, &row.TargetID, &row.TypeID, &row.Probability, &row.Confidence, &row.Creator, &row.Metadata); err != nil {
			return nil, fmt.Errorf("scan relationship row: %w", err)
		}
		r, err := rowToRelationship(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
