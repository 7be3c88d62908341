package database

import (
	"context"
	"errors"
	"time"

	"chmura-plikow/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

// MoveNodeToTrash przenosi węzeł i całe jego poddrzewo do kosza. Każdy węzeł
// zapamiętuje original_parent_id, żeby dało się go później przywrócić.
func (q *Queries) MoveNodeToTrash(ctx context.Context, id string, ownerID int64) (bool, error) {
	query := `
		WITH RECURSIVE nodes_to_delete AS (
			SELECT n.id
			FROM nodes n
			WHERE n.id = $1 AND n.owner_id = $2 AND n.deleted_at IS NULL

			UNION ALL

			SELECT n.id
			FROM nodes n
			INNER JOIN nodes_to_delete ntd ON n.parent_id = ntd.id
		)
		UPDATE nodes
		SET
			deleted_at = $3,
			original_parent_id = parent_id,
			parent_id = NULL
		WHERE id IN (SELECT id FROM nodes_to_delete)
	`

	now := time.Now()
	res, err := q.db.Exec(ctx, query, id, ownerID, now)
	if err != nil {
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

// TODO: Ta funkcja nie obsługuje rekurencyjnego przywracania! Przywraca tylko jeden node.
func (q *Queries) RestoreNode(ctx context.Context, id string, ownerID int64) (bool, error) {
	query := `
		UPDATE nodes
		SET
			deleted_at = NULL,
			parent_id = original_parent_id,
			original_parent_id = NULL
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NOT NULL
	`
	res, err := q.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDuplicateNodeName
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

func (q *Queries) ListTrash(ctx context.Context, ownerID int64, limit int, offset int) ([]models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE owner_id = $1 AND deleted_at IS NOT NULL
		ORDER BY deleted_at DESC LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

type PurgeResult struct {
	StorageKeys    []string
	RemovedCount   int64
	SizeFreedBytes int64
}

// PurgeTrash usuwa z bazy wszystkie węzły danego użytkownika leżące w koszu
// i zwraca klucze blobów do skasowania w object storage. Kasowanie blobów
// robi wołający. Rekord w bazie jest źródłem prawdy i znika niezależnie od
// wyniku kasowania po stronie magazynu.
func (q *Queries) PurgeTrash(ctx context.Context, ownerID int64) (*PurgeResult, error) {
	query := `
		DELETE FROM nodes
		WHERE owner_id = $1 AND deleted_at IS NOT NULL
		RETURNING node_type, storage_key, size_bytes
	`

	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &PurgeResult{}
	for rows.Next() {
		var nodeType string
		var storageKey *string
		var sizeBytes *int64
		if err := rows.Scan(&nodeType, &storageKey, &sizeBytes); err != nil {
			return nil, err
		}
		result.RemovedCount++
		if nodeType == models.NodeTypeFile && storageKey != nil {
			result.StorageKeys = append(result.StorageKeys, *storageKey)
			if sizeBytes != nil {
				result.SizeFreedBytes += *sizeBytes
			}
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteNodeRecord trwale usuwa pojedynczy rekord. Nie kaskaduje na potomków,
// po kaskadowym MoveNodeToTrash każdy potomek jest już osobnym wpisem w koszu.
func (q *Queries) DeleteNodeRecord(ctx context.Context, id string, ownerID int64) (bool, error) {
	query := `DELETE FROM nodes WHERE id = $1 AND owner_id = $2`
	res, err := q.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
