package database

import (
	"context"
	"errors"
	"time"

	"chmura-plikow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicateNodeName = errors.New("a node with the same name already exists in this folder")
	ErrInvalidParent     = errors.New("parent does not exist, is deleted, or is not a folder owned by the caller")
	ErrCyclicMove        = errors.New("cannot move a folder into itself or its own subtree")
	ErrNodeNotFound      = errors.New("node not found or user is not the owner")
)

const nodeColumns = `id, owner_id, parent_id, name, node_type, size_bytes, mime_type, storage_key, is_starred, created_at, modified_at, deleted_at`

func scanNode(row pgx.Row) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.ID,
		&node.OwnerID,
		&node.ParentID,
		&node.Name,
		&node.NodeType,
		&node.SizeBytes,
		&node.MimeType,
		&node.StorageKey,
		&node.IsStarred,
		&node.CreatedAt,
		&node.ModifiedAt,
		&node.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func collectNodes(rows pgx.Rows) ([]models.Node, error) {
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if nodes == nil {
		return []models.Node{}, nil
	}

	return nodes, nil
}

type CreateNodeParams struct {
	ID         string
	OwnerID    int64
	ParentID   *string
	Name       string
	NodeType   string
	SizeBytes  *int64
	MimeType   *string
	StorageKey *string
}

// CreateNode wstawia nowy węzeł. Rodzic (jeśli podany) musi być istniejącym,
// nieusuniętym folderem tego samego właściciela.
func (q *Queries) CreateNode(ctx context.Context, arg CreateNodeParams) (*models.Node, error) {
	if arg.ParentID != nil {
		ok, err := q.parentIsValidFolder(ctx, *arg.ParentID, arg.OwnerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidParent
		}
	}

	query := `
		INSERT INTO nodes (id, owner_id, parent_id, name, node_type, size_bytes, mime_type, storage_key, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING ` + nodeColumns
	now := time.Now()

	row := q.db.QueryRow(ctx, query,
		arg.ID,
		arg.OwnerID,
		arg.ParentID,
		arg.Name,
		arg.NodeType,
		arg.SizeBytes,
		arg.MimeType,
		arg.StorageKey,
		now,
	)

	node, err := scanNode(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return nil, ErrDuplicateNodeName
			}
			if pgErr.Code == "23503" {
				return nil, ErrInvalidParent
			}
		}
		return nil, err
	}

	return node, nil
}

func (q *Queries) parentIsValidFolder(ctx context.Context, parentID string, ownerID int64) (bool, error) {
	var ok bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM nodes
			WHERE id = $1 AND owner_id = $2 AND node_type = 'folder' AND deleted_at IS NULL
		)`
	err := q.db.QueryRow(ctx, query, parentID, ownerID).Scan(&ok)
	return ok, err
}

func (q *Queries) NodeExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM nodes WHERE id = $1)"
	err := q.db.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (q *Queries) GetNodeByID(ctx context.Context, id string, ownerID int64) (*models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`
	node, err := scanNode(q.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return node, nil
}

// GetNodeAnyState zwraca węzeł niezależnie od tego, czy leży w koszu.
func (q *Queries) GetNodeAnyState(ctx context.Context, id string, ownerID int64) (*models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE id = $1 AND owner_id = $2
	`
	node, err := scanNode(q.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return node, nil
}

// ListChildren zwraca bezpośrednie, nieusunięte dzieci folderu. Kolejność jest
// kolejnością magazynu (foldery przed plikami, potem po nazwie), wołający nie
// powinien zakładać stabilnego porządku między uruchomieniami.
func (q *Queries) ListChildren(ctx context.Context, ownerID int64, parentID string) ([]models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE owner_id = $1 AND parent_id = $2 AND deleted_at IS NULL
		ORDER BY node_type DESC, name
	`
	rows, err := q.db.Query(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

func (q *Queries) GetNodesByParentID(ctx context.Context, ownerID int64, parentID *string, limit int, offset int) ([]models.Node, error) {
	var rows pgx.Rows
	var err error

	if parentID == nil {
		query := `
			SELECT ` + nodeColumns + `
			FROM nodes
			WHERE owner_id = $1 AND parent_id IS NULL AND deleted_at IS NULL
			ORDER BY node_type DESC, name
			LIMIT $2 OFFSET $3`
		rows, err = q.db.Query(ctx, query, ownerID, limit, offset)
	} else {
		query := `
			SELECT ` + nodeColumns + `
			FROM nodes
			WHERE owner_id = $1 AND parent_id = $2 AND deleted_at IS NULL
			ORDER BY node_type DESC, name
			LIMIT $3 OFFSET $4`
		rows, err = q.db.Query(ctx, query, ownerID, *parentID, limit, offset)
	}

	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

// ListRecentNodes zwraca pliki zmodyfikowane w ciągu ostatnich 30 dni.
func (q *Queries) ListRecentNodes(ctx context.Context, ownerID int64, limit int, offset int) ([]models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE owner_id = $1 AND deleted_at IS NULL AND modified_at >= $2
		ORDER BY modified_at DESC
		LIMIT $3 OFFSET $4
	`
	since := time.Now().AddDate(0, 0, -30)
	rows, err := q.db.Query(ctx, query, ownerID, since, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

func (q *Queries) ListStarredNodes(ctx context.Context, ownerID int64, limit int, offset int) ([]models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE owner_id = $1 AND is_starred AND deleted_at IS NULL
		ORDER BY node_type DESC, name
		LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectNodes(rows)
}

func (q *Queries) RenameNode(ctx context.Context, id string, ownerID int64, newName string) (bool, error) {
	query := `
		UPDATE nodes
		SET name = $1, modified_at = $2
		WHERE id = $3 AND owner_id = $4 AND deleted_at IS NULL
	`
	now := time.Now()
	res, err := q.db.Exec(ctx, query, newName, now, id, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDuplicateNodeName
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

// MoveNode przenosi węzeł do innego folderu. Odrzuca przeniesienie folderu do
// własnego poddrzewa, drzewo nigdy nie może stać się grafem z cyklem.
func (q *Queries) MoveNode(ctx context.Context, id string, ownerID int64, newParentID *string) (bool, error) {
	if newParentID != nil {
		ok, err := q.parentIsValidFolder(ctx, *newParentID, ownerID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, ErrInvalidParent
		}

		isDescendant, err := q.IsDescendantOf(ctx, id, *newParentID)
		if err != nil {
			return false, err
		}
		if isDescendant {
			return false, ErrCyclicMove
		}
	}

	query := `
		UPDATE nodes
		SET parent_id = $1, modified_at = $2
		WHERE id = $3 AND owner_id = $4 AND deleted_at IS NULL
	`
	now := time.Now()
	res, err := q.db.Exec(ctx, query, newParentID, now, id, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrInvalidParent
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDuplicateNodeName
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

// IsDescendantOf sprawdza, czy potentialDescendant leży w poddrzewie nodeId
// (łącznie z samym nodeId).
func (q *Queries) IsDescendantOf(ctx context.Context, nodeId string, potentialDescendant string) (bool, error) {
	if nodeId == potentialDescendant {
		return true, nil
	}

	query := `
		WITH RECURSIVE node_children AS (
			SELECT id FROM nodes WHERE id = $1

			UNION ALL

			SELECT n.id
			FROM nodes n
			JOIN node_children nc ON n.parent_id = nc.id
		)
		SELECT EXISTS (
			SELECT 1
			FROM node_children
			WHERE id = $2
		);
	`
	var isDescendant bool
	err := q.db.QueryRow(ctx, query, nodeId, potentialDescendant).Scan(&isDescendant)
	return isDescendant, err
}

// ToggleStar przełącza gwiazdkę i zwraca nowy stan.
func (q *Queries) ToggleStar(ctx context.Context, id string, ownerID int64) (bool, bool, error) {
	query := `
		UPDATE nodes
		SET is_starred = NOT is_starred, modified_at = $1
		WHERE id = $2 AND owner_id = $3 AND deleted_at IS NULL
		RETURNING is_starred
	`
	now := time.Now()

	var starred bool
	err := q.db.QueryRow(ctx, query, now, id, ownerID).Scan(&starred)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, nil
		}
		return false, false, err
	}

	return starred, true, nil
}
