package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMoveNodeToTrashCascade(t *testing.T) {
	ownerID := createTestUser(t, "trash_cascade@test.pl")

	// Struktura: folder -> subfolder -> plik
	folder := createTestNode(t, CreateNodeParams{ID: "trash_folder_000001", OwnerID: ownerID, Name: "Folder", NodeType: "folder"})
	subfolder := createTestNode(t, CreateNodeParams{ID: "trash_subfolder_0001", OwnerID: ownerID, ParentID: &folder.ID, Name: "Subfolder", NodeType: "folder"})
	file := createTestNode(t, CreateNodeParams{ID: "trash_file_00000001", OwnerID: ownerID, ParentID: &subfolder.ID, Name: "plik.txt", NodeType: "file"})

	success, err := testStore.MoveNodeToTrash(context.Background(), folder.ID, ownerID)
	require.NoError(t, err)
	require.True(t, success)

	// Całe poddrzewo jest w koszu
	var count int
	query := `SELECT count(*) FROM nodes WHERE id IN ($1, $2, $3) AND deleted_at IS NOT NULL`
	err = testStore.pool.QueryRow(context.Background(), query, folder.ID, subfolder.ID, file.ID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	// Węzły w koszu znikają z normalnych odczytów
	found, err := testStore.GetNodeByID(context.Background(), file.ID, ownerID)
	require.NoError(t, err)
	require.Nil(t, found)

	// Każdy element pamięta oryginalnego rodzica
	var originalParent *string
	err = testStore.pool.QueryRow(context.Background(),
		`SELECT original_parent_id FROM nodes WHERE id = $1`, subfolder.ID).Scan(&originalParent)
	require.NoError(t, err)
	require.NotNil(t, originalParent)
	require.Equal(t, folder.ID, *originalParent)
}

func TestMoveNodeToTrashAlreadyTrashed(t *testing.T) {
	ownerID := createTestUser(t, "trash_twice@test.pl")

	node := createTestNode(t, CreateNodeParams{ID: "trash_twice_node_001", OwnerID: ownerID, Name: "plik.txt", NodeType: "file"})

	success, err := testStore.MoveNodeToTrash(context.Background(), node.ID, ownerID)
	require.NoError(t, err)
	require.True(t, success)

	// Ponowne przeniesienie niczego nie zmienia
	success, err = testStore.MoveNodeToTrash(context.Background(), node.ID, ownerID)
	require.NoError(t, err)
	require.False(t, success)
}

func TestRestoreNode(t *testing.T) {
	ownerID := createTestUser(t, "restore@test.pl")

	folder := createTestNode(t, CreateNodeParams{ID: "restore_folder_00001", OwnerID: ownerID, Name: "Folder", NodeType: "folder"})
	file := createTestNode(t, CreateNodeParams{ID: "restore_file_000001", OwnerID: ownerID, ParentID: &folder.ID, Name: "plik.txt", NodeType: "file"})

	_, err := testStore.MoveNodeToTrash(context.Background(), file.ID, ownerID)
	require.NoError(t, err)

	success, err := testStore.RestoreNode(context.Background(), file.ID, ownerID)
	require.NoError(t, err)
	require.True(t, success)

	restored, err := testStore.GetNodeByID(context.Background(), file.ID, ownerID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	require.NotNil(t, restored.ParentID)
	require.Equal(t, folder.ID, *restored.ParentID)
	require.Nil(t, restored.DeletedAt)
}

func TestRestoreNodeNameConflict(t *testing.T) {
	ownerID := createTestUser(t, "restore_conflict@test.pl")

	folder := createTestNode(t, CreateNodeParams{ID: "rc_folder_000000001", OwnerID: ownerID, Name: "Folder", NodeType: "folder"})
	original := createTestNode(t, CreateNodeParams{ID: "rc_file_ver1_000001", OwnerID: ownerID, ParentID: &folder.ID, Name: "raport.txt", NodeType: "file"})

	_, err := testStore.MoveNodeToTrash(context.Background(), original.ID, ownerID)
	require.NoError(t, err)

	// W międzyczasie powstał nowy plik o tej samej nazwie
	createTestNode(t, CreateNodeParams{ID: "rc_file_ver2_000001", OwnerID: ownerID, ParentID: &folder.ID, Name: "raport.txt", NodeType: "file"})

	_, err = testStore.RestoreNode(context.Background(), original.ID, ownerID)
	require.ErrorIs(t, err, ErrDuplicateNodeName)
}

func TestPurgeTrash(t *testing.T) {
	ownerID := createTestUser(t, "purge@test.pl")

	size := int64(1024)
	key := "purge_blob_key_1"
	folder := createTestNode(t, CreateNodeParams{ID: "purge_folder_000001", OwnerID: ownerID, Name: "Folder", NodeType: "folder"})
	createTestNode(t, CreateNodeParams{ID: "purge_file_00000001", OwnerID: ownerID, ParentID: &folder.ID, Name: "plik.bin", NodeType: "file", SizeBytes: &size, StorageKey: &key})

	// Żywy plik poza koszem nie może zostać wyczyszczony
	keep := createTestNode(t, CreateNodeParams{ID: "purge_survivor_0001", OwnerID: ownerID, Name: "zostaje.txt", NodeType: "file"})

	_, err := testStore.MoveNodeToTrash(context.Background(), folder.ID, ownerID)
	require.NoError(t, err)

	result, err := testStore.PurgeTrash(context.Background(), ownerID)
	require.NoError(t, err)
	require.Equal(t, int64(2), result.RemovedCount)
	require.Equal(t, size, result.SizeFreedBytes)
	require.Equal(t, []string{key}, result.StorageKeys)

	// Rekordy zniknęły z bazy
	var count int
	err = testStore.pool.QueryRow(context.Background(),
		`SELECT count(*) FROM nodes WHERE owner_id = $1`, ownerID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	survivor, err := testStore.GetNodeByID(context.Background(), keep.ID, ownerID)
	require.NoError(t, err)
	require.NotNil(t, survivor)
}

func TestDeleteNodeRecord(t *testing.T) {
	ownerID := createTestUser(t, "hard_delete@test.pl")

	node := createTestNode(t, CreateNodeParams{ID: "hard_delete_node_001", OwnerID: ownerID, Name: "plik.txt", NodeType: "file"})

	ok, err := testStore.DeleteNodeRecord(context.Background(), node.ID, ownerID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = testStore.DeleteNodeRecord(context.Background(), node.ID, ownerID)
	require.NoError(t, err)
	require.False(t, ok)
}
