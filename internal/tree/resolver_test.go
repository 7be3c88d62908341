package tree

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"chmura-plikow/internal/models"

	"github.com/stretchr/testify/require"
)

// fakeLister udaje magazyn metadanych: mapa folder -> dzieci w porządku
// magazynu (foldery przed plikami).
type fakeLister struct {
	children map[string][]models.Node
	err      error
}

func (f *fakeLister) ListChildren(_ context.Context, _ int64, parentID string) ([]models.Node, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.children[parentID], nil
}

func folder(id, name string) models.Node {
	return models.Node{ID: id, Name: name, NodeType: models.NodeTypeFolder}
}

func file(id, name string) models.Node {
	return models.Node{ID: id, Name: name, NodeType: models.NodeTypeFile}
}

func TestResolveDescendantsFlat(t *testing.T) {
	store := &fakeLister{children: map[string][]models.Node{
		"root": {file("f1", "a.txt"), file("f2", "b.txt")},
	}}

	entries, err := ResolveDescendants(context.Background(), store, 1, "root")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a.txt", entries[0].RelativePath)
	require.Equal(t, "b.txt", entries[1].RelativePath)
}

func TestResolveDescendantsNestedPaths(t *testing.T) {
	// F zawiera plik A.txt i podfolder G, w G leży B.txt
	store := &fakeLister{children: map[string][]models.Node{
		"F": {folder("G", "G"), file("A", "A.txt")},
		"G": {file("B", "B.txt")},
	}}

	entries, err := ResolveDescendants(context.Background(), store, 1, "F")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Pliki bieżącego poziomu przed zawartością podfolderów
	require.Equal(t, "A.txt", entries[0].RelativePath)
	require.Equal(t, "A", entries[0].Node.ID)
	require.Equal(t, "G/B.txt", entries[1].RelativePath)
	require.Equal(t, "B", entries[1].Node.ID)
}

func TestResolveDescendantsDeepPath(t *testing.T) {
	store := &fakeLister{children: map[string][]models.Node{
		"root": {folder("d1", "dokumenty")},
		"d1":   {folder("d2", "zdjecia")},
		"d2":   {file("f1", "wakacje.jpg")},
	}}

	entries, err := ResolveDescendants(context.Background(), store, 1, "root")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "dokumenty/zdjecia/wakacje.jpg", entries[0].RelativePath)
}

func TestResolveDescendantsSubfolderOrder(t *testing.T) {
	store := &fakeLister{children: map[string][]models.Node{
		"root": {folder("fa", "alfa"), folder("fb", "beta")},
		"fa":   {file("f1", "1.txt")},
		"fb":   {file("f2", "2.txt")},
	}}

	entries, err := ResolveDescendants(context.Background(), store, 1, "root")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Podfoldery odwiedzane w porządku magazynu
	require.Equal(t, "alfa/1.txt", entries[0].RelativePath)
	require.Equal(t, "beta/2.txt", entries[1].RelativePath)
}

func TestResolveDescendantsEmptyFolder(t *testing.T) {
	store := &fakeLister{children: map[string][]models.Node{}}

	entries, err := ResolveDescendants(context.Background(), store, 1, "empty")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestResolveDescendantsNoFoldersInResult(t *testing.T) {
	store := &fakeLister{children: map[string][]models.Node{
		"root": {folder("d1", "puste"), folder("d2", "pelne"), file("f1", "x.txt")},
		"d2":   {file("f2", "y.txt")},
	}}

	entries, err := ResolveDescendants(context.Background(), store, 1, "root")
	require.NoError(t, err)
	for _, e := range entries {
		require.Equal(t, models.NodeTypeFile, e.Node.NodeType)
	}
	require.Len(t, entries, 2)
}

func TestResolveDescendantsTooDeep(t *testing.T) {
	// Łańcuch folderów dłuższy niż limit
	children := map[string][]models.Node{}
	for i := 0; i <= MaxDepth+1; i++ {
		id := fmt.Sprintf("d%d", i)
		next := fmt.Sprintf("d%d", i+1)
		children[id] = []models.Node{folder(next, "poziom")}
	}
	store := &fakeLister{children: children}

	_, err := ResolveDescendants(context.Background(), store, 1, "d0")
	require.ErrorIs(t, err, ErrTreeTooDeep)
}

func TestResolveDescendantsListError(t *testing.T) {
	wantErr := errors.New("connection lost")
	store := &fakeLister{err: wantErr}

	_, err := ResolveDescendants(context.Background(), store, 1, "root")
	require.ErrorIs(t, err, wantErr)
}
