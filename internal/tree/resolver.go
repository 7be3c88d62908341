// Package tree spłaszcza poddrzewo folderu do listy plików ze ścieżkami
// względnymi. To jedyne miejsce w serwerze, które schodzi rekurencyjnie po
// drzewie, model węzłów zna tylko relację rodzic-dziecko.
package tree

import (
	"context"
	"errors"
	"fmt"

	"chmura-plikow/internal/models"
)

// MaxDepth to twardy limit zagnieżdżenia. Głębsze (lub cykliczne) drzewa
// kończą się ErrTreeTooDeep zamiast przepełnienia stosu.
const MaxDepth = 1000

var ErrTreeTooDeep = errors.New("folder tree exceeds maximum nesting depth")

// ChildLister to wycinek magazynu metadanych potrzebny do trawersu:
// nieusunięte, bezpośrednie dzieci jednego folderu, w porządku magazynu.
type ChildLister interface {
	ListChildren(ctx context.Context, ownerID int64, parentID string) ([]models.Node, error)
}

// Entry to jeden plik osiągalny z folderu startowego wraz ze ścieżką
// względną (nazwy folderów pośrednich połączone "/", bez folderu startowego).
type Entry struct {
	Node         models.Node
	RelativePath string
}

type frame struct {
	folderID string
	basePath string
	depth    int
}

// ResolveDescendants wykonuje iteracyjny trawers w głąb z jawnym stosem
// ramek (folder, ścieżka bazowa). Na każdym poziomie najpierw zwraca pliki
// w porządku magazynu, potem schodzi do podfolderów, także w porządku
// magazynu. Foldery same w sobie nie są zwracane; pusty wynik jest poprawny.
func ResolveDescendants(ctx context.Context, store ChildLister, ownerID int64, folderID string) ([]Entry, error) {
	var entries []Entry

	stack := []frame{{folderID: folderID, basePath: "", depth: 0}}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fr.depth > MaxDepth {
			return nil, fmt.Errorf("%w (limit %d)", ErrTreeTooDeep, MaxDepth)
		}

		children, err := store.ListChildren(ctx, ownerID, fr.folderID)
		if err != nil {
			return nil, fmt.Errorf("listing children of %s: %w", fr.folderID, err)
		}

		var subfolders []frame
		for _, child := range children {
			if child.IsFolder() {
				subfolders = append(subfolders, frame{
					folderID: child.ID,
					basePath: fr.basePath + child.Name + "/",
					depth:    fr.depth + 1,
				})
				continue
			}
			entries = append(entries, Entry{
				Node:         child,
				RelativePath: fr.basePath + child.Name,
			})
		}

		// Odkładamy podfoldery w odwrotnej kolejności, żeby zdjąć je ze
		// stosu w porządku magazynu.
		for i := len(subfolders) - 1; i >= 0; i-- {
			stack = append(stack, subfolders[i])
		}
	}

	return entries, nil
}
