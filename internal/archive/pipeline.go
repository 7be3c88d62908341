// Package archive pakuje poddrzewo folderu do strumieniowanego ZIP-a.
// Archiwum powstaje w locie, w pamięci jest naraz co najwyżej jeden plik,
// a awaria pojedynczego pliku nigdy nie przerywa całości.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"chmura-plikow/internal/models"
	"chmura-plikow/internal/storage"
	"chmura-plikow/internal/tree"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxFileBytes to sufit rozmiaru pojedynczego pliku w archiwum.
	// Przekroczenie jest błędem tego pliku, nie całego potoku.
	DefaultMaxFileBytes = 100 << 20 // 100 MiB

	// DefaultPerFileTimeout ogranicza pobranie jednego pliku z magazynu.
	DefaultPerFileTimeout = 60 * time.Second

	placeholderName    = ".empty"
	placeholderContent = "This folder is empty"
)

var (
	ErrFolderNotFound = errors.New("folder not found, deleted, or not owned by the caller")

	errFileTooLarge = errors.New("file exceeds the per-file size limit")
)

// Stały znacznik czasu wpisów syntetycznych (placeholder, wpisy diagnostyczne),
// żeby dwa przebiegi nad niezmienionym drzewem dawały identyczne bajty.
var syntheticEntryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// MetadataStore to wycinek magazynu metadanych potrzebny potokowi:
// rozwiązanie folderu startowego i listowanie dzieci dla trawersu.
type MetadataStore interface {
	tree.ChildLister
	GetNodeByID(ctx context.Context, id string, ownerID int64) (*models.Node, error)
}

// BlobReader to jedyna zdolność object storage, której potok używa.
type BlobReader interface {
	GetReadStream(ctx context.Context, key string) (io.ReadCloser, error)
}

type Pipeline struct {
	store          MetadataStore
	blobs          BlobReader
	log            zerolog.Logger
	maxFileBytes   int64
	perFileTimeout time.Duration
}

func NewPipeline(store MetadataStore, blobs BlobReader, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:          store,
		blobs:          blobs,
		log:            log,
		maxFileBytes:   DefaultMaxFileBytes,
		perFileTimeout: DefaultPerFileTimeout,
	}
}

// Result podsumowuje jeden przebieg potoku.
type Result struct {
	FilesAdded  int
	FilesFailed int
}

// StreamFolderArchive waliduje folder, trawersuje jego poddrzewo i streamuje
// ZIP do sink. Błędy walidacji (ErrFolderNotFound, tree.ErrTreeTooDeep)
// wracają zanim cokolwiek trafi do sink, później jedynym błędem fatalnym
// jest odmowa zapisu po stronie sink, a archiwum jest wtedy ucięte.
func (p *Pipeline) StreamFolderArchive(ctx context.Context, folderID string, ownerID int64, sink io.Writer) (*Result, error) {
	folder, err := p.store.GetNodeByID(ctx, folderID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("resolving folder %s: %w", folderID, err)
	}
	if folder == nil || !folder.IsFolder() {
		return nil, ErrFolderNotFound
	}

	entries, err := tree.ResolveDescendants(ctx, p.store, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	zw := zip.NewWriter(sink)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	result := &Result{}

	if len(entries) == 0 {
		if err := p.writeTextEntry(zw, placeholderName, placeholderContent); err != nil {
			return result, fmt.Errorf("writing placeholder entry: %w", err)
		}
	}

	for _, entry := range entries {
		if err := p.addFileEntry(ctx, zw, entry); err != nil {
			if ctx.Err() != nil {
				// Wołający zniknął, nie ma już komu dopisywać diagnostyki.
				return result, ctx.Err()
			}

			result.FilesFailed++
			archiveEntriesTotal.WithLabelValues("error").Inc()
			p.log.Warn().Err(err).Str("path", entry.RelativePath).Msg("Nie udało się dodać pliku do archiwum")

			diagnostic := fmt.Sprintf("Error downloading file: %s\nOriginal file: %s\n", err.Error(), entry.Node.Name)
			if werr := p.writeTextEntry(zw, "ERROR_"+entry.RelativePath+".txt", diagnostic); werr != nil {
				return result, fmt.Errorf("writing diagnostic entry: %w", werr)
			}
			continue
		}

		result.FilesAdded++
		archiveEntriesTotal.WithLabelValues("ok").Inc()
	}

	if err := zw.Close(); err != nil {
		return result, fmt.Errorf("finalizing archive: %w", err)
	}

	return result, nil
}

func (p *Pipeline) addFileEntry(ctx context.Context, zw *zip.Writer, entry tree.Entry) error {
	node := entry.Node
	if node.StorageKey == nil {
		return errors.New("file has no storage key")
	}
	if node.SizeBytes != nil && *node.SizeBytes > p.maxFileBytes {
		return fmt.Errorf("%w (%d bytes, limit %d)", errFileTooLarge, *node.SizeBytes, p.maxFileBytes)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.perFileTimeout)
	defer cancel()

	blob, err := p.blobs.GetReadStream(fetchCtx, *node.StorageKey)
	if err != nil {
		return fmt.Errorf("fetching %q: %w", *node.StorageKey, err)
	}
	defer blob.Close()

	modified := node.CreatedAt.UTC()
	if node.CreatedAt.IsZero() {
		modified = syntheticEntryTime
	}

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entry.RelativePath,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("creating archive entry: %w", err)
	}

	n, err := io.Copy(w, io.LimitReader(blob, p.maxFileBytes+1))
	if err != nil {
		return fmt.Errorf("streaming %q: %w", *node.StorageKey, err)
	}
	if n > p.maxFileBytes {
		return fmt.Errorf("%w (limit %d)", errFileTooLarge, p.maxFileBytes)
	}

	archiveBytesTotal.Add(float64(n))
	return nil
}

func (p *Pipeline) writeTextEntry(zw *zip.Writer, name, content string) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: syntheticEntryTime,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

// Kompilacyjne sprawdzenie, że pełny BlobStore spełnia wycinek potoku.
var _ BlobReader = (storage.BlobStore)(nil)
