package api

import (
	"errors"
	"net/http"

	"chmura-plikow/internal/archive"
	"chmura-plikow/internal/tree"

	"github.com/go-chi/chi/v5"
)

// @Summary      Download a folder as a ZIP archive
// @Description  Streams the whole subtree of a folder as a single ZIP file. Files keep their relative paths, an empty folder yields a placeholder entry, and a file that cannot be fetched is replaced inside the archive by a diagnostic text entry.
// @Tags         nodes
// @Produce      application/zip
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "Folder node ID"
// @Success      200  {file}    file
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Folder not found"
// @Failure      422  {string}  string "Folder tree too deep"
// @Router       /nodes/{nodeId}/archive [get]
func (s *Server) DownloadArchiveHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	folderID := chi.URLParam(r, "nodeId")
	if folderID == "" {
		http.Error(w, "Node ID is required", http.StatusBadRequest)
		return
	}

	folder, err := s.store.GetNodeByID(r.Context(), folderID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to retrieve folder metadata", http.StatusInternalServerError)
		return
	}
	if folder == nil || !folder.IsFolder() {
		http.Error(w, "Folder not found or you do not have permission to access it", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+folder.Name+".zip\"")

	result, err := s.archiver.StreamFolderArchive(r.Context(), folderID, claims.UserID, w)
	if err != nil {
		// Nagłówki mogły już wyjść do klienta, błąd w trakcie streamu
		// zostawia ucięte archiwum i trafia tylko do logów.
		switch {
		case errors.Is(err, archive.ErrFolderNotFound):
			http.Error(w, "Folder not found or you do not have permission to access it", http.StatusNotFound)
		case errors.Is(err, tree.ErrTreeTooDeep):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			s.log.Error().Err(err).Str("folder_id", folderID).Msg("Streamowanie archiwum przerwane")
		}
		return
	}

	s.log.Info().
		Str("folder_id", folderID).
		Int("files_added", result.FilesAdded).
		Int("files_failed", result.FilesFailed).
		Msg("Archiwum folderu wysłane")
}
