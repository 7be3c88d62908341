package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chmura-plikow/internal/database"
	"chmura-plikow/internal/models"
	"chmura-plikow/internal/storage"

	"github.com/go-chi/chi/v5"
)

type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

// @Summary      Create a folder
// @Description  Creates a new folder, optionally inside a parent folder. The parent must be an existing, non-deleted folder owned by the caller.
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        createFolderRequest  body      CreateFolderRequest  true  "Folder name and optional parent"
// @Success      201  {object}  models.Node
// @Failure      400  {string}  string "Bad Request - invalid name or parent"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      409  {string}  string "Conflict - duplicate name in the target folder"
// @Router       /nodes/folder [post]
func (s *Server) CreateFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Folder name cannot be empty", http.StatusBadRequest)
		return
	}

	if req.ParentID != nil && len(*req.ParentID) != 21 {
		http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
		return
	}

	nodeID, err := s.generateUniqueID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	params := database.CreateNodeParams{
		ID:       nodeID,
		OwnerID:  claims.UserID,
		ParentID: req.ParentID,
		Name:     strings.TrimSpace(req.Name),
		NodeType: models.NodeTypeFolder,
	}

	node, err := s.store.CreateNode(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrInvalidParent):
			http.Error(w, "Parent folder does not exist or is not a folder", http.StatusBadRequest)
		case errors.Is(err, database.ErrDuplicateNodeName):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Failed to create folder", http.StatusInternalServerError)
		}
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "node_created", node)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(node)
}

// @Summary      List nodes for a view
// @Description  Lists nodes for one of the views: home (filtered by parent), recent (modified in the last 30 days), starred, or trash.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        view       query  string  false  "View: home, recent, starred or trash"  default(home)
// @Param        parent_id  query  string  false  "Parent folder ID (home view only; omit for root)"
// @Success      200  {array}   models.Node
// @Failure      400  {string}  string "Bad Request - unknown view"
// @Failure      401  {string}  string "Unauthorized"
// @Router       /nodes [get]
func (s *Server) ListNodesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	view := r.URL.Query().Get("view")
	if view == "" {
		view = "home"
	}

	var nodes []models.Node
	var err error

	switch view {
	case "home":
		parentIDStr := r.URL.Query().Get("parent_id")
		var parentID *string
		if parentIDStr != "" {
			parentID = &parentIDStr
		}
		nodes, err = s.store.GetNodesByParentID(r.Context(), claims.UserID, parentID, limit, offset)
	case "recent":
		nodes, err = s.store.ListRecentNodes(r.Context(), claims.UserID, limit, offset)
	case "starred":
		nodes, err = s.store.ListStarredNodes(r.Context(), claims.UserID, limit, offset)
	case "trash":
		nodes, err = s.store.ListTrash(r.Context(), claims.UserID, limit, offset)
	default:
		http.Error(w, "Unknown view (expected home, recent, starred or trash)", http.StatusBadRequest)
		return
	}

	if err != nil {
		http.Error(w, "Failed to list nodes", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(nodes)
}

// @Summary      Upload a file
// @Description  Uploads a file (multipart form, field "file") into an optional parent folder. The blob goes to object storage, the metadata record to the database.
// @Tags         nodes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file       formData  file    true   "File content"
// @Param        parent_id  formData  string  false  "Parent folder ID"
// @Success      201  {object}  models.Node
// @Failure      400  {string}  string "Bad Request"
// @Failure      401  {string}  string "Unauthorized"
// @Router       /nodes/file [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<30)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing multipart form", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error retrieving the file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	parentIDStr := r.FormValue("parent_id")
	var parentID *string
	if parentIDStr != "" {
		if len(parentIDStr) != 21 {
			http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
			return
		}
		parentID = &parentIDStr
	}

	nodeID, err := s.generateUniqueID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Klucz bloba: właściciel / folder nadrzędny / id-nazwa. Id węzła w kluczu
	// gwarantuje unikalność; klucz nie zmienia się już nigdy po nadaniu.
	parentPart := "root"
	if parentID != nil {
		parentPart = *parentID
	}
	storageKey := fmt.Sprintf("%d/%s/%s-%s", claims.UserID, parentPart, nodeID, handler.Filename)

	mimeType := handler.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if err := s.storage.Put(r.Context(), storageKey, file, mimeType); err != nil {
		s.log.Error().Err(err).Str("key", storageKey).Msg("Zapis bloba do magazynu nie powiódł się")
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	sizeBytes := handler.Size

	params := database.CreateNodeParams{
		ID:         nodeID,
		OwnerID:    claims.UserID,
		ParentID:   parentID,
		Name:       handler.Filename,
		NodeType:   models.NodeTypeFile,
		SizeBytes:  &sizeBytes,
		MimeType:   &mimeType,
		StorageKey: &storageKey,
	}

	var node *models.Node
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		node, err = q.CreateNode(r.Context(), params)
		if err != nil {
			return err
		}
		return q.UpdateUserStorage(r.Context(), claims.UserID, sizeBytes)
	})

	if txErr != nil {
		// Rekord nie powstał, sprzątamy osierocony blob.
		if delErr := s.storage.Delete(r.Context(), storageKey); delErr != nil {
			s.log.Warn().Err(delErr).Str("key", storageKey).Msg("Nie udało się usunąć osieroconego bloba")
		}
		switch {
		case errors.Is(txErr, database.ErrInvalidParent):
			http.Error(w, "Parent folder does not exist or is not a folder", http.StatusBadRequest)
		case errors.Is(txErr, database.ErrDuplicateNodeName):
			http.Error(w, txErr.Error(), http.StatusConflict)
		default:
			http.Error(w, "Failed to create file record", http.StatusInternalServerError)
		}
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "node_created", node)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(node)
}

type DownloadURLResponse struct {
	DownloadURL string  `json:"download_url"`
	FileName    string  `json:"file_name"`
	SizeBytes   *int64  `json:"size_bytes"`
	MimeType    *string `json:"mime_type"`
}

// @Summary      Download a file
// @Description  Returns a time-limited presigned URL for the file's blob. If the storage backend cannot presign, the file content is streamed directly instead.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId  path  string  true  "File node ID"
// @Success      200  {object}  DownloadURLResponse
// @Failure      400  {string}  string "Bad Request - node is a folder"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Router       /nodes/{nodeId}/download [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	nodeID := chi.URLParam(r, "nodeId")
	if nodeID == "" {
		http.Error(w, "Node ID is required", http.StatusBadRequest)
		return
	}

	node, err := s.store.GetNodeByID(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to retrieve file metadata", http.StatusInternalServerError)
		return
	}
	if node == nil {
		http.Error(w, "File not found or you do not have permission to access it", http.StatusNotFound)
		return
	}
	if node.NodeType != models.NodeTypeFile || node.StorageKey == nil {
		http.Error(w, "Cannot download a folder", http.StatusBadRequest)
		return
	}

	url, err := s.storage.PresignedURL(r.Context(), *node.StorageKey, time.Hour, true)
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(DownloadURLResponse{
			DownloadURL: url,
			FileName:    node.Name,
			SizeBytes:   node.SizeBytes,
			MimeType:    node.MimeType,
		})
		return
	}
	if !errors.Is(err, storage.ErrPresignUnsupported) {
		s.log.Error().Err(err).Str("key", *node.StorageKey).Msg("Nie udało się wystawić presigned URL")
		http.Error(w, "Failed to generate download URL", http.StatusInternalServerError)
		return
	}

	// Backend bez presignowania, streamujemy plik bezpośrednio.
	fileStream, err := s.storage.GetReadStream(r.Context(), *node.StorageKey)
	if err != nil {
		http.Error(w, "File not found on storage", http.StatusInternalServerError)
		return
	}
	defer fileStream.Close()

	w.Header().Set("Content-Disposition", "attachment; filename=\""+node.Name+"\"")
	if node.MimeType != nil && *node.MimeType != "" {
		w.Header().Set("Content-Type", *node.MimeType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if node.SizeBytes != nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", *node.SizeBytes))
	}

	io.Copy(w, fileStream)
}

type UpdateNodeRequest struct {
	Name       *string `json:"name"`
	ParentID   *string `json:"parent_id"`
	ToggleStar bool    `json:"toggle_star"`
}

// @Summary      Update a node
// @Description  Renames a node, moves it to another folder (moving a folder into its own subtree is rejected) and/or toggles its star.
// @Tags         nodes
// @Accept       json
// @Security     BearerAuth
// @Param        nodeId             path  string             true  "Node ID"
// @Param        updateNodeRequest  body  UpdateNodeRequest  true  "Fields to update"
// @Success      200  {string}  string "OK"
// @Failure      400  {string}  string "Bad Request - invalid target or cyclic move"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Failure      409  {string}  string "Conflict - duplicate name in the target folder"
// @Router       /nodes/{nodeId} [patch]
func (s *Server) UpdateNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var updated bool

	if req.Name != nil {
		newName := strings.TrimSpace(*req.Name)
		if newName == "" {
			http.Error(w, "Name cannot be empty", http.StatusBadRequest)
			return
		}

		success, err := s.store.RenameNode(r.Context(), nodeID, claims.UserID, newName)
		if err != nil {
			if errors.Is(err, database.ErrDuplicateNodeName) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, "Failed to rename node", http.StatusInternalServerError)
			return
		}

		if !success {
			http.Error(w, "Node not found or you do not have permission to modify it", http.StatusNotFound)
			return
		}
		updated = true
	}

	if req.ParentID != nil {
		if len(*req.ParentID) != 21 {
			http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
			return
		}

		success, err := s.store.MoveNode(r.Context(), nodeID, claims.UserID, req.ParentID)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrDuplicateNodeName):
				http.Error(w, "A node with the same name already exists in the target folder", http.StatusConflict)
			case errors.Is(err, database.ErrCyclicMove):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, database.ErrInvalidParent):
				http.Error(w, "Target folder does not exist or is not a folder", http.StatusBadRequest)
			default:
				http.Error(w, "Failed to move node", http.StatusInternalServerError)
			}
			return
		}

		if !success {
			http.Error(w, "Node not found or you do not have permission to modify it", http.StatusNotFound)
			return
		}
		updated = true
	}

	if req.ToggleStar {
		starred, found, err := s.store.ToggleStar(r.Context(), nodeID, claims.UserID)
		if err != nil {
			http.Error(w, "Failed to toggle star", http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "Node not found or you do not have permission to modify it", http.StatusNotFound)
			return
		}
		s.publishEvent(r.Context(), claims.UserID, "node_starred", map[string]interface{}{"id": nodeID, "is_starred": starred})
		updated = true
	}

	if !updated {
		http.Error(w, "No update operation specified (provide 'name', 'parent_id' or 'toggle_star')", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// @Summary      Delete a node
// @Description  Moves a node (with its whole subtree) to trash. With ?permanent=true the node is removed for good: the blob is deleted from object storage first, the metadata record is removed regardless of the blob-delete outcome.
// @Tags         nodes
// @Security     BearerAuth
// @Param        nodeId     path   string  true   "Node ID"
// @Param        permanent  query  bool    false  "Permanently delete instead of trashing"
// @Success      204  {null}    nil "No Content"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Not Found"
// @Router       /nodes/{nodeId} [delete]
func (s *Server) DeleteNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	if nodeID == "" {
		http.Error(w, "Node ID is required", http.StatusBadRequest)
		return
	}

	node, err := s.store.GetNodeAnyState(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to delete node", http.StatusInternalServerError)
		return
	}
	if node == nil {
		http.Error(w, "Node not found or you do not have permission to delete it", http.StatusNotFound)
		return
	}

	permanent := r.URL.Query().Get("permanent") == "true"

	// Węzeł leżący już w koszu kasujemy trwale, jak w koszu systemowym.
	if permanent || node.IsDeleted() {
		s.permanentlyDelete(w, r, node, claims.UserID)
		return
	}

	success, err := s.store.MoveNodeToTrash(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to delete node", http.StatusInternalServerError)
		return
	}
	if !success {
		http.Error(w, "Node not found or you do not have permission to delete it", http.StatusNotFound)
		return
	}

	s.publishEvent(r.Context(), claims.UserID, "node_trashed", map[string]interface{}{"id": nodeID})

	w.WriteHeader(http.StatusNoContent)
}

// permanentlyDelete kasuje blob (jeśli jest), a potem rekord. Nieudane
// kasowanie bloba nie blokuje usunięcia rekordu, metadane są źródłem prawdy.
func (s *Server) permanentlyDelete(w http.ResponseWriter, r *http.Request, node *models.Node, userID int64) {
	// Żywy folder najpierw ląduje w koszu, żeby jego potomkowie stali się
	// samodzielnymi wpisami kosza zamiast osieroconych rekordów.
	if !node.IsDeleted() && node.IsFolder() {
		if _, err := s.store.MoveNodeToTrash(r.Context(), node.ID, userID); err != nil {
			http.Error(w, "Failed to delete node", http.StatusInternalServerError)
			return
		}
	}

	if node.NodeType == models.NodeTypeFile && node.StorageKey != nil {
		if err := s.storage.Delete(r.Context(), *node.StorageKey); err != nil {
			s.log.Warn().Err(err).Str("key", *node.StorageKey).Msg("Nie udało się usunąć bloba przy trwałym kasowaniu")
		}
	}

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		success, err := q.DeleteNodeRecord(r.Context(), node.ID, userID)
		if err != nil {
			return err
		}
		if !success {
			return database.ErrNodeNotFound
		}
		if node.NodeType == models.NodeTypeFile && node.SizeBytes != nil {
			return q.UpdateUserStorage(r.Context(), userID, -*node.SizeBytes)
		}
		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, database.ErrNodeNotFound) {
			http.Error(w, "Node not found or you do not have permission to delete it", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete node", http.StatusInternalServerError)
		return
	}

	s.publishEvent(r.Context(), userID, "node_purged", map[string]interface{}{"id": node.ID})

	w.WriteHeader(http.StatusNoContent)
}
