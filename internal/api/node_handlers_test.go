package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chmura-plikow/internal/database"
	"chmura-plikow/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// Funkcja pomocnicza do tworzenia węzłów w testach API
func createTestNodeAPI(t *testing.T, name, nodeType string, parentID *string, ownerID int64) *models.Node {
	id, err := testServer.generateUniqueID(context.Background())
	require.NoError(t, err)

	var sizeBytes *int64
	var storageKey *string
	if nodeType == "file" {
		var s int64 = 1234
		sizeBytes = &s
		key := fmt.Sprintf("test/%s", id)
		storageKey = &key
	}

	params := database.CreateNodeParams{
		ID:         id,
		OwnerID:    ownerID,
		ParentID:   parentID,
		Name:       name,
		NodeType:   nodeType,
		SizeBytes:  sizeBytes,
		StorageKey: storageKey,
	}
	node, err := testServer.store.CreateNode(context.Background(), params)
	require.NoError(t, err)
	return node
}

// Pomocnik: żądanie z claimami w kontekście, opcjonalnie z parametrem ścieżki chi
func authedRequest(method, target string, body io.Reader, pathParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), userContextKey, testUserClaims)

	if len(pathParams) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range pathParams {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	return req.WithContext(ctx)
}

func TestAPI_CreateFolder_Success(t *testing.T) {
	// Arrange
	payload := CreateFolderRequest{Name: "Nowy_Folder_Sukces"} // Unikalna nazwa dla tego testu
	body, _ := json.Marshal(payload)
	req := authedRequest("POST", "/api/v1/nodes/folder", bytes.NewReader(body), nil)
	rr := httptest.NewRecorder()

	// Act
	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, req)

	// Assert
	require.Equal(t, http.StatusCreated, rr.Code)
	var createdNode models.Node
	err := json.Unmarshal(rr.Body.Bytes(), &createdNode)
	require.NoError(t, err)
	require.Equal(t, "Nowy_Folder_Sukces", createdNode.Name)
}

func TestAPI_CreateFolder_EmptyName(t *testing.T) {
	payload := CreateFolderRequest{Name: "  "}
	body, _ := json.Marshal(payload)
	req := authedRequest("POST", "/api/v1/nodes/folder", bytes.NewReader(body), nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_CreateFolder_NameConflict(t *testing.T) {
	folderName := "Folder_Konfliktowy"
	createTestNodeAPI(t, folderName, "folder", nil, testUserClaims.UserID)

	payload := CreateFolderRequest{Name: folderName}
	body, _ := json.Marshal(payload)
	req := authedRequest("POST", "/api/v1/nodes/folder", bytes.NewReader(body), nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestAPI_UploadFile_Success(t *testing.T) {
	// Arrange: multipart z jednym plikiem
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "przeslany.txt")
	require.NoError(t, err)
	_, err = io.WriteString(part, "zawartosc pliku")
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := authedRequest("POST", "/api/v1/nodes/file", &body, nil)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()

	// Act
	http.HandlerFunc(testServer.UploadFileHandler).ServeHTTP(rr, req)

	// Assert
	require.Equal(t, http.StatusCreated, rr.Code)
	var node models.Node
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &node))
	require.Equal(t, "przeslany.txt", node.Name)
	require.Equal(t, models.NodeTypeFile, node.NodeType)
	require.NotNil(t, node.SizeBytes)
	require.Equal(t, int64(len("zawartosc pliku")), *node.SizeBytes)

	// Licznik zajętości wzrósł
	user, err := testServer.store.GetUserByID(context.Background(), testUserClaims.UserID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, user.StorageUsedBytes, *node.SizeBytes)
}

func TestAPI_DownloadFile_LocalStream(t *testing.T) {
	// Arrange: upload przez handler, żeby blob istniał w magazynie
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "do_pobrania.txt")
	io.WriteString(part, "dane do pobrania")
	writer.Close()

	req := authedRequest("POST", "/api/v1/nodes/file", &body, nil)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.UploadFileHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var node models.Node
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &node))

	// Act: local storage nie presignuje, więc handler streamuje bezpośrednio
	req = authedRequest("GET", "/api/v1/nodes/"+node.ID+"/download", nil, map[string]string{"nodeId": node.ID})
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.DownloadFileHandler).ServeHTTP(rr, req)

	// Assert
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "dane do pobrania", rr.Body.String())
	require.Contains(t, rr.Header().Get("Content-Disposition"), "do_pobrania.txt")
}

func TestAPI_DownloadFile_Folder(t *testing.T) {
	folder := createTestNodeAPI(t, "Nie_Do_Pobrania", "folder", nil, testUserClaims.UserID)

	req := authedRequest("GET", "/api/v1/nodes/"+folder.ID+"/download", nil, map[string]string{"nodeId": folder.ID})
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.DownloadFileHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_ListNodes_Views(t *testing.T) {
	folder := createTestNodeAPI(t, "Widoki_Folder", "folder", nil, testUserClaims.UserID)
	child := createTestNodeAPI(t, "dziecko.txt", "file", &folder.ID, testUserClaims.UserID)

	// Widok home z parent_id
	req := authedRequest("GET", "/api/v1/nodes?view=home&parent_id="+folder.ID, nil, nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.ListNodesHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var nodes []models.Node
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &nodes))
	require.Len(t, nodes, 1)
	require.Equal(t, child.ID, nodes[0].ID)

	// Nieznany widok
	req = authedRequest("GET", "/api/v1/nodes?view=wszystko", nil, nil)
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.ListNodesHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_UpdateNode_RenameAndStar(t *testing.T) {
	node := createTestNodeAPI(t, "stara_nazwa.txt", "file", nil, testUserClaims.UserID)

	newName := "nowa_nazwa.txt"
	payload := UpdateNodeRequest{Name: &newName, ToggleStar: true}
	body, _ := json.Marshal(payload)

	req := authedRequest("PATCH", "/api/v1/nodes/"+node.ID, bytes.NewReader(body), map[string]string{"nodeId": node.ID})
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.UpdateNodeHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	updated, err := testServer.store.GetNodeByID(context.Background(), node.ID, testUserClaims.UserID)
	require.NoError(t, err)
	require.Equal(t, newName, updated.Name)
	require.True(t, updated.IsStarred)
}

func TestAPI_UpdateNode_CyclicMove(t *testing.T) {
	parent := createTestNodeAPI(t, "Cykl_Rodzic", "folder", nil, testUserClaims.UserID)
	child := createTestNodeAPI(t, "Cykl_Dziecko", "folder", &parent.ID, testUserClaims.UserID)

	payload := UpdateNodeRequest{ParentID: &child.ID}
	body, _ := json.Marshal(payload)

	req := authedRequest("PATCH", "/api/v1/nodes/"+parent.ID, bytes.NewReader(body), map[string]string{"nodeId": parent.ID})
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.UpdateNodeHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_UpdateNode_NoOperation(t *testing.T) {
	node := createTestNodeAPI(t, "bez_zmian.txt", "file", nil, testUserClaims.UserID)

	req := authedRequest("PATCH", "/api/v1/nodes/"+node.ID, strings.NewReader("{}"), map[string]string{"nodeId": node.ID})
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.UpdateNodeHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_DeleteNode_SoftThenPermanent(t *testing.T) {
	node := createTestNodeAPI(t, "do_kosza.txt", "file", nil, testUserClaims.UserID)

	// Miękkie usunięcie
	req := authedRequest("DELETE", "/api/v1/nodes/"+node.ID, nil, map[string]string{"nodeId": node.ID})
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.DeleteNodeHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	trashed, err := testServer.store.GetNodeAnyState(context.Background(), node.ID, testUserClaims.UserID)
	require.NoError(t, err)
	require.NotNil(t, trashed)
	require.True(t, trashed.IsDeleted())

	// Usunięcie węzła z kosza jest trwałe
	req = authedRequest("DELETE", "/api/v1/nodes/"+node.ID, nil, map[string]string{"nodeId": node.ID})
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.DeleteNodeHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	gone, err := testServer.store.GetNodeAnyState(context.Background(), node.ID, testUserClaims.UserID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestAPI_DeleteNode_NotFound(t *testing.T) {
	req := authedRequest("DELETE", "/api/v1/nodes/nie_ma_takiego_id_01", nil, map[string]string{"nodeId": "nie_ma_takiego_id_01"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.DeleteNodeHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
