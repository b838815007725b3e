package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cicap/personnel/config"
	"github.com/cicap/personnel/internal/logging"
	"github.com/cicap/personnel/internal/services"
	"github.com/cicap/personnel/types"
)

type testServer struct {
	srv     *Server
	handler http.Handler
	cfg     config.Config
}

func setupServer(t *testing.T) testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		CORSOrigins: []string{"*"},
		Data: config.DataConfig{
			RecordsFile:  filepath.Join(dir, "registros_personal.xlsx"),
			UsersFile:    filepath.Join(dir, "usuarios.xlsx"),
			DocumentsDir: filepath.Join(dir, "documentos"),
		},
		Session: config.SessionConfig{Secret: "test-secret", TTL: time.Hour},
	}
	srv, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return testServer{srv: srv, handler: srv.Router(), cfg: cfg}
}

func (s testServer) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s testServer) doJSON(t *testing.T, method, target, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.do(t, method, target, token, bytes.NewReader(body), "application/json")
}

func (s testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rr := s.doJSON(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, username, resp.Username)
	return resp.Token
}

func recordForm(t *testing.T, fields map[string]string, filename string, data []byte) (io.Reader, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("attachment", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func (s testServer) createRecord(t *testing.T, token string, fields map[string]string, filename string, data []byte) types.PersonnelRecord {
	t.Helper()
	body, ct := recordForm(t, fields, filename, data)
	rr := s.do(t, http.MethodPost, "/records", token, body, ct)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var record types.PersonnelRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &record))
	return record
}

func listRecords(t *testing.T, s testServer, token, query string) []types.PersonnelRecord {
	t.Helper()
	rr := s.do(t, http.MethodGet, "/records?q="+url.QueryEscape(query), token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		Items []types.PersonnelRecord `json:"items"`
		Total int                     `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, len(resp.Items), resp.Total)
	return resp.Items
}

func TestHealthz(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNew_CreatesDocumentsDir(t *testing.T) {
	s := setupServer(t)

	info, err := os.Stat(s.cfg.Data.DocumentsDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDepartments(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, http.MethodGet, "/departments", "", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Items []string `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, types.Departments, resp.Items)
}

func TestAuth_LoginErrors(t *testing.T) {
	s := setupServer(t)

	rr := s.doJSON(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "ghost", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "user not found")

	rr = s.doJSON(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "wrong password")

	rr = s.do(t, http.MethodPost, "/auth/login", "", strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuth_SessionLifecycle(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, http.MethodGet, "/records", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token := s.login(t, "admin", " 1234 ")

	rr = s.do(t, http.MethodGet, "/auth/me", token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"admin"`)

	rr = s.do(t, http.MethodPost, "/auth/logout", token, nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = s.do(t, http.MethodGet, "/auth/me", token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = s.do(t, http.MethodGet, "/records", token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_Register(t *testing.T) {
	s := setupServer(t)

	rr := s.doJSON(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "admin", "password": "x", "confirm_password": "x",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.doJSON(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "maria", "password": "a", "confirm_password": "b",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.doJSON(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "maria", "password": "clave", "confirm_password": "clave",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	s.login(t, "maria", "clave")
}

func TestRecords_CRUD(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, "admin", "1234")

	ana := s.createRecord(t, token, map[string]string{
		"name":       "Ana",
		"position":   "Analista",
		"department": types.DepartmentSales,
		"hire_date":  "2024-02-01",
	}, "cv.pdf", []byte("%PDF"))
	assert.Equal(t, 1, ana.ID)
	assert.Equal(t, "admin", ana.RegisteredBy)
	assert.Equal(t, "2024-02-01", ana.HireDate.String())
	assert.Equal(t, types.Today(), ana.RegisteredDate)
	assert.Equal(t, filepath.Join(s.cfg.Data.DocumentsDir, "1_cv.pdf"), ana.AttachmentPath)

	s.createRecord(t, token, map[string]string{"name": "Luis", "department": types.DepartmentHR}, "", nil)
	dup := s.createRecord(t, token, map[string]string{"name": "Ana"}, "", nil)
	assert.Equal(t, 3, dup.ID)
	assert.Equal(t, types.Today(), dup.HireDate)

	assert.Len(t, listRecords(t, s, token, ""), 3)
	sales := listRecords(t, s, token, "ventas")
	require.Len(t, sales, 1)
	assert.Equal(t, "Ana", sales[0].Name)

	rr := s.do(t, http.MethodGet, "/records/names", token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"items":["Ana","Luis","Ana"]}`, rr.Body.String())

	rr = s.doJSON(t, http.MethodPut, "/records?name=Ana", token, map[string]string{"name": "Ana Maria", "position": "Manager"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"affected":2}`, rr.Body.String())

	updated := listRecords(t, s, token, "Manager")
	require.Len(t, updated, 2)
	assert.Equal(t, "Ana Maria", updated[0].Name)
	assert.Equal(t, "Ana Maria", updated[1].Name)

	rr = s.do(t, http.MethodDelete, "/records?name="+url.QueryEscape("Ana Maria"), token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"affected":2}`, rr.Body.String())

	rr = s.do(t, http.MethodDelete, "/records?name="+url.QueryEscape("Ana Maria"), token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"affected":0}`, rr.Body.String())

	remaining := listRecords(t, s, token, "")
	require.Len(t, remaining, 1)
	assert.Equal(t, "Luis", remaining[0].Name)
}

func TestRecords_CreateValidation(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, "admin", "1234")

	tests := []struct {
		name     string
		fields   map[string]string
		filename string
	}{
		{"blank name", map[string]string{"name": "  "}, ""},
		{"unknown department", map[string]string{"name": "Ana", "department": "Marketing"}, ""},
		{"bad hire date", map[string]string{"name": "Ana", "hire_date": "01/02/2024"}, ""},
		{"bad attachment type", map[string]string{"name": "Ana"}, "virus.exe"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := recordForm(t, tc.fields, tc.filename, []byte("x"))
			rr := s.do(t, http.MethodPost, "/records", token, body, ct)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}

	assert.Empty(t, listRecords(t, s, token, ""))
}

func TestRecords_UpdateRequiresName(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, "admin", "1234")

	rr := s.doJSON(t, http.MethodPut, "/records", token, map[string]string{"name": "X"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodDelete, "/records", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRecords_GetAndAttachment(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, "admin", "1234")

	withDoc := s.createRecord(t, token, map[string]string{"name": "Ana"}, "foto.png", []byte("png-bytes"))
	withoutDoc := s.createRecord(t, token, map[string]string{"name": "Luis"}, "", nil)

	rr := s.do(t, http.MethodGet, "/records/1", token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"Ana"`)

	rr = s.do(t, http.MethodGet, "/records/1/attachment", token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rr.Body.String())
	assert.Equal(t, 1, withDoc.ID)

	rr = s.do(t, http.MethodGet, "/records/2/attachment", token, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 2, withoutDoc.ID)

	rr = s.do(t, http.MethodGet, "/records/99", token, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodGet, "/records/abc", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRecords_Stats(t *testing.T) {
	s := setupServer(t)
	admin := s.login(t, "admin", "1234")

	rr := s.doJSON(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "maria", "password": "x", "confirm_password": "x",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	maria := s.login(t, "maria", "x")

	s.createRecord(t, admin, map[string]string{"name": "Ana", "department": types.DepartmentSales}, "", nil)
	s.createRecord(t, maria, map[string]string{"name": "Luis", "department": types.DepartmentSales}, "", nil)
	s.createRecord(t, maria, map[string]string{"name": "Eva", "department": types.DepartmentHR}, "", nil)

	rr = s.do(t, http.MethodGet, "/records/stats", admin, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var stats services.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, []services.Count{{Label: "maria", Count: 2}, {Label: "admin", Count: 1}}, stats.ByUser)
	assert.Equal(t, []services.Count{
		{Label: types.DepartmentSales, Count: 2},
		{Label: types.DepartmentHR, Count: 1},
	}, stats.ByDepartment)
}

func TestNew_WriteTimeoutCoversRequestTimeout(t *testing.T) {
	s := setupServer(t)

	assert.Greater(t, s.srv.httpServer.WriteTimeout, requestTimeout)
}

func TestRecords_TextStoredAsTyped(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, "admin", "1234")

	created := s.createRecord(t, token, map[string]string{"name": " Ana ", "position": "Analista "}, "", nil)
	assert.Equal(t, " Ana ", created.Name)
	assert.Equal(t, "Analista ", created.Position)

	rr := s.do(t, http.MethodDelete, "/records?name=Ana", token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"affected":0}`, rr.Body.String())

	rr = s.do(t, http.MethodDelete, "/records?name="+url.QueryEscape(" Ana "), token, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"affected":1}`, rr.Body.String())
}

func TestRecords_OverlongNotesRejected(t *testing.T) {
	s := setupServer(t)
	token := s.login(t, "admin", "1234")

	body, ct := recordForm(t, map[string]string{"name": "Ana", "notes": strings.Repeat("a", 40000)}, "", nil)
	rr := s.do(t, http.MethodPost, "/records", token, body, ct)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Observaciones")

	assert.Empty(t, listRecords(t, s, token, ""))
}
