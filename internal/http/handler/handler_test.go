package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/service"
	serviceMocks "docvault/internal/service/mocks"
	"docvault/internal/validation"
)

func decode(t *testing.T, resp *http.Response) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func strPtr(s string) *string { return &s }

// multipartBody builds an upload form. The file part carries contentType the
// way a browser would; CreateFormFile always declares application/octet-stream.
func multipartBody(t *testing.T, fields map[string]string, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": filename}))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		env := decode(t, resp)
		assert.False(t, env.Success)
		assert.Equal(t, "SERVICE_UNAVAILABLE", env.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents", ListDocuments(mockSvc))

	t.Run("success with pagination", func(t *testing.T) {
		params := validation.ListParams{Search: strPtr("bill"), Limit: strPtr("10"), Offset: strPtr("0")}
		mockSvc.On("List", mock.Anything, params).Return(&service.DocumentListResult{
			Items: []model.Document{{ID: 1, OriginalFilename: "bill.pdf"}},
			Total: 3,
			Limit: 10,
		}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?search=bill&limit=10&offset=0", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		env := decode(t, resp)
		assert.True(t, env.Success)
		require.NotNil(t, env.Total)
		assert.Equal(t, 3, *env.Total)
		require.NotNil(t, env.Limit)
		assert.Equal(t, 10, *env.Limit)
		require.NotNil(t, env.Offset)
		assert.Equal(t, 0, *env.Offset)
		assert.Len(t, env.Data, 1)
		mockSvc.AssertExpectations(t)
	})

	t.Run("absent params stay absent", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, validation.ListParams{}).
			Return(&service.DocumentListResult{Items: []model.Document{}}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))
		require.NoError(t, err)
		env := decode(t, resp)
		assert.Nil(t, env.Limit)
		assert.Nil(t, env.Offset)
		assert.Equal(t, []any{}, env.Data)
		mockSvc.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, validation.ListParams{Limit: strPtr("abc")}).
			Return(nil, &validation.Error{Details: []validation.FieldError{{Field: "limit", Message: "Limit must be between 1 and 100"}}}).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?limit=abc", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		env := decode(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", env.Code)
		require.Len(t, env.Details, 1)
		assert.Equal(t, "limit", env.Details[0].Field)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, validation.ListParams{Category: strPtr("invoices")}).
			Return(nil, &service.PersistenceError{Op: "list", Err: errors.New("connection reset")}).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?category=invoices", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		env := decode(t, resp)
		assert.Equal(t, "PERSISTENCE_FAILED", env.Code)
		assert.NotContains(t, env.Error, "connection reset")
	})
}

func TestRecentDocuments(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/recent", RecentDocuments(mockSvc))

	mockSvc.On("Recent", mock.Anything, validation.DefaultRecentLimit).Return([]model.Document{{ID: 2}}, nil).Once()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/recent", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/documents/recent?limit=500", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	mockSvc.AssertExpectations(t)
}

func TestUploadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Post("/documents/upload", UploadDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"category": "invoices", "description": "march"}, "bill.pdf", "application/pdf", []byte("%PDF-1.4"))

		expected := &model.Document{ID: 11, OriginalFilename: "bill.pdf", Category: model.CategoryInvoices}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.File != nil && in.File.Name == "bill.pdf" && in.File.Size == 8 &&
				in.File.ContentType == "application/pdf" &&
				in.Category == "invoices" && in.Description == "march" && in.DocumentNumber == ""
		})).Return(expected, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		env := decode(t, resp)
		assert.True(t, env.Success)
		assert.Equal(t, "Document uploaded successfully", env.Message)
		data := env.Data.(map[string]any)
		assert.Equal(t, float64(11), data["id"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file goes to validation", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"category": "invoices"}, "", "", nil)
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.File == nil
		})).Return(nil, &validation.Error{Details: []validation.FieldError{{Field: "file", Message: "No file uploaded"}}}).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		env := decode(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", env.Code)
		assert.Equal(t, "file", env.Details[0].Field)
		mockSvc.AssertExpectations(t)
	})

	t.Run("file operation error", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"category": "others"}, "x.png", "image/png", []byte("png"))
		mockSvc.On("Upload", mock.Anything, mock.Anything).
			Return(nil, &service.FileOperationError{Op: "place", Path: "uploads/others/x.png", Err: errors.New("EACCES")}).Once()

		req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		env := decode(t, resp)
		assert.Equal(t, "FILE_OPERATION_FAILED", env.Code)
		assert.Equal(t, "Failed to upload document", env.Error)
	})
}

func TestGetDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id", GetDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(5)).Return(&model.Document{ID: 5}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/5", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		env := decode(t, resp)
		assert.Equal(t, float64(5), env.Data.(map[string]any)["id"])
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(6)).Return(nil, service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/6", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		env := decode(t, resp)
		assert.Equal(t, "NOT_FOUND", env.Code)
		assert.Equal(t, "Document not found", env.Error)
	})

	for _, raw := range []string{"abc", "0", "-1", "1.5"} {
		t.Run("invalid id "+raw, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+raw, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "INVALID_ID", decode(t, resp).Code)
		})
	}
	mockSvc.AssertExpectations(t)
}

func TestDownloadDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Get("/documents/:id/download", DownloadDocument(mockSvc))

	t.Run("streams inline with original name", func(t *testing.T) {
		doc := &model.Document{ID: 3, OriginalFilename: "My Scan.png", FileType: model.FileTypePNG, FileSize: 4}
		file := &service.DocumentFile{Document: doc, Body: io.NopCloser(strings.NewReader("\x89PNG")), Size: 4}
		mockSvc.On("Open", mock.Anything, int64(3)).Return(file, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/3/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.Equal(t, `inline; filename="My Scan.png"`, resp.Header.Get("Content-Disposition"))
		assert.Equal(t, int64(4), resp.ContentLength)
		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "\x89PNG", string(b))
	})

	t.Run("content length follows the file on disk", func(t *testing.T) {
		doc := &model.Document{ID: 5, OriginalFilename: "a.pdf", FileType: model.FileTypePDF, FileSize: 2048}
		file := &service.DocumentFile{Document: doc, Body: io.NopCloser(strings.NewReader("%PDF-1.4")), Size: 8}
		mockSvc.On("Open", mock.Anything, int64(5)).Return(file, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/5/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int64(8), resp.ContentLength)
		b, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "%PDF-1.4", string(b))
	})

	t.Run("missing file", func(t *testing.T) {
		mockSvc.On("Open", mock.Anything, int64(4)).Return(nil, service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/4/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
	mockSvc.AssertExpectations(t)
}

func TestUpdateDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Put("/documents/:id", UpdateDocument(mockSvc))

	put := func(id, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPut, "/documents/"+id, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("partial body", func(t *testing.T) {
		in := service.UpdateInput{Category: strPtr("bank-statements")}
		mockSvc.On("Update", mock.Anything, int64(8), in).
			Return(&model.Document{ID: 8, Category: model.CategoryBankStatements}, nil).Once()

		resp := put("8", `{"category":"bank-statements"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		env := decode(t, resp)
		assert.Equal(t, "Document updated successfully", env.Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp := put("8", `{"category":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decode(t, resp).Code)
	})

	t.Run("move failure", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, int64(9), mock.Anything).
			Return(nil, &service.FileOperationError{Op: "move", Err: errors.New("gone")}).Once()

		resp := put("9", `{"category":"others"}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to update document", decode(t, resp).Error)
	})
	mockSvc.AssertExpectations(t)
}

func TestDeleteDocument(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	app.Delete("/documents/:id", DeleteDocument(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(1)).Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		env := decode(t, resp)
		assert.True(t, env.Success)
		assert.Equal(t, "Document deleted successfully", env.Message)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(2)).Return(service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/2", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("persistence error", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(3)).Return(&service.PersistenceError{Op: "delete", Err: errors.New("x")}).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/documents/3", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
	mockSvc.AssertExpectations(t)
}

func TestStatsAndAudit(t *testing.T) {
	mockSvc := new(serviceMocks.MockDocumentService)
	app := fiber.New()
	RegisterRoutes(app, nil, mockSvc)

	counts := []model.CategoryCount{{Category: model.CategoryResumes, Name: "Resumes", Count: 1}}
	mockSvc.On("CategoryStats", mock.Anything).Return(counts, nil).Once()
	mockSvc.On("Overview", mock.Anything).Return(&model.Overview{TotalDocuments: 1, TotalSizeBytes: 10, ByCategory: counts}, nil).Once()
	mockSvc.On("Verify", mock.Anything).Return(&model.AuditReport{OrphanedFiles: []string{"uploads/others/x.pdf"}}, nil).Once()

	for _, path := range []string{"/documents/stats/categories", "/documents/stats/overview", "/documents/audit"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.True(t, decode(t, resp).Success, path)
	}
	mockSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockDocumentService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decode(t, resp).Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decode(t, resp).Code)
	})

	t.Run("static paths win over :id", func(t *testing.T) {
		mockSvc.On("Recent", mock.Anything, validation.DefaultRecentLimit).Return([]model.Document{}, nil).Once()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/recent", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}
