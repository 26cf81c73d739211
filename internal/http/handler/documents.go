package handler

import (
	"mime"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
	"docvault/internal/validation"
)

// queryPtr returns the query value, or nil when the key is absent.
func queryPtr(c *fiber.Ctx, key string) *string {
	if !c.Context().QueryArgs().Has(key) {
		return nil
	}
	v := c.Query(key)
	return &v
}

func intPtr(n int) *int { return &n }

func parseID(c *fiber.Ctx) (int64, error) {
	return validation.ParseID(c.Params("id"))
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "Document ID must be a positive integer")
}

// UploadDocument godoc
// @Summary      Upload a document
// @Description  Stores a PDF, JPG or PNG file under its category and records its metadata.
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file             formData  file    true   "Document file (max 10MB)"
// @Param        category         formData  string  true   "Category"
// @Param        description      formData  string  false  "Description"
// @Param        document_number  formData  string  false  "Document number"
// @Success      201  {object}  Envelope{data=model.Document}
// @Failure      400  {object}  Envelope
// @Failure      500  {object}  Envelope
// @Router       /documents/upload [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := service.UploadInput{
			Category:       c.FormValue("category"),
			Description:    c.FormValue("description"),
			DocumentNumber: c.FormValue("document_number"),
		}

		// A missing part is reported by validation together with the other fields.
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				middleware.RequestLogger(c).Error("multipart_open_failed", zap.Error(err))
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			in.File = &service.UploadFile{
				Reader:      f,
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
			}
		}

		doc, err := svc.Upload(c.UserContext(), in)
		if err != nil {
			return respondError(c, err, "upload document")
		}
		return writeOK(c, fiber.StatusCreated, Envelope{Data: doc, Message: "Document uploaded successfully"})
	}
}

// ListDocuments godoc
// @Summary      List documents
// @Description  Filters by category and a case-insensitive search over filename, description and document number.
// @Tags         documents
// @Produce      json
// @Param        category  query  string  false  "Category"
// @Param        search    query  string  false  "Search term (1-200 chars)"
// @Param        limit     query  int     false  "Page size (1-100)"
// @Param        offset    query  int     false  "Offset (>= 0)"
// @Success      200  {object}  Envelope{data=[]model.Document}
// @Failure      400  {object}  Envelope
// @Failure      500  {object}  Envelope
// @Router       /documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := validation.ListParams{
			Category: queryPtr(c, "category"),
			Search:   queryPtr(c, "search"),
			Limit:    queryPtr(c, "limit"),
			Offset:   queryPtr(c, "offset"),
		}
		res, err := svc.List(c.UserContext(), params)
		if err != nil {
			return respondError(c, err, "fetch documents")
		}

		env := Envelope{Data: res.Items, Total: intPtr(res.Total)}
		if params.Limit != nil {
			env.Limit = intPtr(res.Limit)
		}
		if params.Offset != nil {
			env.Offset = intPtr(res.Offset)
		}
		return writeOK(c, fiber.StatusOK, env)
	}
}

// RecentDocuments godoc
// @Summary      Recently uploaded documents
// @Tags         documents
// @Produce      json
// @Param        limit  query  int  false  "Number of documents (1-100, default 10)"
// @Success      200  {object}  Envelope{data=[]model.Document}
// @Failure      400  {object}  Envelope
// @Router       /documents/recent [get]
func RecentDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := validation.ParseRecentLimit(queryPtr(c, "limit"))
		if err != nil {
			return respondError(c, err, "fetch recent documents")
		}
		docs, err := svc.Recent(c.UserContext(), limit)
		if err != nil {
			return respondError(c, err, "fetch recent documents")
		}
		return writeOK(c, fiber.StatusOK, Envelope{Data: docs})
	}
}

// GetDocument godoc
// @Summary      Get a document
// @Tags         documents
// @Produce      json
// @Param        id  path  int  true  "Document ID"
// @Success      200  {object}  Envelope{data=model.Document}
// @Failure      400  {object}  Envelope
// @Failure      404  {object}  Envelope
// @Router       /documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return invalidID(c)
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err, "fetch document")
		}
		return writeOK(c, fiber.StatusOK, Envelope{Data: doc})
	}
}

// DownloadDocument godoc
// @Summary      Download a document file
// @Description  Streams the stored file inline with its original filename.
// @Tags         documents
// @Produce      application/pdf,image/jpeg,image/png
// @Param        id  path  int  true  "Document ID"
// @Success      200  {file}    file
// @Failure      404  {object}  Envelope
// @Router       /documents/{id}/download [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return invalidID(c)
		}
		file, err := svc.Open(c.UserContext(), id)
		if err != nil {
			return respondError(c, err, "download document")
		}

		c.Set(fiber.HeaderContentType, file.Document.FileType.MIMEType())
		disposition := mime.FormatMediaType("inline", map[string]string{"filename": file.Document.OriginalFilename})
		if disposition == "" {
			disposition = "inline"
		}
		c.Set(fiber.HeaderContentDisposition, disposition)
		// Content-Length follows the file on disk; the server closes Body.
		return c.SendStream(file.Body, int(file.Size))
	}
}

// UpdateDocument godoc
// @Summary      Update document metadata
// @Description  A category change moves the file to the new category directory.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id    path  int                  true  "Document ID"
// @Param        body  body  service.UpdateInput  true  "Fields to change"
// @Success      200  {object}  Envelope{data=model.Document}
// @Failure      400  {object}  Envelope
// @Failure      404  {object}  Envelope
// @Failure      500  {object}  Envelope
// @Router       /documents/{id} [put]
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return invalidID(c)
		}
		var in service.UpdateInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}
		doc, err := svc.Update(c.UserContext(), id, in)
		if err != nil {
			return respondError(c, err, "update document")
		}
		return writeOK(c, fiber.StatusOK, Envelope{Data: doc, Message: "Document updated successfully"})
	}
}

// DeleteDocument godoc
// @Summary      Delete a document
// @Tags         documents
// @Produce      json
// @Param        id  path  int  true  "Document ID"
// @Success      200  {object}  Envelope
// @Failure      400  {object}  Envelope
// @Failure      404  {object}  Envelope
// @Failure      500  {object}  Envelope
// @Router       /documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return invalidID(c)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return respondError(c, err, "delete document")
		}
		return writeOK(c, fiber.StatusOK, Envelope{Message: "Document deleted successfully"})
	}
}

// CategoryStats godoc
// @Summary      Document count per category
// @Tags         stats
// @Produce      json
// @Success      200  {object}  Envelope{data=[]model.CategoryCount}
// @Router       /documents/stats/categories [get]
func CategoryStats(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := svc.CategoryStats(c.UserContext())
		if err != nil {
			return respondError(c, err, "fetch category statistics")
		}
		return writeOK(c, fiber.StatusOK, Envelope{Data: stats})
	}
}

// OverviewStats godoc
// @Summary      Collection overview
// @Tags         stats
// @Produce      json
// @Success      200  {object}  Envelope{data=model.Overview}
// @Router       /documents/stats/overview [get]
func OverviewStats(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := svc.Overview(c.UserContext())
		if err != nil {
			return respondError(c, err, "fetch overview statistics")
		}
		return writeOK(c, fiber.StatusOK, Envelope{Data: o})
	}
}

// AuditDocuments godoc
// @Summary      Check records against stored files
// @Description  Reports records whose file is missing or has a different size, and files without a record.
// @Tags         maintenance
// @Produce      json
// @Success      200  {object}  Envelope{data=model.AuditReport}
// @Router       /documents/audit [get]
func AuditDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := svc.Verify(c.UserContext())
		if err != nil {
			return respondError(c, err, "verify documents")
		}
		return writeOK(c, fiber.StatusOK, Envelope{Data: report})
	}
}
