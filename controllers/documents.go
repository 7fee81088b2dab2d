package controllers

import (
	"eduadmin_go/models"
	"eduadmin_go/services/documents"
	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
)

type DocumentController struct {
	store   documents.DocumentStore
	maxSize int64
	allowed []string
}

func NewDocumentController(store documents.DocumentStore, maxSize int64, allowed []string) *DocumentController {
	return &DocumentController{store: store, maxSize: maxSize, allowed: allowed}
}

// GetDocuments handles GET /api/students/:id/documents
func (dc *DocumentController) GetDocuments(c *fiber.Ctx) error {
	docs, err := dc.store.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, &utils.TransportError{Op: "list documents", Err: err})
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// UploadDocument handles multipart POST /api/students/:id/documents with a
// "file" part.
func (dc *DocumentController) UploadDocument(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, utils.NewValidationError("file required", utils.FieldError{Field: "file", Message: "is required"}))
	}
	if err := documents.ValidateUpload(fh.Filename, fh.Size, dc.maxSize, dc.allowed); err != nil {
		return respondError(c, err)
	}

	f, err := fh.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()

	doc, err := dc.store.Put(c.UserContext(), c.Params("id"), models.Document{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
	}, f)
	if err != nil {
		return respondError(c, &utils.TransportError{Op: "upload document", Err: err})
	}
	return respondSuccess(c, fiber.StatusCreated, "Document uploaded successfully", doc)
}

// DeleteDocument handles DELETE /api/students/:id/documents/:docId
func (dc *DocumentController) DeleteDocument(c *fiber.Ctx) error {
	if err := dc.store.Delete(c.UserContext(), c.Params("id"), c.Params("docId")); err != nil {
		if utils.IsNotFound(err) {
			return respondError(c, err)
		}
		return respondError(c, &utils.TransportError{Op: "delete document", Err: err})
	}
	return respondSuccess(c, fiber.StatusOK, "Document deleted successfully", nil)
}

// GetContent serves the bytes of a document kept in memory.
func (dc *DocumentController) GetContent(c *fiber.Ctx) error {
	studentID, docID := c.Params("id"), c.Params("docId")
	reader, ok := dc.store.(documents.ContentReader)
	if !ok {
		return respondError(c, &utils.NotFoundError{Resource: "document", ID: docID})
	}
	data, ok := reader.Content(studentID, docID)
	if !ok {
		return respondError(c, &utils.NotFoundError{Resource: "document", ID: docID})
	}

	docs, err := dc.store.List(c.UserContext(), studentID)
	if err == nil {
		for _, d := range docs {
			if d.ID == docID {
				c.Set(fiber.HeaderContentType, d.ContentType)
				c.Attachment(d.Name)
				break
			}
		}
	}
	return c.Send(data)
}
