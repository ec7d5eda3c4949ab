package records

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medivault-backend/analyzer"
	"medivault-backend/files"
	"medivault-backend/login"
)

const scannedPDFMessage = "This PDF looks like a scanned image with no readable text. Please upload a photo of the document (JPG or PNG) instead so it can be read with OCR."

type Analyzer interface {
	Analyze(ctx context.Context, path, mediaType string) (analyzer.Summary, error)
}

// Notifier is told about every stored upload. issuedBy is set when a doctor
// uploaded on the owner's behalf.
type Notifier interface {
	NotifyUpload(ctx context.Context, owner, fileName, issuedBy string) error
}

type Handler struct {
	Store          Store
	Files          *files.LocalStorage
	Analyzer       Analyzer
	Notifier       Notifier
	LegacyHost     string
	MaxUploadBytes int64
	AITimeout      time.Duration
}

func NewHandler(store Store, fs *files.LocalStorage, an Analyzer, n Notifier, legacyHost string) *Handler {
	return &Handler{
		Store:          store,
		Files:          fs,
		Analyzer:       an,
		Notifier:       n,
		LegacyHost:     legacyHost,
		MaxUploadBytes: 20 << 20,
		AITimeout:      90 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/upload", h.Upload)
	r.GET("/records", h.List)
	r.DELETE("/records/:id", h.Delete)
}

// Upload stores the file, analyzes it and persists the record. The
// notification is a separate, best-effort write.
func (h *Handler) Upload(c *gin.Context) {
	start := time.Now()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "File is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No file uploaded."})
		return
	}
	if fh.Size > h.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "File is too large"})
		return
	}

	userEmail := strings.TrimSpace(c.PostForm("userEmail"))
	targetEmail := strings.TrimSpace(c.PostForm("targetEmail"))
	doctorName := strings.TrimSpace(c.PostForm("doctorName"))
	owner := userEmail
	if targetEmail != "" {
		owner = targetEmail
	}
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "userEmail is required"})
		return
	}
	if !login.Authorize(c, owner) {
		return
	}

	src, err := fh.Open()
	if err != nil {
		log.Printf("[UPLOAD][ERROR] open form file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Upload failed"})
		return
	}
	stored, err := h.Files.Save(src, fh.Filename)
	src.Close()
	if err != nil {
		log.Printf("[UPLOAD][ERROR] save %s: %v", fh.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Upload failed"})
		return
	}
	mediaType := files.DetectMediaType(stored.Path, fh.Header.Get("Content-Type"))
	log.Printf("[UPLOAD][START] owner=%s file=%s type=%s size=%d", owner, fh.Filename, mediaType, fh.Size)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.AITimeout)
	summary, err := h.Analyzer.Analyze(ctx, stored.Path, mediaType)
	cancel()
	if err != nil {
		if rmErr := h.Files.Remove(stored.Name); rmErr != nil {
			log.Printf("[UPLOAD][CLEANUP][ERROR] %s: %v", stored.Name, rmErr)
		}
		if errors.Is(err, files.ErrScannedPDF) {
			log.Printf("[UPLOAD][SCANNED_PDF] owner=%s file=%s", owner, fh.Filename)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "message": scannedPDFMessage})
			return
		}
		log.Printf("[UPLOAD][ANALYZE][ERROR] owner=%s file=%s err=%v", owner, fh.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Upload failed"})
		return
	}
	if summary == nil {
		summary = analyzer.Summary{}
	}

	rec := &Record{
		ID:             uuid.NewString(),
		Owner:          owner,
		FileName:       fh.Filename,
		StoredFileName: stored.Name,
		FileURL:        stored.URL,
		FileType:       mediaType,
		UploadDate:     time.Now().UTC(),
		AISummary:      summary,
	}
	if targetEmail != "" && doctorName != "" {
		rec.IssuedBy = doctorName
	}
	if err := h.Store.Create(c.Request.Context(), rec); err != nil {
		log.Printf("[UPLOAD][DB][ERROR] owner=%s file=%s err=%v", owner, fh.Filename, err)
		_ = h.Files.Remove(stored.Name)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Upload failed"})
		return
	}
	if h.Notifier != nil {
		if err := h.Notifier.NotifyUpload(c.Request.Context(), owner, fh.Filename, rec.IssuedBy); err != nil {
			log.Printf("[UPLOAD][NOTIFY][ERROR] owner=%s record=%s err=%v", owner, rec.ID, err)
		}
	}
	log.Printf("[UPLOAD][OK] owner=%s record=%s keys=%d elapsed=%s", owner, rec.ID, len(summary), time.Since(start))
	out := ForRequest([]Record{*rec}, h.LegacyHost, c.Request)[0]
	c.JSON(http.StatusOK, gin.H{"success": true, "record": out})
}

// List returns records for ?email (all records when absent). With
// ?migrate=true it instead assigns every unowned record to ?email.
func (h *Handler) List(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if strings.EqualFold(c.Query("migrate"), "true") {
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "email is required for migration"})
			return
		}
		if !login.Authorize(c, email) {
			return
		}
		n, err := h.Store.ClaimUnowned(c.Request.Context(), email)
		if err != nil {
			log.Printf("[RECORDS][MIGRATE][ERROR] email=%s err=%v", email, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Migration failed"})
			return
		}
		log.Printf("[RECORDS][MIGRATE] email=%s claimed=%d", email, n)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("Migrated %d records to %s", n, email)})
		return
	}
	if !login.Authorize(c, email) {
		return
	}
	list, err := h.Store.List(c.Request.Context(), email)
	if err != nil {
		log.Printf("[RECORDS][LIST][ERROR] email=%s err=%v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error fetching records"})
		return
	}
	c.JSON(http.StatusOK, ForRequest(list, h.LegacyHost, c.Request))
}

// Delete removes the record row only; the stored file stays on disk.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.Store.Get(c.Request.Context(), id)
	if err != nil {
		log.Printf("[RECORDS][DELETE][ERROR] id=%s err=%v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Record not found"})
		return
	}
	if !login.Authorize(c, rec.Owner) {
		return
	}
	ok, err := h.Store.Delete(c.Request.Context(), id)
	if err != nil {
		log.Printf("[RECORDS][DELETE][ERROR] id=%s err=%v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Record not found"})
		return
	}
	log.Printf("[RECORDS][DELETE] id=%s owner=%s", id, rec.Owner)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Record deleted successfully"})
}
