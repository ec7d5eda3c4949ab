package chat

import (
	"context"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"medivault-backend/files"
	"medivault-backend/records"
)

// MaxDocumentChars bounds the document text sent as chat context.
const MaxDocumentChars = 20000

const documentSystemPrompt = `You are a medical tutor helping a patient understand one of their own reports.
Explain the report content simply, using only what the report says.
Focus on the "Root Cause" behind the findings and the "Next Steps" the patient should consider.
If the report does not contain the answer, say so instead of guessing.`

const (
	replyRecordNotFound = "I couldn't find that record. It may have been deleted."
	replyFileMissing    = "I couldn't find the original file for this record on the server, so I can't read it right now. Try uploading it again."
	replyUnreadable     = "I couldn't read the text of this document. If it is a scanned PDF, upload a photo of it instead and ask me again."
	replyDocumentFailed = "Sorry, I couldn't analyze this document right now. Please try again in a moment."
)

// Assistant answers questions about stored records and the owner's history.
type Assistant struct {
	AI        AIClient
	Records   RecordReader
	Extractor TextExtractor
	UploadDir string
}

func NewAssistant(ai AIClient, recs RecordReader, ex TextExtractor, uploadDir string) *Assistant {
	return &Assistant{AI: ai, Records: recs, Extractor: ex, UploadDir: uploadDir}
}

// FindRecord loads the record a document chat is about. When it cannot, the
// record is nil and the string is the reply to send instead.
func (a *Assistant) FindRecord(ctx context.Context, recordID string) (*records.Record, string) {
	rec, err := a.Records.Get(ctx, recordID)
	if err != nil {
		log.Printf("[CHAT][DOC][ERROR] record=%s err=%v", recordID, err)
		return nil, replyDocumentFailed
	}
	if rec == nil {
		return nil, replyRecordNotFound
	}
	return rec, ""
}

// AnswerRecord answers question from the record's file. It never returns an
// error; every failure becomes a reply string.
func (a *Assistant) AnswerRecord(ctx context.Context, rec *records.Record, question string) string {
	p, ok := a.resolvePath(rec)
	if !ok {
		log.Printf("[CHAT][DOC][MISSING] record=%s stored=%q", rec.ID, rec.StoredFileName)
		return replyFileMissing
	}
	text, err := a.Extractor.ExtractText(ctx, p, rec.FileType)
	if err != nil || strings.TrimSpace(text) == "" {
		log.Printf("[CHAT][DOC][UNREADABLE] record=%s err=%v", rec.ID, err)
		return replyUnreadable
	}
	user := "Report:\n" + files.Truncate(text, MaxDocumentChars) + "\n\nQuestion: " + question
	reply, err := a.AI.Complete(ctx, documentSystemPrompt, user)
	if err != nil || strings.TrimSpace(reply) == "" {
		log.Printf("[CHAT][DOC][AI][ERROR] record=%s err=%v", rec.ID, err)
		return replyDocumentFailed
	}
	return reply
}

// resolvePath tries the stored name, then the last segment of the public
// URL, then the original upload name. The first file that exists wins.
func (a *Assistant) resolvePath(rec *records.Record) (string, bool) {
	var candidates []string
	if rec.StoredFileName != "" {
		candidates = append(candidates, rec.StoredFileName)
	}
	if rec.FileURL != "" {
		if u, err := url.Parse(rec.FileURL); err == nil && u.Path != "" {
			candidates = append(candidates, path.Base(u.Path))
		}
	}
	if rec.FileName != "" {
		candidates = append(candidates, rec.FileName)
	}
	for _, name := range candidates {
		base := filepath.Base(name)
		if base == "." || base == "/" {
			continue
		}
		p := filepath.Join(a.UploadDir, base)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}
