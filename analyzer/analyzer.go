// Package analyzer turns an uploaded medical document into a structured
// summary by prompting the hosted model.
package analyzer

import (
	"context"
	"errors"
	"log"
	"strings"

	"medivault-backend/files"
)

// MaxInputChars bounds the document text sent to the model.
const MaxInputChars = 15000

const systemPrompt = "You are an advanced Medical AI. Extract structured JSON only. In the 'clinicalAnalysis' field, provide a professional summary of what this report implies for the patient's long-term health. Return ONLY valid JSON."

const userTemplate = `Analyze this medical text deeply:
%TEXT%

Format strictly as valid JSON:
{
  "hospitalVisits": [{ "hospital": "String", "date": "String" }],
  "medicines": [{ "name": "String", "dosage": "String", "purpose": "String" }],
  "diseases": [{ "name": "String", "status": "Active/Recovered/Chronic", "severity": "Low/Medium/High" }],
  "tests": [{ "name": "String", "result": "String" }],
  "clinicalAnalysis": "String (A 2-sentence summary of the patient's condition based on this file)"
}`

type TextExtractor interface {
	ExtractText(ctx context.Context, path, mediaType string) (string, error)
}

type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Analyzer struct {
	Extractor TextExtractor
	AI        Completer
}

func New(ex TextExtractor, ai Completer) *Analyzer {
	return &Analyzer{Extractor: ex, AI: ai}
}

// Analyze returns the parsed summary for the file at path.
//
//   - files.ErrScannedPDF is returned unchanged so uploads can reject it.
//   - Failed extraction, empty text, a failed model call or an unparseable
//     reply all yield (nil, nil); the caller substitutes an empty summary.
//   - A reply with no JSON object yields an empty, non-nil summary.
func (a *Analyzer) Analyze(ctx context.Context, path, mediaType string) (Summary, error) {
	text, err := a.Extractor.ExtractText(ctx, path, mediaType)
	if err != nil {
		if errors.Is(err, files.ErrScannedPDF) {
			return nil, err
		}
		log.Printf("[ANALYZER][EXTRACT][ERROR] path=%s err=%v", path, err)
		return nil, nil
	}
	if strings.TrimSpace(text) == "" {
		log.Printf("[ANALYZER][EXTRACT][EMPTY] path=%s type=%s", path, mediaType)
		return nil, nil
	}

	prompt := strings.Replace(userTemplate, "%TEXT%", files.Truncate(text, MaxInputChars), 1)
	log.Printf("[ANALYZER][START] path=%s chars=%d", path, len(text))
	reply, err := a.AI.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		log.Printf("[ANALYZER][AI][ERROR] path=%s err=%v", path, err)
		return nil, nil
	}
	summary, err := ParseSummary(reply)
	if err != nil {
		log.Printf("[ANALYZER][PARSE][ERROR] path=%s err=%v", path, err)
		return nil, nil
	}
	return summary, nil
}
