package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"medivault-backend/records"
)

// HistoryLimit caps how many records feed the memory block.
const HistoryLimit = 10

const (
	noHistory          = "No previous medical records found."
	replyHistoryFailed = "I'm having trouble accessing your history right now."
)

const contextSystemTemplate = `You are MediVault AI, a personalized health assistant.

CONTEXT OF THE USER:
%s

INSTRUCTIONS:
1. Use the User's Context to personalize your answer.
2. If they ask about their health trends, summarize the history provided above.
3. If the question is generic, answer generally but reference their condition if relevant.
4. Be empathetic and professional.`

// BuildMemory renders records, oldest first, as one line each with the
// disease and medicine names found in their summaries. Records without a
// summary get no line but keep their place in the numbering.
func BuildMemory(recs []records.Record) string {
	if len(recs) == 0 {
		return noHistory
	}
	var b strings.Builder
	b.WriteString("PATIENT HISTORY (Derived from uploaded files):\n")
	for i, r := range recs {
		if len(r.AISummary) == 0 {
			continue
		}
		diseases := strings.Join(r.AISummary.DiseaseNames(), ", ")
		if diseases == "" {
			diseases = "None"
		}
		meds := strings.Join(r.AISummary.MedicineNames(), ", ")
		if meds == "" {
			meds = "None"
		}
		fmt.Fprintf(&b, "[Record %d - %s]: Found %s. Meds: %s.\n", i+1, r.UploadDate.Format("2006-01-02"), diseases, meds)
	}
	return b.String()
}

// history returns up to HistoryLimit of the owner's records, oldest first.
func (a *Assistant) history(ctx context.Context, owner string) ([]records.Record, error) {
	if owner == "" {
		return nil, nil
	}
	recs, err := a.Records.Recent(ctx, owner, HistoryLimit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func (a *Assistant) contextPrompt(ctx context.Context, owner string) (string, error) {
	recs, err := a.history(ctx, owner)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(contextSystemTemplate, BuildMemory(recs)), nil
}

// AnswerContext answers a general message, personalised with the owner's
// history when owner is set. Failures become a fixed apology.
func (a *Assistant) AnswerContext(ctx context.Context, message, owner string) string {
	system, err := a.contextPrompt(ctx, owner)
	if err != nil {
		log.Printf("[CHAT][CONTEXT][HISTORY][ERROR] owner=%s err=%v", owner, err)
		return replyHistoryFailed
	}
	reply, err := a.AI.Complete(ctx, system, message)
	if err != nil || strings.TrimSpace(reply) == "" {
		log.Printf("[CHAT][CONTEXT][AI][ERROR] owner=%s err=%v", owner, err)
		return replyHistoryFailed
	}
	return reply
}

// StreamContext is AnswerContext token by token. On failure the channel
// carries the apology as a single message.
func (a *Assistant) StreamContext(ctx context.Context, message, owner string) <-chan string {
	system, err := a.contextPrompt(ctx, owner)
	if err == nil {
		var ch <-chan string
		if ch, err = a.AI.StreamMessage(ctx, system, message); err == nil {
			return ch
		}
	}
	log.Printf("[CHAT][STREAM][ERROR] owner=%s err=%v", owner, err)
	fallback := make(chan string, 1)
	fallback <- replyHistoryFailed
	close(fallback)
	return fallback
}
