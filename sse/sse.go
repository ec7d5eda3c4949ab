package sse

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Stream writes raw SSE lines in the form:
//
//	data: <token>\n\n
//
// and finishes with:
//
//	data: [DONE]\n\n
//
// Tokens containing newlines are split so every line keeps its "data: "
// prefix and the client can rejoin them.
func Stream(c *gin.Context, ch <-chan string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case msg, open := <-ch:
			if !open {
				_, _ = c.Writer.Write([]byte("data: [DONE]\n\n"))
				flusher.Flush()
				return
			}
			writeEvent(c, msg)
			flusher.Flush()
		}
	}
}

func writeEvent(c *gin.Context, msg string) {
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		token := line
		if i < len(lines)-1 {
			token += "\n"
		}
		_, _ = c.Writer.Write([]byte("data: " + token + "\n"))
	}
	_, _ = c.Writer.Write([]byte("\n"))
}
