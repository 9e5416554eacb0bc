package middleware

import (
	"expvar"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

var requestsByStatus = expvar.NewMap("http_requests_total")

// RequestID keeps an inbound X-Request-ID or assigns a new one, and counts
// the request by status class once it completes.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
		requestsByStatus.Add(strconv.Itoa(c.Writer.Status()/100)+"xx", 1)
	}
}

// LogFormatter writes one key=value line per request.
func LogFormatter(p gin.LogFormatterParams) string {
	rid, _ := p.Keys["request_id"].(string)
	user, _ := p.Keys["user_id"].(string)
	line := fmt.Sprintf("%s http method=%s path=%s status=%d latency=%s request_id=%s",
		p.TimeStamp.Format(time.RFC3339), p.Method, p.Path, p.StatusCode, p.Latency, rid)
	if user != "" {
		line += " user_id=" + user
	}
	if p.ErrorMessage != "" {
		line += fmt.Sprintf(" err=%q", p.ErrorMessage)
	}
	return line + "\n"
}
