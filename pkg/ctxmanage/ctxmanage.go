package ctxmanage

import "github.com/gin-gonic/gin"

// TraceIdKey is the gin context key under which the per-request trace id is
// stored by the logging middleware.
const TraceIdKey = "trace_id"

func GetTraceIdOfRequest(c *gin.Context) string {
	traceId, ok := c.Value(TraceIdKey).(string)
	if !ok {
		return "unknown"
	}
	return traceId
}
