package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag writes payload with a content hash ETag and answers a
// matching If-None-Match with 304. Responses depend on the caller's token, so
// caches are told to key on Authorization.
func RespondJSONWithETag(ctx *gin.Context, status int, payload any) {
	ctx.Header("Vary", "Authorization")
	ctx.Header("Cache-Control", "private, no-cache")

	etag, err := buildETag(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	ctx.Header("ETag", etag)

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, payload)
}

func buildETag(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)

	return `"` + hex.EncodeToString(sum[:]) + `"`, nil
}

func ifNoneMatchMatches(headerValue, currentETag string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || currentETag == "" {
		return false
	}
	if headerValue == "*" {
		return true
	}

	current := normalizeETag(currentETag)

	for _, part := range strings.Split(headerValue, ",") {
		if normalizeETag(part) == current {
			return true
		}
	}

	return false
}

func normalizeETag(raw string) string {
	// weak validators compare equal to strong ones for GET
	v := strings.TrimSpace(raw)
	return strings.TrimSpace(strings.TrimPrefix(v, "W/"))
}
