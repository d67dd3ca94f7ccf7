package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Input validation utilities

var ownerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// AllowedImageTypes are the upload types the diagnosis endpoint accepts.
var AllowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateOwnerID validates owner ID format
func ValidateOwnerID(owner string) error {
	if owner == "" {
		return fmt.Errorf("owner ID cannot be empty")
	}
	if !ownerIDPattern.MatchString(owner) {
		return fmt.Errorf("invalid owner ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateScanID validates scan ID format
func ValidateScanID(scanID string) error {
	if scanID == "" {
		return fmt.Errorf("scan ID cannot be empty")
	}
	if _, err := uuid.Parse(scanID); err != nil {
		return fmt.Errorf("invalid scan ID format")
	}
	return nil
}

// ValidateLimit validates the list limit. 0 means no limit.
func ValidateLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if limit > 100 {
		return 100, nil // max limit
	}
	return limit, nil
}

// DetectImage sniffs data and returns its content type when it is an allowed image.
// The client-declared type is ignored.
func DetectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("no file uploaded")
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if !AllowedImageTypes[ct] {
		return "", fmt.Errorf("unsupported file type %s (allowed: png, jpeg, gif, webp)", ct)
	}
	return ct, nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
