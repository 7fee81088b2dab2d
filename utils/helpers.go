package utils

import (
	"path/filepath"
	"strings"
)

// PaymentMethods is the fixed set accepted for a fee payment.
var PaymentMethods = []string{"cash", "card", "upi", "bank transfer", "other"}

// IsValidPaymentMethod checks if a payment method is in the accepted set
func IsValidPaymentMethod(method string) bool {
	m := strings.ToLower(strings.TrimSpace(method))
	for _, valid := range PaymentMethods {
		if m == valid {
			return true
		}
	}
	return false
}

// IsValidFileExtension checks if file extension is allowed
func IsValidFileExtension(filename string, allowedExtensions []string) bool {
	if filename == "" {
		return false
	}

	ext := FileExtension(filename)
	if ext == "" {
		return false
	}

	for _, allowedExt := range allowedExtensions {
		if ext == strings.ToLower(strings.TrimSpace(allowedExt)) {
			return true
		}
	}
	return false
}

// FileExtension returns the lowercase extension without the dot
func FileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 1 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// ContentTypeFor returns the MIME type for a file extension
func ContentTypeFor(extension string) string {
	switch strings.ToLower(extension) {
	case "webp":
		return "image/webp"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "pdf":
		return "application/pdf"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// SanitizeString removes dangerous characters from string
func SanitizeString(input string) string {
	// Remove null bytes and control characters
	input = strings.ReplaceAll(input, "\x00", "")

	return strings.TrimSpace(input)
}
