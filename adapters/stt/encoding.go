package stt

import (
	"mime"
	"strings"
)

// EncodingFromContentType guesses the recognizer encoding for an uploaded
// audio file. Unknown types map to LINEAR16.
func EncodingFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch mediaType {
	case "audio/flac", "audio/x-flac":
		return "FLAC"
	case "audio/ogg", "audio/opus":
		return "OGG_OPUS"
	case "audio/webm":
		return "WEBM_OPUS"
	case "audio/amr":
		return "AMR"
	case "audio/amr-wb":
		return "AMR_WB"
	case "audio/basic", "audio/mulaw":
		return "MULAW"
	default:
		return "LINEAR16"
	}
}
