package sniffer

import (
	"bytes"
	"errors"
	"mime"
	"net/textproto"
	"strings"
)

// Fundus cameras export raster captures; only these formats are accepted at
// intake.
type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeTIFF MediaType = "tiff"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	MIME string
}

var (
	magicJPEG   = []byte{0xFF, 0xD8, 0xFF}
	magicPNG    = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	magicTIFFLE = []byte{'I', 'I', 0x2A, 0x00}
	magicTIFFBE = []byte{'M', 'M', 0x00, 0x2A}
)

// DetectHead classifies a file by its leading bytes.
func DetectHead(head []byte) (Result, error) {
	switch {
	case bytes.HasPrefix(head, magicJPEG):
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	case bytes.HasPrefix(head, magicPNG):
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	case bytes.HasPrefix(head, magicTIFFLE), bytes.HasPrefix(head, magicTIFFBE):
		return Result{Type: TypeTIFF, MIME: "image/tiff"}, nil
	}
	return Result{}, ErrUnknownType
}

// MimeTypeFromHeader extracts the declared content type from a multipart
// part header, normalized, or empty if absent or unparseable.
func MimeTypeFromHeader(header textproto.MIMEHeader) string {
	declared := header.Get("Content-Type")
	if declared == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}
