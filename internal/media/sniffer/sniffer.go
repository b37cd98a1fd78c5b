package sniffer

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
	TypeAVIF MediaType = "avif"
	TypeSVG  MediaType = "svg"
	TypeMP4  MediaType = "mp4"
	TypeMOV  MediaType = "mov"
	TypeWEBM MediaType = "webm"
)

// Kind groups media types by the attachment slot they may fill.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	MIME string
	Kind Kind
}

// Ext is the file extension used for stored objects.
func (r Result) Ext() string {
	if r.Type == TypeJPEG {
		return "jpg"
	}
	return string(r.Type)
}

func Detect(r io.Reader) (Result, []byte, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, nil, err
	}
	head = head[:n]

	result, err := DetectHead(head)
	return result, head, err
}

func DetectHead(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{}, ErrUnknownType
	}

	switch {
	case isJPEG(head):
		return Result{Type: TypeJPEG, MIME: "image/jpeg", Kind: KindImage}, nil
	case isPNG(head):
		return Result{Type: TypePNG, MIME: "image/png", Kind: KindImage}, nil
	case isGIF(head):
		return Result{Type: TypeGIF, MIME: "image/gif", Kind: KindImage}, nil
	case isWEBP(head):
		return Result{Type: TypeWEBP, MIME: "image/webp", Kind: KindImage}, nil
	case isWEBM(head):
		return Result{Type: TypeWEBM, MIME: "video/webm", Kind: KindVideo}, nil
	}

	if brand, ok := ftypBrand(head); ok {
		switch {
		case brand == "avif" || brand == "avis":
			return Result{Type: TypeAVIF, MIME: "image/avif", Kind: KindImage}, nil
		case brand == "qt  ":
			return Result{Type: TypeMOV, MIME: "video/quicktime", Kind: KindVideo}, nil
		default:
			return Result{Type: TypeMP4, MIME: "video/mp4", Kind: KindVideo}, nil
		}
	}

	if isSVG(head) {
		return Result{Type: TypeSVG, MIME: "image/svg+xml", Kind: KindImage}, nil
	}

	return Result{}, ErrUnknownType
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}

// isWEBM matches the EBML header with a webm doctype.
func isWEBM(head []byte) bool {
	return len(head) >= 4 &&
		bytes.Equal(head[:4], []byte{0x1a, 0x45, 0xdf, 0xa3}) &&
		bytes.Contains(head, []byte("webm"))
}

// ftypBrand returns the major brand of an ISO base media file.
func ftypBrand(head []byte) (string, bool) {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return "", false
	}
	return string(head[8:12]), true
}

func isSVG(head []byte) bool {
	trimmed := strings.TrimSpace(string(head))
	return strings.HasPrefix(trimmed, "<svg") || strings.HasPrefix(trimmed, "<?xml")
}

func MimeTypeFromHTTP(header http.Header) string {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return ""
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}
