package mimetypes

import (
	"mime"
	"path/filepath"
	"strings"
)

type MIME string

const (
	Unknown   MIME = "unknown"
	TextPlain MIME = "text/plain"

	ApplicationPDF  MIME = "application/pdf"
	ApplicationDOC  MIME = "application/msword"
	ApplicationDOCX MIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWEBP MIME = "image/webp"

	VideoMP4       MIME = "video/mp4"
	VideoAVI       MIME = "video/x-msvideo"
	VideoQuickTime MIME = "video/quicktime"

	AudioMPEG MIME = "audio/mpeg"
	AudioWAV  MIME = "audio/wav"
)

// allowed lists the attachment types accepted by the chat, with the file
// extensions each may carry.
var allowed = map[MIME][]string{
	TextPlain:       {".txt"},
	ApplicationPDF:  {".pdf"},
	ApplicationDOC:  {".doc"},
	ApplicationDOCX: {".docx"},
	ImagePNG:        {".png"},
	ImageJPEG:       {".jpg", ".jpeg"},
	ImageGIF:        {".gif"},
	ImageWEBP:       {".webp"},
	VideoMP4:        {".mp4"},
	VideoAVI:        {".avi"},
	VideoQuickTime:  {".mov"},
	AudioMPEG:       {".mp3"},
	AudioWAV:        {".wav"},
}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

// Normalize strips parameters such as charset and lower-cases the media type.
func Normalize(detected string) MIME {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown
	}
	mt = strings.ToLower(mt)
	if mt == "audio/x-wav" || mt == "audio/wave" {
		return AudioWAV
	}
	return MIME(mt)
}

// IsAllowed reports whether a media type may be attached to a message.
func IsAllowed(detected string) bool {
	_, ok := allowed[Normalize(detected)]
	return ok
}

// ExtensionMatches reports whether a file name carries an extension expected
// for the given media type.
func ExtensionMatches(filename string, detected string) bool {
	exts, ok := allowed[Normalize(detected)]
	if !ok {
		return false
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
