package csvimport

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncodings is the fallback order tried on CSV sources
var DefaultEncodings = []string{"utf-8-sig", "utf-8", "cp950", "big5", "gbk", "gb2312"}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// LookupEncoding resolves an encoding label. UTF-8 labels return a nil
// encoding, which means the bytes are used as they are.
func LookupEncoding(name string) (encoding.Encoding, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8-sig", "utf-8", "utf8":
		return nil, true
	case "cp950", "big5", "big-5":
		return traditionalchinese.Big5, true
	case "gbk", "gb2312", "cp936":
		return simplifiedchinese.GBK, true
	case "gb18030":
		return simplifiedchinese.GB18030, true
	case "utf-16", "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), true
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), true
	}
	return nil, false
}

// Decode converts raw bytes to UTF-8 text. A byte order mark decides the
// encoding when present; otherwise each encoding in order is tried and the
// first one that decodes without replacement characters wins. It returns
// the text and the label of the encoding used.
func Decode(data []byte, encodings []string) (string, string, error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}

	switch {
	case bytes.HasPrefix(data, bomUTF8):
		rest := data[len(bomUTF8):]
		if utf8.Valid(rest) {
			return string(rest), "utf-8-sig", nil
		}
		return "", "", ErrUndecodable
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", "", ErrUndecodable
		}
		return string(out), "utf-16", nil
	}

	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	for _, name := range encodings {
		enc, ok := LookupEncoding(name)
		if !ok {
			continue
		}
		if enc == nil {
			if utf8.Valid(data) {
				return string(data), name, nil
			}
			continue
		}
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return string(out), name, nil
	}
	return "", "", ErrUndecodable
}
