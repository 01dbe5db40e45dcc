package service

import (
	"errors"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// ErrStoreFailure marks errors caused by the document or blob store rather
// than by the caller's input.
var ErrStoreFailure = errors.New("storage backend failure")

// Upload is an uploaded file held in memory.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename 将上传文件名规整为仅含 ASCII 字母数字、下划线、点和连字符的安全名称，
// 并去掉目录部分与前导点。结果为空时返回基于 uuid 的名称。
func SanitizeFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range decomposed {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	ascii := strings.ReplaceAll(b.String(), "\\", "/")
	ascii = path.Base("/" + ascii)

	ascii = strings.Join(strings.Fields(ascii), "_")
	ascii = unsafeFilenameChars.ReplaceAllString(ascii, "")
	ascii = strings.Trim(ascii, "._")

	if ascii == "" {
		return uuid.NewString()
	}
	return ascii
}
