package api

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"
)

const resumeKeyPrefix = "resumes/"

// allowedResumeTypes 为允许上传的简历扩展名及其 Content-Type。
var allowedResumeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

func resumeObjectKey(userID uint, id, ext string) string {
	return fmt.Sprintf("%s%d/%s%s", resumeKeyPrefix, userID, id, ext)
}

// isValidResumeObjectKey 拒绝不在 resumes/ 下或可能穿越目录的 key。
func isValidResumeObjectKey(key string) bool {
	if key == "" || !utf8.ValidString(key) {
		return false
	}
	if !strings.HasPrefix(key, resumeKeyPrefix) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	if len(key) > 200 {
		return false
	}
	_, ok := allowedResumeTypes[strings.ToLower(path.Ext(key))]
	return ok
}
