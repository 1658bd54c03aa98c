package pathhelper

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// 文件名中不允许出现的字符
var unsafeCharPattern = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// 连续空白折叠
var spacePattern = regexp.MustCompile(`\s+`)

// SanitizeFilename 清理标题中的非法字符，用于生成下载文件名。
// 先做 NFC 规范化，避免同一标题产生多个不同的字节序列。
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)
	name = unsafeCharPattern.ReplaceAllString(name, "_")
	name = spacePattern.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	// 过长的文件名会超出文件系统限制
	if len(name) > 200 {
		name = name[:200]
	}
	if name == "" {
		name = "download"
	}
	return name
}

// ScratchPath 以任务唯一前缀拼接临时目录下的文件路径。
// 前缀保证了并发任务之间不会发生文件名冲突。
func ScratchPath(scratchDir, prefix, name string) string {
	return filepath.Join(scratchDir, prefix+"_"+name)
}

// AttachmentName 生成下载附件的文件名（标题 + 实际文件扩展名）
func AttachmentName(title, path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return SanitizeFilename(title)
	}
	return SanitizeFilename(title) + "." + ext
}
