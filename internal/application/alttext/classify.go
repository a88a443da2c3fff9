package alttext

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"alt-text-ai-api/internal/domain/entity"
)

// sniffImage 根据内容判断是否为图片，返回检测到的 MIME 类型
func sniffImage(content []byte) (string, bool) {
	mt := mimetype.Detect(content)
	return mt.String(), strings.HasPrefix(mt.String(), "image/")
}

// declaredImage 宿主声明了 MIME 类型时直接按前缀判断
// 未声明时返回 known=false，需要读取内容后嗅探
func declaredImage(a *entity.Attachment) (isImage, known bool) {
	if strings.TrimSpace(a.MimeType) == "" {
		return false, false
	}
	return a.HasDeclaredImageType(), true
}

// dimensions 尽力解析图片尺寸，仅用于日志和追踪
func dimensions(content []byte) (width, height int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
