package handler

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"job-board-go/internal/config"
)

var (
	errUploadMissing     = errors.New("缺少上传文件")
	errUploadTooLarge    = errors.New("文件超过大小上限")
	errUploadUnsupported = errors.New("不支持的文件类型")
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

const maxStoredNameLength = 100

// upload 已读入内存并通过校验的上传文件
type upload struct {
	OriginalFilename string
	StoredFilename   string
	Ext              string
	Size             int64
	MD5              string
	Data             []byte
}

// readUpload 校验扩展名和大小，读出内容并计算MD5
func readUpload(cfg *config.Config, fh *multipart.FileHeader) (*upload, error) {
	if fh == nil {
		return nil, errUploadMissing
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtension(cfg, ext) {
		return nil, fmt.Errorf("%w: %q，仅支持 %s", errUploadUnsupported, ext, strings.Join(cfg.Upload.Extensions, " "))
	}
	limit := cfg.MaxUploadBytes()
	if fh.Size > limit {
		return nil, fmt.Errorf("%w: %dMB", errUploadTooLarge, cfg.Upload.MaxFileSizeMB)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %dMB", errUploadTooLarge, cfg.Upload.MaxFileSizeMB)
	}

	sum := md5.Sum(data)
	return &upload{
		OriginalFilename: fh.Filename,
		StoredFilename:   storedName(fh.Filename),
		Ext:              ext,
		Size:             int64(len(data)),
		MD5:              hex.EncodeToString(sum[:]),
		Data:             data,
	}, nil
}

// fileMD5 计算已保存文件的MD5，与上传时登记的值一致
func fileMD5(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// save 写入 <root>[/<subdir>]/<StoredFilename>
func (u *upload) save(root, subdir string) (string, error) {
	dir := root
	if subdir != "" {
		dir = filepath.Join(root, subdir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("创建上传目录失败: %w", err)
	}
	p := filepath.Join(dir, u.StoredFilename)
	if err := os.WriteFile(p, u.Data, 0644); err != nil {
		return "", fmt.Errorf("保存上传文件失败: %w", err)
	}
	return p, nil
}

// publicURL 上传文件对外访问地址
func publicURL(cfg *config.Config, subdir, stored string) string {
	if subdir == "" {
		return path.Join(cfg.Upload.PublicPrefix, stored)
	}
	return path.Join(cfg.Upload.PublicPrefix, subdir, stored)
}

// storedName 生成带UUID前缀的安全文件名
func storedName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.Trim(unsafeFilenameChars.ReplaceAllString(stem, "_"), "._")
	if stem == "" {
		stem = "resume"
	}
	if len(stem) > maxStoredNameLength {
		stem = stem[:maxStoredNameLength]
	}
	return uuid.NewString() + "-" + stem + ext
}

func allowedExtension(cfg *config.Config, ext string) bool {
	for _, e := range cfg.Upload.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
