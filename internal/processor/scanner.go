package processor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"job-board-go/internal/parser"
	"job-board-go/internal/types"
)

// DirectoryScanner 扫描上传目录下的简历文件，只向下看一级子目录
type DirectoryScanner struct {
	root   string
	logger zerolog.Logger
}

// NewDirectoryScanner 创建目录扫描器
func NewDirectoryScanner(root string, logger zerolog.Logger) *DirectoryScanner {
	return &DirectoryScanner{root: root, logger: logger}
}

// Root 返回上传根目录
func (s *DirectoryScanner) Root() string {
	return s.root
}

// ScanResumes 列出简历文件。
// recruiterDir 非空时只列该子目录，子目录不存在返回空列表；
// 为空时列出根目录和所有一级子目录。结果先根目录后子目录，均按名称排序。
func (s *DirectoryScanner) ScanResumes(recruiterDir string) ([]types.ResumeFile, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUploadRootUnavailable, s.root, err)
	}

	if recruiterDir != "" {
		if !isPlainDirName(recruiterDir) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRecruiterDir, recruiterDir)
		}
		files, err := s.listDir(recruiterDir)
		if errors.Is(err, fs.ErrNotExist) {
			return []types.ResumeFile{}, nil
		}
		if err != nil {
			return nil, err
		}
		return files, nil
	}

	files := make([]types.ResumeFile, 0, len(entries))
	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
			continue
		}
		if f, ok := s.toResumeFile(entry, s.root, nil); ok {
			files = append(files, f)
		}
	}
	sortByName(files)

	sort.Strings(subdirs)
	for _, dir := range subdirs {
		sub, err := s.listDir(dir)
		if err != nil {
			// 单个子目录不可读不影响整体扫描
			s.logger.Warn().Err(err).Str("subdir", dir).Msg("跳过无法读取的子目录")
			continue
		}
		files = append(files, sub...)
	}
	return files, nil
}

func (s *DirectoryScanner) listDir(dir string) ([]types.ResumeFile, error) {
	full := filepath.Join(s.root, dir)
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fs.ErrNotExist
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}

	name := dir
	files := make([]types.ResumeFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if f, ok := s.toResumeFile(entry, full, &name); ok {
			files = append(files, f)
		}
	}
	sortByName(files)
	return files, nil
}

func (s *DirectoryScanner) toResumeFile(entry fs.DirEntry, dir string, subdir *string) (types.ResumeFile, bool) {
	if !parser.IsSupportedExtension(entry.Name()) {
		return types.ResumeFile{}, false
	}
	info, err := entry.Info()
	if err != nil || !info.Mode().IsRegular() {
		return types.ResumeFile{}, false
	}
	return types.ResumeFile{
		Name:   entry.Name(),
		Subdir: subdir,
		Path:   filepath.Join(dir, entry.Name()),
		Size:   info.Size(),
	}, true
}

func sortByName(files []types.ResumeFile) {
	sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })
}

func isPlainDirName(name string) bool {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}
