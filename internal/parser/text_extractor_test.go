package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPDF 按预设返回结果的PDF提取器
type stubPDF struct {
	text    string
	failure PDFFailure
	err     error
	calls   int
}

func (s *stubPDF) Extract(_ context.Context, _ []byte, _ string) (string, PDFFailure, error) {
	s.calls++
	return s.text, s.failure, s.err
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml":            documentXML,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractTxtIsIdempotent(t *testing.T) {
	root := t.TempDir()
	content := "Jane Doe\nSenior Go engineer with 6 years of experience."
	writeFile(t, filepath.Join(root, "jane.txt"), []byte(content))

	e := NewFileTextExtractor(root, nil)
	first, err := e.Extract(context.Background(), "jane.txt", "")
	require.NoError(t, err)
	assert.Equal(t, content, first, "可打印文本应原样返回")

	second, err := e.Extract(context.Background(), "jane.txt", "")
	require.NoError(t, err)
	assert.Equal(t, first, second, "重复提取结果应一致")
}

func TestExtractStripsControlCharacters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), []byte("\ufeff  Hello\x00 World\x07\r\n\n\n\n\tskills: Go  "))

	text, err := NewFileTextExtractor(root, nil).Extract(context.Background(), "a.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello World\n\n\tskills: Go", text)
}

func TestExtractSearchesOneLevelOfSubdirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "recruiter-b", "cv.txt"), []byte("from recruiter b directory"))
	writeFile(t, filepath.Join(root, "recruiter-a", "cv.txt"), []byte("from recruiter a directory"))
	writeFile(t, filepath.Join(root, "x", "deep", "nested.txt"), []byte("too deep to be found here"))

	e := NewFileTextExtractor(root, nil)

	text, err := e.Extract(context.Background(), "cv.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "from recruiter a directory", text, "按子目录名排序，第一个命中的优先")

	text, err = e.Extract(context.Background(), "cv.txt", "recruiter-b")
	require.NoError(t, err)
	assert.Equal(t, "from recruiter b directory", text)

	_, err = e.Extract(context.Background(), "nested.txt", "")
	assert.ErrorIs(t, err, ErrNotFound, "只搜索一级子目录")

	_, err = e.Extract(context.Background(), "cv.txt", "missing")
	assert.ErrorIs(t, err, ErrNotFound, "指定子目录时不再回退搜索")
}

func TestExtractRejectsPathEscape(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), "secret.txt")
	writeFile(t, outside, []byte("this must never be readable"))
	t.Cleanup(func() { os.Remove(outside) })

	e := NewFileTextExtractor(root, nil)
	_, err := e.Extract(context.Background(), "../secret.txt", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.Extract(context.Background(), "secret.txt", "..")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtractFailureKinds(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "empty.txt"), nil)
	writeFile(t, filepath.Join(root, "big.txt"), bytes.Repeat([]byte("a"), 2048))
	writeFile(t, filepath.Join(root, "photo.png"), []byte("not really a png file"))
	writeFile(t, filepath.Join(root, "short.txt"), []byte("  hi \x01 "))

	e := NewFileTextExtractor(root, nil, WithMaxFileSize(1024))

	cases := []struct {
		file string
		kind ErrorKind
		base error
	}{
		{"missing.txt", KindNotFound, ErrNotFound},
		{"empty.txt", KindEmpty, ErrEmptyFile},
		{"big.txt", KindTooLarge, ErrFileTooLarge},
		{"photo.png", KindUnsupportedFormat, ErrUnsupportedFormat},
		{"short.txt", KindInsufficientContent, ErrInsufficientContent},
	}
	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			_, err := e.Extract(context.Background(), tc.file, "")
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
			assert.ErrorIs(t, err, tc.base)
		})
	}
}

func TestExtractTooLargeAppliesToEveryFormat(t *testing.T) {
	root := t.TempDir()
	pdf := &stubPDF{text: "should never be called"}
	for _, name := range []string{"a.pdf", "a.docx", "a.doc", "a.txt"} {
		writeFile(t, filepath.Join(root, name), bytes.Repeat([]byte("x"), 200))
	}

	e := NewFileTextExtractor(root, pdf, WithMaxFileSize(100))
	for _, name := range []string{"a.pdf", "a.docx", "a.doc", "a.txt"} {
		_, err := e.Extract(context.Background(), name, "")
		assert.ErrorIs(t, err, ErrFileTooLarge, name)
	}
	assert.Zero(t, pdf.calls, "超限文件不应进入解析")
}

func TestExtractLegacyDoc(t *testing.T) {
	root := t.TempDir()
	doc := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0x00, 0x01}, []byte("John   Smith\x00\x00 Backend\x1f developer")...)
	writeFile(t, filepath.Join(root, "old.doc"), doc)
	writeFile(t, filepath.Join(root, "binary.doc"), []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 'a', 'b'})

	e := NewFileTextExtractor(root, nil)
	text, err := e.Extract(context.Background(), "old.doc", "")
	require.NoError(t, err)
	assert.Equal(t, "John Smith Backend developer", text)

	_, err = e.Extract(context.Background(), "binary.doc", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParseFailed)
	assert.Contains(t, err.Error(), "legacy .doc format")
}

func TestExtractDocx(t *testing.T) {
	root := t.TempDir()
	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Senior Go Engineer</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Kubernetes</w:t><w:tab/><w:t>R&amp;D</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	writeFile(t, filepath.Join(root, "cv.docx"), buildDocx(t, documentXML))
	writeFile(t, filepath.Join(root, "broken.docx"), []byte("definitely not a zip archive"))

	e := NewFileTextExtractor(root, nil)
	text, err := e.Extract(context.Background(), "cv.docx", "")
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer\nKubernetes\tR&D", text)

	_, err = e.Extract(context.Background(), "broken.docx", "")
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestExtractPDFUsesExtractorAndKeepsClassification(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "locked.pdf"), []byte("%PDF-1.7 encrypted"))
	writeFile(t, filepath.Join(root, "ok.pdf"), []byte("%PDF-1.7 fine"))

	locked := &stubPDF{failure: PDFFailurePassword, err: errors.New("encrypted")}
	_, err := NewFileTextExtractor(root, locked).Extract(context.Background(), "locked.pdf", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParseFailed)
	assert.ErrorIs(t, err, ErrPDFPasswordProtected, "受密码保护的PDF应归类为password")
	assert.NotErrorIs(t, err, ErrPDFCorrupted)

	var ee *ExtractError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, PDFFailurePassword, ee.PDFFailure)

	ok := &stubPDF{text: "  Page one text\n\n\n\nPage two text  "}
	text, err := NewFileTextExtractor(root, ok).Extract(context.Background(), "ok.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "Page one text\n\nPage two text", text)
}

func TestExtractBytes(t *testing.T) {
	e := NewFileTextExtractor(t.TempDir(), nil)

	text, err := e.ExtractBytes(context.Background(), "upload.TXT", []byte("uploaded resume body text"))
	require.NoError(t, err)
	assert.Equal(t, "uploaded resume body text", text)

	_, err = e.ExtractBytes(context.Background(), "upload.txt", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = e.ExtractBytes(context.Background(), "upload.exe", []byte("MZ binary content here"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestMinTextLengthCountsRunes(t *testing.T) {
	root := t.TempDir()
	// 9个汉字，字节数远超10
	writeFile(t, filepath.Join(root, "cn.txt"), []byte(strings.Repeat("简", 9)))
	writeFile(t, filepath.Join(root, "cn10.txt"), []byte(strings.Repeat("简", 10)))

	e := NewFileTextExtractor(root, nil)
	_, err := e.Extract(context.Background(), "cn.txt", "")
	assert.ErrorIs(t, err, ErrInsufficientContent)

	_, err = e.Extract(context.Background(), "cn10.txt", "")
	assert.NoError(t, err)
}

func TestIsSupportedExtension(t *testing.T) {
	assert.True(t, IsSupportedExtension("a.PDF"))
	assert.True(t, IsSupportedExtension("b.docx"))
	assert.False(t, IsSupportedExtension("c.rtf"))
	assert.False(t, IsSupportedExtension("noext"))
}
