package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// docxToText 读取 word/document.xml 并转换为纯文本。
// 返回的 warnings 只用于记录日志，不影响结果。
func docxToText(data []byte) (string, []string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	if strings.TrimSpace(content) == "" {
		return "", []string{"document.xml is empty"}, nil
	}

	text, err := walkDocumentXML(content)
	if err != nil {
		// 标记不完整时退回到直接去标签
		warnings := []string{fmt.Sprintf("document.xml is not well-formed, stripping tags instead: %v", err)}
		return stripDocxTags(content), warnings, nil
	}
	return text, nil, nil
}

// walkDocumentXML 按 WordprocessingML 元素把段落、换行、制表符映射为空白
func walkDocumentXML(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	dec.Strict = false

	var sb strings.Builder
	inText := false
	// 只有 w:r 内的 tab 是文本；w:tabs 下的 tab 是制表位定义
	runDepth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				runDepth++
			case "t":
				inText = true
			case "tab":
				if runDepth > 0 {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				if runDepth > 0 {
					runDepth--
				}
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

func stripDocxTags(content string) string {
	r := strings.NewReplacer(
		"</w:p>", "\n",
		"<w:br/>", "\n",
		"<w:cr/>", "\n",
		"<w:tab/>", "\t",
	)
	return html.UnescapeString(xmlTagPattern.ReplaceAllString(r.Replace(content), ""))
}
