package notebook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MimeLyc/notebook-translator/pkg/file"
)

type Info struct {
	Cells         int
	MarkdownCells int
	CodeCells     int
	RawCells      int
	Format        string
	Kernel        string
	Language      string
}

func Describe(doc *Document) Info {
	info := Info{
		Cells:    len(doc.Fragments),
		Kernel:   doc.metadata().Kernelspec.DisplayName,
		Language: doc.Language(),
	}
	for _, f := range doc.Fragments {
		switch f.CellType {
		case CellMarkdown:
			info.MarkdownCells++
		case CellCode:
			info.CodeCells++
		case CellRaw:
			info.RawCells++
		}
	}

	var major, minor int
	_ = json.Unmarshal(doc.Fields["nbformat"], &major)
	_ = json.Unmarshal(doc.Fields["nbformat_minor"], &minor)
	if major > 0 {
		info.Format = fmt.Sprintf("%d.%d", major, minor)
	}
	return info
}

// OutputPath names the translated copy of input: <stem>_translated_<lang><ext>.
func OutputPath(input, lang string) string {
	return file.WithSuffix(input, "_translated_"+strings.ToLower(lang))
}
