package document

import (
	"strings"

	"github.com/dshills/appwiki/internal/engine/buffer"
	"github.com/dshills/appwiki/internal/engine/position"
)

const fence = "```"

// Block is an embedded application block found in a document.
type Block struct {
	// Index is the block's ordinal among the document's blocks.
	Index int `json:"index"`

	// App is the fence info string naming the application.
	App string `json:"app"`

	// Span covers the block, delimiter lines included.
	Span position.NodeSpan `json:"span"`

	// Data is the block body with the fence indentation removed.
	Data string `json:"data"`

	// Closed is false when the document ends before the closing fence.
	Closed bool `json:"closed"`
}

// Scan locates fenced application blocks in lines.
//
// A block opens on a line holding only indentation, three backticks and an
// application name, and closes on the next line holding only indentation
// and three backticks. Fences without a name are ordinary code and are
// skipped along with their bodies. A block left open runs to the end of
// the document; its span then ends on a virtual line just past the last
// row so the body still resolves.
//
// Fence indentation is measured in columns, with tabs advancing to the
// next multiple of tabWidth.
func Scan(lines []string, tabWidth int) []Block {
	var blocks []Block

	for row := 0; row < len(lines); row++ {
		indent, info, ok := openFence(lines[row], tabWidth)
		if !ok {
			continue
		}

		end := row + 1
		for end < len(lines) && !closeFence(lines[end]) {
			end++
		}
		closed := end < len(lines)

		if info != "" {
			blocks = append(blocks, Block{
				Index: len(blocks),
				App:   info,
				Span: position.NodeSpan{
					Start:  position.Point{Line: row + 1},
					End:    position.Point{Line: end + 1},
					Indent: indent,
				},
				Data:   body(lines[row+1:end], indent, tabWidth),
				Closed: closed,
			})
		}
		row = end
	}

	return blocks
}

func openFence(line string, tabWidth int) (indent int, info string, ok bool) {
	indent, n := buffer.MeasureIndent(line, tabWidth)
	trimmed := line[n:]
	if !strings.HasPrefix(trimmed, fence) {
		return 0, "", false
	}
	info = strings.TrimSpace(strings.TrimPrefix(trimmed, fence))
	if strings.Contains(info, "`") {
		return 0, "", false
	}
	if i := strings.IndexAny(info, " \t"); i >= 0 {
		info = info[:i]
	}
	return indent, info, true
}

func closeFence(line string) bool {
	return strings.TrimSpace(line) == fence
}

// body joins content rows, stripping up to indent columns of leading
// whitespace from each.
func body(rows []string, indent, tabWidth int) string {
	if len(rows) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(buffer.TrimIndent(row, indent, tabWidth))
		sb.WriteByte('\n')
	}
	return sb.String()
}
