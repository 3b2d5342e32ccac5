package agentboot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/SaiNageswarS/go-collection-boot/linq"
	"github.com/SaiNageswarS/repo-advisor/retrieval"
)

// ToolResultChunk is one unit of tool output fed back to the model.
type ToolResultChunk struct {
	Title       string
	Sentences   []string
	Attribution string
	Metadata    map[string]string
	ToolName    string
	Error       string
}

// ToolResultChunkBuilder is a builder for creating tool response chunks.
type ToolResultChunkBuilder struct {
	chk *ToolResultChunk
}

func NewToolResultChunk() *ToolResultChunkBuilder {
	return &ToolResultChunkBuilder{
		chk: &ToolResultChunk{
			Metadata: make(map[string]string),
		},
	}
}

func (b *ToolResultChunkBuilder) Sentences(sentences ...string) *ToolResultChunkBuilder {
	b.chk.Sentences = append(b.chk.Sentences, sentences...)
	return b
}

func (b *ToolResultChunkBuilder) Attribution(attr string) *ToolResultChunkBuilder {
	b.chk.Attribution = attr
	return b
}

func (b *ToolResultChunkBuilder) Title(t string) *ToolResultChunkBuilder {
	b.chk.Title = t
	return b
}

func (b *ToolResultChunkBuilder) MetadataKV(key, value string) *ToolResultChunkBuilder {
	b.chk.Metadata[key] = value
	return b
}

func (b *ToolResultChunkBuilder) ToolName(name string) *ToolResultChunkBuilder {
	b.chk.ToolName = name
	return b
}

func (b *ToolResultChunkBuilder) Error(errMsg string) *ToolResultChunkBuilder {
	b.chk.Error = errMsg
	return b
}

func (b *ToolResultChunkBuilder) Build() *ToolResultChunk {
	return b.chk
}

// NewDocumentResult turns a retrieved document into a tool result chunk. The
// repository name becomes the title and its url the attribution.
func NewDocumentResult(doc retrieval.Document) *ToolResultChunk {
	b := NewToolResultChunk().
		Title(metadataString(doc.Metadata, "repository")).
		Attribution(metadataString(doc.Metadata, "url")).
		MetadataKV("score", fmt.Sprintf("%.2f", doc.Score))

	if source := metadataString(doc.Metadata, "source"); source != "" {
		b.MetadataKV("source", source)
	}

	for _, line := range strings.Split(doc.Text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			b.Sentences(line)
		}
	}
	return b.Build()
}

// renderToolResults drains a tool's result channel into markdown blocks, in
// the order the tool produced them.
func renderToolResults(ctx context.Context, toolName string, results <-chan *ToolResultChunk) ([]string, error) {
	linqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	return linq.Pipe4(
		linq.NewStream(linqCtx, results, cancel, 10),

		linq.Where(func(chunk *ToolResultChunk) bool {
			return chunk != nil
		}),

		linq.Select(func(chunk *ToolResultChunk) *ToolResultChunk {
			if chunk.ToolName == "" {
				chunk.ToolName = toolName
			}
			return chunk
		}),

		linq.Select(func(chunk *ToolResultChunk) string {
			return formatToolResultToMD(chunk)
		}),

		linq.ToSlice[string](),
	)
}

// renderDocuments formats documents the same way tool results are shown to
// the model, for prompts that inline them.
func renderDocuments(docs []retrieval.Document) string {
	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		blocks = append(blocks, formatToolResultToMD(NewDocumentResult(d)))
	}
	return strings.Join(blocks, "\n\n")
}

func formatToolResultToMD(result *ToolResultChunk) string {
	if result == nil {
		return ""
	}

	var b strings.Builder

	title := strings.TrimSpace(result.Title)
	tool := strings.TrimSpace(result.ToolName)
	if title == "" && tool != "" {
		title = tool
	}
	if title != "" {
		b.WriteString("### ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	// "via <tool>" only when the title is something else
	if tool != "" && tool != title {
		b.WriteString("_via `")
		b.WriteString(tool)
		b.WriteString("`_\n\n")
	}

	if errText := strings.TrimSpace(result.Error); errText != "" {
		b.WriteString("> **Error:** ")
		b.WriteString(errText)
		b.WriteString("\n\n")
	}

	if n := len(result.Sentences); n == 1 {
		b.WriteString(strings.TrimSpace(result.Sentences[0]))
		b.WriteString("\n\n")
	} else if n > 1 {
		for _, s := range result.Sentences {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if len(result.Metadata) > 0 {
		keys := make([]string, 0, len(result.Metadata))
		for k := range result.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("| Key | Value |\n|---|---|\n")
		for _, k := range keys {
			b.WriteString("| ")
			b.WriteString(k)
			b.WriteString(" | ")
			b.WriteString(mdEscape(result.Metadata[k]))
			b.WriteString(" |\n")
		}
		b.WriteByte('\n')
	}

	if att := strings.TrimSpace(result.Attribution); att != "" {
		b.WriteString("**Attribution**: ")
		b.WriteString(att)
	}

	return strings.TrimRight(b.String(), "\n")
}

func metadataString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
