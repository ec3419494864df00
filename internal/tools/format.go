package tools

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/internal/chat"
)

var (
	mdHeading = regexp.MustCompile(`#+\s+`)
	mdBold    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	mdItalic  = regexp.MustCompile(`\*(.*?)\*`)
	mdCode    = regexp.MustCompile("`(.*?)`")
	mdLink    = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	mdBullet  = regexp.MustCompile(`\n\s*[-*]\s+`)
	mdNumber  = regexp.MustCompile(`\n\s*\d+\.\s+`)
)

// StripMarkdown removes markdown markup from text, normalizing bullet
// lists to the • marker.
func StripMarkdown(text string) string {
	text = mdHeading.ReplaceAllString(text, "")
	text = mdBold.ReplaceAllString(text, "$1")
	text = mdItalic.ReplaceAllString(text, "$1")
	text = mdCode.ReplaceAllString(text, "$1")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdBullet.ReplaceAllString(text, "\n• ")
	text = mdNumber.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// semanticClasses maps element names to the class the client's stylesheet
// expects.
var semanticClasses = map[string]string{
	"h1": "heading", "h2": "heading", "h3": "heading",
	"h4": "heading", "h5": "heading", "h6": "heading",
	"code": "code-block",
	"pre":  "pre-block",
}

// MarkdownToHTML converts markdown to HTML and tags headings and code
// blocks with semantic classes.
func MarkdownToHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := htmlRenderer.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(&buf, body)
	if err != nil {
		return "", fmt.Errorf("parsing generated html: %w", err)
	}

	var out bytes.Buffer
	for _, node := range nodes {
		tagClasses(node)
		if err := html.Render(&out, node); err != nil {
			return "", fmt.Errorf("rendering html: %w", err)
		}
	}
	return out.String(), nil
}

func tagClasses(n *html.Node) {
	if n.Type == html.ElementNode {
		if class, ok := semanticClasses[n.Data]; ok {
			addClass(n, class)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		tagClasses(child)
	}
}

func addClass(n *html.Node, class string) {
	for i, attr := range n.Attr {
		if attr.Key == "class" {
			n.Attr[i].Val = attr.Val + " " + class
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

type formatArgs struct {
	Text       string `json:"text" jsonschema:"description=The text to reformat"`
	FormatType string `json:"format_type" jsonschema:"description=Target format: markdown, text or html"`
}

func formatCapability() chat.Capability {
	return chat.Capability{
		Name:        "format_response",
		Description: "Reformats text into the requested format: markdown (unchanged), text (markup stripped) or html.",
		Parameters:  llm.GenerateSchema[formatArgs](),
		Invoke: func(ctx context.Context, call chat.CallContext) (string, error) {
			args, err := llm.ParseToolArguments[formatArgs](call.Arguments)
			if err != nil {
				return "", fmt.Errorf("parsing arguments: %w", err)
			}

			chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Formatting response...")

			switch args.FormatType {
			case "text":
				chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Markup stripped")
				return StripMarkdown(args.Text), nil
			case "html":
				out, err := MarkdownToHTML(args.Text)
				if err != nil {
					chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to convert to HTML")
					return fmt.Sprintf("Error formatting text: %s", err), nil
				}
				chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Converted to HTML")
				return out, nil
			default:
				chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Text left as markdown")
				return args.Text, nil
			}
		},
	}
}
