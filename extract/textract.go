package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/textract"
)

// TextractAPI is the subset of the Textract client used here.
type TextractAPI interface {
	AnalyzeDocumentWithContext(ctx aws.Context, input *textract.AnalyzeDocumentInput, opts ...request.Option) (*textract.AnalyzeDocumentOutput, error)
}

// TextractOCR recognizes text with AWS Textract's synchronous AnalyzeDocument.
type TextractOCR struct {
	Client TextractAPI
}

// NewTextractOCR builds a Textract client from an AWS session.
func NewTextractOCR(sess *session.Session) *TextractOCR {
	return &TextractOCR{Client: textract.New(sess)}
}

// NewTextractSession creates a session for region using static credentials
// when given, otherwise the default AWS credential chain.
func NewTextractSession(region, accessKeyID, secretAccessKey string) (*session.Session, error) {
	cfg := aws.NewConfig().WithRegion(region)
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(accessKeyID, secretAccessKey, ""))
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return sess, nil
}

func (t *TextractOCR) Name() string { return "textract" }

// Recognize implements OCR.
func (t *TextractOCR) Recognize(ctx context.Context, doc Document) (string, error) {
	out, err := t.Client.AnalyzeDocumentWithContext(ctx, &textract.AnalyzeDocumentInput{
		Document: &textract.Document{Bytes: doc.Data},
		FeatureTypes: aws.StringSlice([]string{
			textract.FeatureTypeTables,
			textract.FeatureTypeForms,
		}),
	})
	if err != nil {
		return "", fmt.Errorf("textract analyze document: %w", err)
	}
	return textractText(out.Blocks), nil
}

// textractText lays out LINE blocks top to bottom, followed by the form keys.
func textractText(blocks []*textract.Block) string {
	byID := make(map[string]*textract.Block, len(blocks))
	var lines, keys []*textract.Block
	for _, b := range blocks {
		if b == nil {
			continue
		}
		if b.Id != nil {
			byID[*b.Id] = b
		}
		switch aws.StringValue(b.BlockType) {
		case textract.BlockTypeLine:
			lines = append(lines, b)
		case textract.BlockTypeKeyValueSet:
			for _, et := range b.EntityTypes {
				if aws.StringValue(et) == textract.EntityTypeKey {
					keys = append(keys, b)
					break
				}
			}
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return blockTop(lines[i]) < blockTop(lines[j])
	})

	var sb strings.Builder
	for _, l := range lines {
		if text := aws.StringValue(l.Text); text != "" {
			sb.WriteString(text)
			sb.WriteByte(' ')
		}
	}

	if len(keys) > 0 {
		sb.WriteString("\n\nExtracted Key Information:\n")
		for _, k := range keys {
			if text := keyText(k, byID); text != "" {
				sb.WriteString(text)
				sb.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

func blockTop(b *textract.Block) float64 {
	if b.Geometry == nil || b.Geometry.BoundingBox == nil {
		return 0
	}
	return aws.Float64Value(b.Geometry.BoundingBox.Top)
}

// keyText returns a KEY block's text, assembling it from its WORD children
// when Textract leaves Text empty.
func keyText(b *textract.Block, byID map[string]*textract.Block) string {
	if text := aws.StringValue(b.Text); text != "" {
		return text
	}
	var words []string
	for _, rel := range b.Relationships {
		if aws.StringValue(rel.Type) != textract.RelationshipTypeChild {
			continue
		}
		for _, id := range rel.Ids {
			if child, ok := byID[aws.StringValue(id)]; ok && aws.StringValue(child.BlockType) == textract.BlockTypeWord {
				words = append(words, aws.StringValue(child.Text))
			}
		}
	}
	return strings.Join(words, " ")
}
