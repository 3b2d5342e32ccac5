package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"go.uber.org/zap"
)

// retrieveAPI is the subset of the Bedrock Agent Runtime client used here.
type retrieveAPI interface {
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// BedrockKnowledgeBase searches a managed Bedrock knowledge base.
type BedrockKnowledgeBase struct {
	client          retrieveAPI
	knowledgeBaseID string
}

func NewBedrockKnowledgeBase(cfg aws.Config, knowledgeBaseID string) (*BedrockKnowledgeBase, error) {
	return newBedrockKnowledgeBase(bedrockagentruntime.NewFromConfig(cfg), knowledgeBaseID)
}

func newBedrockKnowledgeBase(client retrieveAPI, knowledgeBaseID string) (*BedrockKnowledgeBase, error) {
	if knowledgeBaseID == "" || knowledgeBaseID == "PLACEHOLDER" {
		return nil, errors.New("knowledge base id is not configured")
	}

	return &BedrockKnowledgeBase{
		client:          client,
		knowledgeBaseID: knowledgeBaseID,
	}, nil
}

func (kb *BedrockKnowledgeBase) Search(ctx context.Context, query string, opts ...SearchOption) ([]Document, error) {
	settings := NewSearchSettings(opts...)

	out, err := kb.client.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(kb.knowledgeBaseID),
		RetrievalQuery:  &types.KnowledgeBaseQuery{Text: aws.String(query)},
		RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(settings.MaxResults)),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bedrock retrieve: %v", ErrUnavailable, err)
	}

	docs := make([]Document, 0, len(out.RetrievalResults))
	for _, r := range out.RetrievalResults {
		if r.Content == nil || aws.ToString(r.Content.Text) == "" {
			continue
		}

		docs = append(docs, Document{
			Text:     aws.ToString(r.Content.Text),
			Score:    aws.ToFloat64(r.Score),
			Metadata: convertMetadata(r),
		})
	}

	return Rank(docs, settings), nil
}

func convertMetadata(r types.KnowledgeBaseRetrievalResult) map[string]any {
	metadata := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		if v == nil {
			continue
		}

		value, err := decodeDocument(v)
		if err != nil {
			logger.Error("Skipping knowledge base metadata", zap.String("key", k), zap.Error(err))
			continue
		}
		metadata[k] = value
	}

	if r.Location != nil && r.Location.S3Location != nil {
		if _, ok := metadata["source"]; !ok {
			metadata["source"] = aws.ToString(r.Location.S3Location.Uri)
		}
	}

	return metadata
}

// decodeDocument round-trips through JSON so lazy and wire-decoded documents
// decode the same way.
func decodeDocument(d document.Interface) (any, error) {
	raw, err := d.MarshalSmithyDocument()
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}
