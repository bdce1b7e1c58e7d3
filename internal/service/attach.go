package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docrankhq/docrank/internal/model"
)

// attachTokenRegex matches the uuid placeholders the chunker leaves behind
// where a list, table or math block was lifted out of the chunk text.
var attachTokenRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// AttachableLister resolves placeholder tokens to their lifted content.
type AttachableLister interface {
	ListByTokens(ctx context.Context, tokens []string) (map[string]model.AttachableContent, error)
}

// RehydrateChunks replaces attachable-content tokens inside the retained
// chunks with the original content before the text reaches a model prompt.
// Stored tokens are lowercase, so tokens are normalized before the lookup.
// Unresolvable tokens stay in place; a lookup failure leaves all chunks
// untouched.
func RehydrateChunks(ctx context.Context, lister AttachableLister, files []*model.ExtendedFileForSearch) {
	logger := logutil.GetLogger(ctx)
	tokenSet := make(map[string]struct{})
	for _, file := range files {
		for _, chunk := range file.Chunks {
			for _, token := range attachTokenRegex.FindAllString(chunk.Content, -1) {
				tokenSet[strings.ToLower(token)] = struct{}{}
			}
		}
	}
	if len(tokenSet) == 0 {
		return
	}
	tokens := make([]string, 0, len(tokenSet))
	for token := range tokenSet {
		tokens = append(tokens, token)
	}
	resolved, err := lister.ListByTokens(ctx, tokens)
	if err != nil {
		logger.Warn("failed to resolve attachable content tokens", zap.Int("tokens", len(tokens)), zap.Error(err))
		return
	}
	for _, file := range files {
		for i := range file.Chunks {
			file.Chunks[i].Content = replaceTokens(file.Chunks[i].Content, resolved)
		}
	}
}

func replaceTokens(content string, resolved map[string]model.AttachableContent) string {
	return attachTokenRegex.ReplaceAllStringFunc(content, func(token string) string {
		item, ok := resolved[strings.ToLower(token)]
		if !ok {
			return token
		}
		return item.Content
	})
}
