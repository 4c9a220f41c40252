package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/vector"
)

const (
	// ChatContextDocuments is the number of chunks retrieved for a question.
	ChatContextDocuments = 3

	// ChatHistoryMessages is the number of trailing conversation messages
	// forwarded to the chat model.
	ChatHistoryMessages = 5

	noContext = "No specific company documents found for this query."
)

const systemPromptTemplate = `You are a helpful company assistant with access to company documents and policies. Use the following context to answer questions accurately.

CONTEXT:
%s

INSTRUCTIONS:
- Use the provided context to answer questions whenever possible
- If the context contains relevant information, reference it in your response
- If the question is not covered in the available context, say "I don't have specific information about that in the company documents"
- Be concise, helpful, and professional
- Always maintain a professional tone appropriate for workplace communication
- If referencing specific documents, mention the source when helpful

Remember: You are representing the company, so ensure all responses are appropriate and accurate based on the available information.`

// DocumentRef identifies a chunk used to answer a question.
type DocumentRef struct {
	Filename   string  `json:"filename"`
	Similarity float32 `json:"similarity"`
	ChunkIndex int     `json:"chunk_index"`
}

// ChatContext reports which chunks grounded an answer.
type ChatContext struct {
	DocumentsUsed []DocumentRef `json:"documentsUsed"`
	ContextUsed   bool          `json:"contextUsed"`
}

// ChatResult is an answer with its grounding.
type ChatResult struct {
	Message   llm.Message `json:"message"`
	Context   ChatContext `json:"context"`
	Timestamp time.Time   `json:"timestamp"`
}

// Chat answers the last user message in messages, grounded on the chunks
// closest to it.
func (s *Service) Chat(ctx context.Context, messages []llm.Message) (*ChatResult, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}
	last := messages[len(messages)-1]
	if last.Role != llm.RoleUser {
		return nil, ErrLastMessageNotUser
	}
	if s.chat == nil {
		return nil, ErrChatDisabled
	}

	docs, err := s.Search(ctx, last.Content, ChatContextDocuments)
	if err != nil {
		return nil, err
	}

	history := messages[max(0, len(messages)-ChatHistoryMessages):]
	request := make([]llm.Message, 0, len(history)+1)
	request = append(request, llm.NewTextMessage(llm.RoleSystem, SystemPrompt(BuildContext(docs))))
	request = append(request, history...)

	resp, err := s.chat.Complete(ctx, request, s.chatOpts)
	if err != nil {
		return nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Message.Content) == "" {
		return nil, fmt.Errorf("%s: %w", s.chat.Name(), llm.ErrEmptyResponse)
	}

	refs := make([]DocumentRef, len(docs))
	for i, doc := range docs {
		refs[i] = DocumentRef{
			Filename:   vector.StringMeta(doc.Metadata, vector.MetaFilename),
			Similarity: doc.Similarity,
			ChunkIndex: vector.IntMeta(doc.Metadata, vector.MetaChunkIndex),
		}
	}

	s.logger.Debug("chat answered",
		"provider", s.chat.Name(),
		"model", resp.Model,
		"documents", len(docs),
	)

	return &ChatResult{
		Message: llm.NewTextMessage(llm.RoleAssistant, resp.Message.Content),
		Context: ChatContext{
			DocumentsUsed: refs,
			ContextUsed:   len(docs) > 0,
		},
		Timestamp: s.now().UTC(),
	}, nil
}

// BuildContext renders retrieved chunks as numbered, attributed passages.
func BuildContext(docs []vector.QueryResult) string {
	if len(docs) == 0 {
		return noContext
	}

	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = fmt.Sprintf("Document %d (%s):\n%s", i+1, vector.StringMeta(doc.Metadata, vector.MetaFilename), doc.Content)
	}
	return strings.Join(parts, "\n\n")
}

// SystemPrompt embeds context in the assistant's instructions.
func SystemPrompt(context string) string {
	return fmt.Sprintf(systemPromptTemplate, context)
}
