package chat

import (
	"fmt"
	"strings"

	types "github.com/yungbote/lexi-backend/internal/domain"
)

const (
	assistantName = "Lexi"
	noContextText = "No external documents retrieved. Answer based on conversation history only."
)

func promptSearchNeeded(history string, query string) (system string, user string) {
	system = `You are a routing agent for a legal RAG system.
Your job is to determine if the user's last message requires searching the legal database.
Return strictly 'YES' or 'NO'.

Rules:
- Return NO if the user is just saying hello, thank you, or chit-chat.
- Return NO if the user asks a follow-up clearly answered in the chat history.
- Return YES if the user asks for facts, definitions, or specific legal content.`
	user = "Chat History:\n" + history + "\n\nCurrent Query: " + query
	return system, user
}

func promptRewriteQuery(history string, query string) (system string, user string) {
	system = `You are a query rewriting expert.
Rewrite the user's last question to be a standalone search query based on the history.
Do not answer the question. Just rewrite it for a search engine.
If the query is already specific, return it unchanged.`
	user = "Chat History:\n" + history + "\n\nLast Question: " + query
	return system, user
}

func promptAnswer(query string, history string, citations []types.Citation) (system string, user string) {
	system = `You are ` + assistantName + `, a secure legal AI assistant.
Answer the user's question clearly and professionally.
Guidelines:
1. Use the provided 'Context' (legal documents) to answer facts.
2. Use 'Chat History' to understand context (e.g., 'he' refers to the client).
3. If the answer is in the documents, cite the filename explicitly.
4. If you cannot find the answer in the context or history, admit it. Do not hallucinate.`
	user = "CHAT HISTORY:\n" + history + "\n\n" +
		"NEW RETRIEVED CONTEXT:\n" + formatContext(citations) + "\n\n" +
		"USER QUESTION: " + query
	return system, user
}

func formatContext(citations []types.Citation) string {
	if len(citations) == 0 {
		return noContextText
	}
	blocks := make([]string, 0, len(citations))
	for _, c := range citations {
		blocks = append(blocks, fmt.Sprintf("SOURCE: %s (Sensitivity: %s)\nCONTENT: %s", c.Filename, c.Sensitivity, c.TextSnippet))
	}
	return strings.Join(blocks, "\n---\n")
}
