package llm

import "fmt"

const DefaultSystemPrompt = `You are a helpful restaurant assistant. Answer questions based ONLY on the provided context.
If the answer is not in the context, politely say you don't have that information.
Be friendly, concise, and accurate. Keep responses natural and conversational.`

// BuildPrompt wraps retrieved context and the customer question into the
// user message. Without context the question is sent as is.
func BuildPrompt(question, context string) string {
	if context == "" {
		return question
	}
	return fmt.Sprintf("Context from restaurant documents:\n%s\n\nCustomer Question: %s\n\nPlease answer the question based on the context provided above.", context, question)
}
