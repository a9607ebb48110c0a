package answer

import (
	"fmt"
	"strings"
)

const promptTemplate = `You are a helpful AI assistant that answers questions based on the provided context.

Context:
%s

Question: %s

Please provide a clear and concise answer based only on the context provided. If the context doesn't contain enough information to answer the question, say so.

Answer:`

// QuestionType is a coarse classification of a user question, used to
// pick a type-specific instruction for the prompt.
type QuestionType string

const (
	QuestionFactual     QuestionType = "factual"
	QuestionAnalytical  QuestionType = "analytical"
	QuestionComparative QuestionType = "comparative"
	QuestionOpinion     QuestionType = "opinion"
	QuestionYesNo       QuestionType = "yes_no"
	QuestionGeneral     QuestionType = "general"
)

// ClassifyQuestion returns the question type based on keyword heuristics.
func ClassifyQuestion(question string) QuestionType {
	q := strings.ToLower(question)
	switch {
	case containsAny(q, "what is", "who is", "when", "where", "what are"):
		return QuestionFactual
	case containsAny(q, "how", "why"):
		return QuestionAnalytical
	case containsAny(q, "compare", "difference", "versus", "vs", "better"):
		return QuestionComparative
	case containsAny(q, "opinion", "think", "believe", "should"):
		return QuestionOpinion
	case hasAnyPrefix(strings.TrimSpace(q), "is ", "are ", "can ", "do ", "does ", "did "):
		return QuestionYesNo
	default:
		return QuestionGeneral
	}
}

var typeInstructions = map[QuestionType]string{
	QuestionFactual:     "Provide a clear, factual answer based on the context.",
	QuestionAnalytical:  "Explain the reasoning and provide a detailed analysis.",
	QuestionComparative: "Compare and contrast the relevant information.",
	QuestionOpinion:     "Present the information objectively, noting it's based on the provided context.",
	QuestionYesNo:       "Provide a clear yes or no answer, followed by explanation.",
	QuestionGeneral:     "Provide a comprehensive answer based on the context.",
}

// BuildPrompt assembles the QA prompt from context and question, with an
// instruction tailored to the question type appended.
func BuildPrompt(contextText, question string) string {
	prompt := fmt.Sprintf(promptTemplate, contextText, question)
	if instruction, ok := typeInstructions[ClassifyQuestion(question)]; ok {
		prompt += "\n\nNote: " + instruction
	}
	return prompt
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
