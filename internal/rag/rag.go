package rag

import (
	"fmt"
	"strings"

	"coderag/internal/llm"
	"coderag/internal/store"
)

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 5

const promptHeader = `You are an expert software engineer analyzing a codebase.
Answer the user's question based ONLY on the provided context.`

// Searcher is the part of the store used for retrieval.
type Searcher interface {
	Query(text string, k int) ([]store.Result, error)
}

// Retrieve returns the k chunks most similar to question. A non-positive k
// falls back to DefaultK.
func Retrieve(st Searcher, question string, k int) ([]store.Result, error) {
	if k <= 0 {
		k = DefaultK
	}
	results, err := st.Query(question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return results, nil
}

// BuildPrompt assembles the instructions, the question and one block per
// retrieved chunk into a single prompt.
func BuildPrompt(question string, results []store.Result) string {
	var ctx strings.Builder
	ctx.WriteString("Context from Codebase:\n\n")
	for _, r := range results {
		fmt.Fprintf(&ctx, "--- File: %s | %s: %s ---\n", r.Metadata.FilePath, r.Metadata.Kind, r.Metadata.Name)
		ctx.WriteString(r.Content)
		ctx.WriteString("\n\n")
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nQuery: ")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(ctx.String())
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// Answer retrieves context for question, builds the prompt and sends it to
// gen. The retrieved results are returned alongside the answer.
func Answer(gen llm.Generator, st Searcher, question string, k int) (string, []store.Result, error) {
	results, err := Retrieve(st, question, k)
	if err != nil {
		return "", nil, err
	}
	answer, err := gen.Generate(BuildPrompt(question, results))
	if err != nil {
		return "", results, fmt.Errorf("generate answer: %w", err)
	}
	return answer, results, nil
}
