// Package llm is the extraction gateway to hosted language models.
// It turns free text and receipt images into partial transaction records under a
// fixed JSON schema, and answers free-form spending questions. Providers (OpenAI,
// Anthropic, Gemini) sit behind the Client interface with retry logic, rate
// limiting, and response caching. Gateway methods never return errors: every
// failure collapses into an empty record or a canned answer.
package llm
