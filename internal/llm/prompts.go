package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// FallbackAnswer is returned by Ask whenever the model cannot produce an answer.
const FallbackAnswer = "Sorry, I couldn't analyze your spending right now. Please try again in a moment."

// MaxAskHistory bounds how many transactions are sent as context to Ask.
const MaxAskHistory = 50

const extractionSystemPrompt = "You are a personal finance assistant that extracts a single expense from the user's input. " +
	"You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, markdown formatting, " +
	"or commentary before or after the JSON."

const coachSystemPrompt = "You are a friendly personal finance coach. Answer the user's question about their spending " +
	"using only the transactions provided. Be concise and concrete, and mention amounts where useful."

func buildTextPrompt(input string, today time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today's date is %s.\n", today.Format(model.DateLayout))
	b.WriteString("Extract the expense described below. Resolve relative dates such as \"yesterday\" against today's date. ")
	b.WriteString("If no currency is stated, infer it from symbols; default to USD.\n")
	fmt.Fprintf(&b, "Categories: %s.\n\n", strings.Join(categoryEnum(), ", "))
	fmt.Fprintf(&b, "Input: %s", input)
	return b.String()
}

func buildImagePrompt(today time.Time) string {
	return fmt.Sprintf("Today's date is %s.\n"+
		"The attached image is a purchase receipt. Extract the merchant, the final total paid, its currency, "+
		"the best matching category (%s) and the purchase date. If the receipt shows no date, use today's date.",
		today.Format(model.DateLayout), strings.Join(categoryEnum(), ", "))
}

func buildAskPrompt(history []model.Transaction, query string) string {
	if len(history) > MaxAskHistory {
		history = history[:MaxAskHistory]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent transactions (%d, most recent first):\n", len(history))
	if len(history) == 0 {
		b.WriteString("(none)\n")
	}
	for _, txn := range history {
		fmt.Fprintf(&b, "- %s | %.2f %s | %s | %s", txn.DayKey(), txn.Amount, txn.Currency, txn.Category, txn.Merchant)
		if txn.Description != "" {
			fmt.Fprintf(&b, " | %s", txn.Description)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nQuestion: %s", query)
	return b.String()
}
