package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader_ReadLine(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedValue string
	}{
		{name: "successful read", input: "test input\n", expectedValue: "test input"},
		{name: "read with extra whitespace", input: "  test input  \n", expectedValue: "test input"},
		{name: "empty line", input: "\n", expectedValue: ""},
		{name: "no trailing newline", input: "yes", expectedValue: "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLineReader(strings.NewReader(tt.input))
			result, err := lr.ReadLine(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expectedValue, result)
		})
	}
}

func TestLineReader_EOF(t *testing.T) {
	lr := NewLineReader(strings.NewReader(""))
	_, err := lr.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	_, err = lr.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF, "stays at EOF")
}

func TestLineReader_Sequential(t *testing.T) {
	lr := NewLineReader(strings.NewReader("first\nsecond\n"))
	for _, want := range []string{"first", "second"} {
		got, err := lr.ReadLine(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLineReader_ContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	lr := NewLineReader(pr)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := lr.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)

	go func() { _, _ = io.WriteString(pw, "late\n") }()
	got, err := lr.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", got, "a line typed after cancellation is not lost")
}

func TestLineReader_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got, err := NewLineReader(strings.NewReader(tt.input)).Confirm(context.Background(), &out, "Save?")
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
		assert.Contains(t, out.String(), "Save? [y/N]")
	}
}

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out, 4, "Importing")
	p.Set(2, 4)
	p.Set(4, 4)
	assert.Contains(t, out.String(), "Importing")
	assert.Contains(t, out.String(), "4/4")
}

func TestRenderPreview(t *testing.T) {
	amount, merchant, confidence := 12.5, "Deli", 0.8
	preview := intake.Preview{Record: model.PartialRecord{
		Amount:     &amount,
		Merchant:   &merchant,
		Confidence: &confidence,
	}}

	out := RenderPreview(preview)
	assert.Contains(t, out, "12.50")
	assert.Contains(t, out, "Deli")
	assert.Contains(t, out, model.UnknownMarker)
	assert.Contains(t, out, "80%")
}

func TestFormatTransaction(t *testing.T) {
	txn := testutil.NewTransaction("guest").
		Amount(42).
		Category(model.CategoryTransport).
		On("2024-03-04").
		Merchant("Metro").
		Description("monthly pass").
		Build()

	line := FormatTransaction(txn)
	assert.Contains(t, line, "2024-03-04")
	assert.Contains(t, line, "42.00 USD")
	assert.Contains(t, line, "Transport")
	assert.Contains(t, line, "Metro")
	assert.Contains(t, line, "monthly pass")
}

func TestFormatMessages(t *testing.T) {
	assert.Contains(t, FormatSuccess("done"), "✓ done")
	assert.Contains(t, FormatError("bad"), "✗ bad")
	assert.Contains(t, FormatTitle("Summary"), "Summary")
	assert.Contains(t, RenderBox("Title", "body"), "body")
}
