package output

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterBasicOutput(t *testing.T) {
	result := CaptureOutput(func(p *Printer) {
		p.Print("hello ")
		p.Println("world")
		p.Printf("number: %d", 42)
	})
	assert.Equal(t, "hello world\nnumber: 42", result)
}

func TestPrinterSemanticOutput(t *testing.T) {
	buffer := NewCaptureBuffer()
	printer := NewPrinter(WithWriter(buffer), TestMode())

	printer.Info("information")
	printer.Success("completed")
	printer.Warning("careful")
	printer.Error("failed")
	printer.Emit(SemanticAssistant, "label")

	assert.Equal(t, []string{
		"ℹ information",
		"✓ completed",
		"⚠ careful",
		"✗ failed",
		"label",
	}, buffer.Lines())
}

func TestPrinterStyleProviders(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		options   []Option
		want      string
		style     string
	}{
		{name: "available provider styles", available: true, want: "[info]msg[/info]\n", style: "[user]you[/user]"},
		{name: "unavailable provider falls back", available: false, want: "ℹ msg\n", style: "you"},
		{name: "plain mode ignores provider", available: true, options: []Option{PlainText()}, want: "ℹ msg\n", style: "you"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buffer := NewCaptureBuffer()
			provider := NewMockStyleProvider()
			provider.SetAvailable(tt.available)

			printer := NewPrinter(append([]Option{WithWriter(buffer), WithStyles(provider)}, tt.options...)...)
			printer.Info("msg")

			assert.Equal(t, tt.want, buffer.String())
			assert.Equal(t, tt.style, printer.Style(SemanticUser, "you"))
			assert.Equal(t, tt.style != "you", printer.IsStylable())
		})
	}
}

func TestPrinterJSONMode(t *testing.T) {
	buffer := NewCaptureBuffer()
	printer := NewPrinter(WithWriter(buffer), JSON())

	printer.Warning("careful")
	assert.True(t, printer.Record(map[string]int{"n": 1}))
	assert.Equal(t, []string{
		`{"message":"careful","type":"warning"}`,
		`{"n":1}`,
	}, buffer.Lines())

	plain := NewPrinter(WithWriter(NewCaptureBuffer()))
	assert.False(t, plain.Record("ignored"))
}

func TestPrinterSilentAndPrefix(t *testing.T) {
	buffer := NewCaptureBuffer()
	NewPrinter(WithWriter(buffer), Silent()).Error("hidden")
	assert.Empty(t, buffer.String())

	NewPrinter(WithWriter(buffer), TestMode(), WithPrefix("chat: ")).Println("hi")
	assert.Equal(t, "chat: hi\n", buffer.String())
}

func TestPrinterConcurrentWrites(t *testing.T) {
	buffer := NewCaptureBuffer()
	printer := NewPrinter(WithWriter(buffer), TestMode())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			printer.Println("line")
		}()
	}
	wg.Wait()

	lines := buffer.Lines()
	require.Len(t, lines, 50)
	for _, line := range lines {
		assert.Equal(t, "line", line)
	}
}

func TestCaptureBuffer(t *testing.T) {
	buffer := NewCaptureBuffer()
	assert.Equal(t, []string{}, buffer.Lines())

	_, err := buffer.Write([]byte("a\nb\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, buffer.Lines())

	buffer.Reset()
	assert.Empty(t, buffer.String())
}

func TestLipglossStyleProvider(t *testing.T) {
	provider := NewLipglossStyleProvider()
	assert.Contains(t, provider.GetStyle(SemanticSuccess).Render("done"), "done")
	assert.Equal(t, "plain", provider.GetStyle(SemanticType("unknown")).Render("plain"))
}
