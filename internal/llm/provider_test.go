package llm

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
)

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	if _, err := NewClient(context.Background(), Provider("mystery"), Settings{APIKey: "k"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	for _, p := range []Provider{ProviderOpenAI, ProviderAnthropic, ProviderArk} {
		if _, err := NewClient(context.Background(), p, Settings{}); err == nil {
			t.Errorf("%s: expected missing key error", p)
		}
	}
}

func TestNewClientDefaultsModel(t *testing.T) {
	c, err := NewClient(context.Background(), ProviderOpenAI, Settings{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient err: %v", err)
	}
	if c.Name() != "openai" || c.Model() != defaultOpenAIModel {
		t.Fatalf("unexpected client %s/%s", c.Name(), c.Model())
	}
}

func TestGeminiHistory(t *testing.T) {
	history, last := geminiHistory([]ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "what do you build?"},
	})

	if last != "what do you build?" {
		t.Fatalf("unexpected last message %q", last)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "model" {
		t.Fatalf("unexpected roles %s/%s", history[0].Role, history[1].Role)
	}
	if text, ok := history[1].Parts[0].(genai.Text); !ok || string(text) != "hello" {
		t.Fatalf("unexpected part %#v", history[1].Parts[0])
	}
}

func TestGeminiHistoryEndingOnAssistant(t *testing.T) {
	history, last := geminiHistory([]ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "partial"},
	})
	if last != continuePrompt || len(history) != 2 {
		t.Fatalf("expected continuation prompt after assistant turn, got %q with %d entries", last, len(history))
	}
}

func TestArkMessages(t *testing.T) {
	msgs := arkMessages("be brief", []ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})

	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	want := []schema.RoleType{schema.System, schema.User, schema.Assistant}
	for i, m := range msgs {
		if m.Role != want[i] {
			t.Fatalf("message %d: role %s, want %s", i, m.Role, want[i])
		}
	}

	if got := arkMessages("", nil); len(got) != 0 {
		t.Fatalf("expected no messages, got %d", len(got))
	}
}
