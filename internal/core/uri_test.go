package core

import "testing"

func TestParseModelURI(t *testing.T) {
	t.Run("SchemeAndName", func(t *testing.T) {
		u, err := ParseModelURI("ollama://llama3")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Scheme != "ollama" {
			t.Errorf("expected scheme ollama, got %s", u.Scheme)
		}
		if u.ModelName != "llama3" {
			t.Errorf("expected model llama3, got %s", u.ModelName)
		}
		if len(u.Params) != 0 {
			t.Errorf("expected no params, got %v", u.Params)
		}
	})

	t.Run("QueryParams", func(t *testing.T) {
		u, err := ParseModelURI("azureopenai://gpt-4o?api-version=2024-02-01&region=eastus")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.APIVersion() != "2024-02-01" {
			t.Errorf("expected api-version 2024-02-01, got %s", u.APIVersion())
		}
		if u.Params["region"] != "eastus" {
			t.Errorf("unknown query keys must be preserved, got %v", u.Params)
		}
	})

	t.Run("DuplicateKeysKeepLast", func(t *testing.T) {
		u, err := ParseModelURI("openai://gpt-4?k=a&k=b")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.Params["k"] != "b" {
			t.Errorf("expected last occurrence to win, got %s", u.Params["k"])
		}
	})

	t.Run("SlashInModelName", func(t *testing.T) {
		u, err := ParseModelURI("huggingface://sentence-transformers/all-MiniLM-L6-v2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.ModelName != "sentence-transformers/all-MiniLM-L6-v2" {
			t.Errorf("got %s", u.ModelName)
		}
	})

	t.Run("MissingScheme", func(t *testing.T) {
		_, err := ParseModelURI("gpt-4")
		if !IsErrorType(err, ErrorTypeMalformedURI) {
			t.Fatalf("expected malformed URI error, got %v", err)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		for _, uri := range []string{
			"openai://gpt-4o-mini",
			"ollama://mistral?foo=bar",
			"anthropic://claude-3-haiku-20240307",
		} {
			u, err := ParseModelURI(uri)
			if err != nil {
				t.Fatalf("parse %q: %v", uri, err)
			}
			back, err := ParseModelURI(u.String())
			if err != nil {
				t.Fatalf("reparse %q: %v", u.String(), err)
			}
			if back.Scheme != u.Scheme || back.ModelName != u.ModelName {
				t.Errorf("round trip changed %q into %q", uri, back.String())
			}
		}
	})
}

func TestStripLatestTag(t *testing.T) {
	if got := StripLatestTag("llama3:latest"); got != "llama3" {
		t.Errorf("expected llama3, got %s", got)
	}
	if got := StripLatestTag("llama3:8b"); got != "llama3:8b" {
		t.Errorf("other tags must be preserved, got %s", got)
	}
	if got := StripLatestTag("llama3"); got != "llama3" {
		t.Errorf("untagged names unchanged, got %s", got)
	}
}

func TestAgentURI(t *testing.T) {
	uri := AgentURI("abc-123")
	if uri != "aif://agents/abc-123" {
		t.Errorf("got %s", uri)
	}
	if !IsAgentURI(uri) {
		t.Error("expected IsAgentURI to match")
	}
	if IsAgentURI("openai://gpt-4") {
		t.Error("bare model URIs are not agent URIs")
	}
}

func TestStrategyFor(t *testing.T) {
	if StrategyFor(0) != StrategyStreaming {
		t.Error("zero bound functions must stream")
	}
	for _, n := range []int{1, 2, 5} {
		if StrategyFor(n) != StrategyInvokeThenDispatch {
			t.Errorf("%d bound functions must invoke-then-dispatch", n)
		}
	}
}
