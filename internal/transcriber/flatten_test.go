package transcriber

import (
	"encoding/json"
	"testing"
)

func TestFlattenPreservesEmissionOrder(t *testing.T) {
	tr := Transcript{
		Language: "en",
		Segments: []Segment{
			{Words: []Word{
				{Word: " hello", Start: 0.11111, End: 0.52},
				{Word: "world ", Start: 0.52, End: 0.98765449},
			}},
			{Words: []Word{
				{Word: "  good", Start: 1.2, End: 1.6},
				{Word: "bye", Start: 1.6, End: 2.0},
			}},
		},
	}

	words := Flatten(tr)
	if len(words) != 4 {
		t.Fatalf("expected 4 words, got %d", len(words))
	}
	expected := []string{"hello", "world", "good", "bye"}
	for i, want := range expected {
		if words[i].Word != want {
			t.Fatalf("word %d: expected %q, got %q", i, want, words[i].Word)
		}
	}
	if words[0].Start != 0.1111 {
		t.Fatalf("expected start rounded to 0.1111, got %v", words[0].Start)
	}
	if words[1].End != 0.9877 {
		t.Fatalf("expected end rounded to 0.9877, got %v", words[1].End)
	}
}

func TestFlattenEmptyTranscript(t *testing.T) {
	words := Flatten(Transcript{Language: "en"})
	if words == nil {
		t.Fatal("expected non-nil slice for empty transcript")
	}
	data, err := json.Marshal(words)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty array, got %s", data)
	}
}

func TestFlattenKeepsEmptyTokens(t *testing.T) {
	tr := Transcript{Segments: []Segment{
		{Words: []Word{
			{Word: " .", Start: 0, End: 0.1},
			{Word: "   ", Start: 0.1, End: 0.2},
		}},
	}}
	words := Flatten(tr)
	if len(words) != 2 {
		t.Fatalf("expected punctuation and empty tokens kept, got %d words", len(words))
	}
	if words[0].Word != "." || words[1].Word != "" {
		t.Fatalf("unexpected tokens: %q %q", words[0].Word, words[1].Word)
	}
}

func TestNewRequestDefaults(t *testing.T) {
	req := NewRequest("sample.wav", "")
	if req.ModelSize != "base" {
		t.Fatalf("expected default model size base, got %q", req.ModelSize)
	}
	if req.Device != "cpu" || req.ComputeType != "int8" {
		t.Fatalf("expected cpu/int8 policy, got %s/%s", req.Device, req.ComputeType)
	}

	req = NewRequest("sample.wav", "small")
	if req.ModelSize != "small" {
		t.Fatalf("expected explicit model size kept, got %q", req.ModelSize)
	}
}
