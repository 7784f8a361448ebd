package models

import "testing"

func TestRuleSourceIdentifier(t *testing.T) {
	tests := []struct {
		name   string
		source RuleSource
		want   string
	}{
		{"user source", RuleSource{User: "alice"}, "alice"},
		{"ip source", RuleSource{IP: "10.0.0.1"}, "10.0.0.1"},
		{"user wins when both set", RuleSource{User: "alice", IP: "10.0.0.1"}, "alice"},
		// Defensive sentinel: validation and indexing are decoupled
		// steps, so a sourceless rule must still produce a key.
		{"neither set", RuleSource{}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.source.Identifier(); got != tt.want {
				t.Fatalf("Identifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNameEquals(t *testing.T) {
	if !NameEquals("Block FB", "block fb") {
		t.Fatal("name comparison must be case-insensitive")
	}
	if !NameEquals(" Block FB ", "Block FB") {
		t.Fatal("name comparison must ignore surrounding whitespace")
	}
	if NameEquals("Block FB", "Block YT") {
		t.Fatal("different names must not match")
	}
}
