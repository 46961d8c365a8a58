package governance

import (
	"os"
	"path/filepath"
	"testing"
)

func TestComplexityClassification(t *testing.T) {
	c := NewClassifier()
	cases := []struct {
		actionType string
		want       int
	}{
		{"search", 1},
		{"list_contacts", 1},
		{"summarize_thread", 1},
		{"analyze_pipeline", 2},
		{"draft_reply", 2},
		{"generate_report", 2},
		{"update_deal", 3},
		{"send_email", 3},
		{"create_invoice", 3},
		{"delete_contact", 4},
		{"deploy_workflow", 4},
		{"payment_run", 4},
		// Highest matching keyword wins: "get" matches but "delete" outranks it.
		{"get_then_delete", 4},
	}
	for _, tc := range cases {
		got, err := c.Complexity(tc.actionType)
		if err != nil {
			t.Fatalf("Complexity(%q): %v", tc.actionType, err)
		}
		if got != tc.want {
			t.Errorf("Complexity(%q) = %d, want %d", tc.actionType, got, tc.want)
		}
	}
}

func TestStrictModeRejectsUnknownActions(t *testing.T) {
	c := NewClassifier()
	c.Strict = true
	if _, err := c.Complexity("frobnicate"); err == nil {
		t.Fatal("strict classifier must reject unknown action types")
	}

	c.Strict = false
	lvl, err := c.Complexity("frobnicate")
	if err != nil || lvl != 1 {
		t.Fatalf("lenient classifier: got (%d, %v), want (1, nil)", lvl, err)
	}
}

func TestLoadClassifierValidatesConfig(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "actions.json")
	if err := os.WriteFile(good, []byte(`{"search": 1, "purge": 4}`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadClassifier(good)
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if lvl, _ := c.Complexity("purge_records"); lvl != 4 {
		t.Errorf("loaded table not applied, purge_records = %d", lvl)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"search": 9}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClassifier(bad); err == nil {
		t.Fatal("complexity level out of [1,4] must fail at load time")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClassifier(empty); err == nil {
		t.Fatal("empty table must fail at load time")
	}
}
