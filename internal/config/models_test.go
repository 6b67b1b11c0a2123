package config

import "testing"

func TestDefaultModelCatalog(t *testing.T) {
	catalog := DefaultModelCatalog()

	models := catalog.GetAvailableModels()
	if len(models) != 5 {
		t.Fatalf("GetAvailableModels() returned %d models, want 5", len(models))
	}

	for _, m := range models {
		if m.ID == "" || m.Label == "" {
			t.Errorf("model %+v has empty id or label", m)
		}
	}
}

func TestModelCatalog_IsValidModel(t *testing.T) {
	catalog := DefaultModelCatalog()

	tests := []struct {
		modelID string
		want    bool
	}{
		{"gpt-4o", true},
		{"gpt-3.5-turbo", true},
		{"grok-2", true},
		{"grok-2-latest", true},
		{"gpt-5", true},
		{"", false},
		{"gpt-4o-mini", false},
		{"claude-3", false},
	}

	for _, tt := range tests {
		if got := catalog.IsValidModel(tt.modelID); got != tt.want {
			t.Errorf("IsValidModel(%q) = %v, want %v", tt.modelID, got, tt.want)
		}
	}
}

func TestModelCatalog_GetDefaultModel(t *testing.T) {
	catalog := DefaultModelCatalog()

	if got := catalog.GetDefaultModel(); got != "gpt-4o" {
		t.Errorf("GetDefaultModel() = %q, want %q", got, "gpt-4o")
	}
	if !catalog.IsValidModel(catalog.GetDefaultModel()) {
		t.Error("GetDefaultModel() returned a model not in the catalog")
	}
}
