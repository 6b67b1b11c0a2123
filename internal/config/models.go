package config

// Model represents one selectable chat model
type Model struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ModelCatalog holds the enumerated set of models users can pick from.
// The catalog is fixed at build time; it is not loaded or fetched.
type ModelCatalog struct {
	models []Model
}

// DefaultModelCatalog returns the built-in model catalog
func DefaultModelCatalog() *ModelCatalog {
	return &ModelCatalog{
		models: []Model{
			{ID: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo"},
			{ID: "gpt-4o", Label: "GPT-4"},
			{ID: "gpt-5", Label: "GPT-5"},
			{ID: "grok-2", Label: "Grok 3"},
			{ID: "grok-2-latest", Label: "Grok 4"},
		},
	}
}

// GetAvailableModels returns the list of selectable models
func (mc *ModelCatalog) GetAvailableModels() []Model {
	return mc.models
}

// IsValidModel checks if a model ID is in the catalog
func (mc *ModelCatalog) IsValidModel(modelID string) bool {
	for _, model := range mc.models {
		if model.ID == modelID {
			return true
		}
	}
	return false
}

// GetDefaultModel returns the catalog's default model ID
func (mc *ModelCatalog) GetDefaultModel() string {
	// Second entry (GPT-4) is the default selection
	if len(mc.models) > 1 {
		return mc.models[1].ID
	}
	if len(mc.models) > 0 {
		return mc.models[0].ID
	}
	return "gpt-4o"
}
