package types

// Model describes a discoverable model file on disk.
type Model struct {
	// Stable identifier, derived from the filename.
	ID string `json:"id"`
	// Human-friendly name.
	Name string `json:"name"`
	// Absolute path to the model file.
	Path string `json:"path"`
}
