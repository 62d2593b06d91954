package types

// WorkerSpec describes a worker as it appears in a definition file or a
// POST /workers body. Params are handed to the backend loader untouched.
type WorkerSpec struct {
	// Human-friendly name.
	// example: tinyllama-chat
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty" example:"tinyllama-chat"`
	// Backend type the worker is spawned with.
	// example: llamacpp
	Backend string `json:"backend" yaml:"backend" toml:"backend" example:"llamacpp"`
	// Optional loader variant of the backend; empty selects the default loader.
	// example: _default
	Loader string `json:"loader,omitempty" yaml:"loader,omitempty" toml:"loader,omitempty" example:"_default"`
	// Backend-specific parameters (model path, API key, sampling options).
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
	// Start the worker right after registration (definition files only).
	Autostart bool `json:"autostart,omitempty" yaml:"autostart,omitempty" toml:"autostart,omitempty"`
}
