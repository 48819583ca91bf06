package remote

// Kind-specific payload schemas. Only this package knows the remote shapes;
// the engine carries them as opaque bytes.

// RowPayload is one vocabulary row inside a table.
type RowPayload struct {
	RowID      string   `json:"rowId"`
	TableID    string   `json:"tableId"`
	Term       string   `json:"term,omitempty"`
	Definition string   `json:"definition,omitempty"`
	Example    string   `json:"example,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// TablePayload is a container of rows, optionally nested in a folder.
type TablePayload struct {
	TableID  string `json:"tableId"`
	Name     string `json:"name,omitempty"`
	FolderID string `json:"folderId,omitempty"`
}

// FolderPayload is a container of tables.
type FolderPayload struct {
	FolderID string `json:"folderId"`
	Name     string `json:"name,omitempty"`
}

// StatsPayload records the outcome of one study session.
type StatsPayload struct {
	SessionID string         `json:"sessionId"`
	TableID   string         `json:"tableId"`
	StartedAt int64          `json:"startedAt"`
	Results   map[string]int `json:"results,omitempty"`
}

// SettingsPayload is the user's app settings blob; last write wins remotely.
type SettingsPayload struct {
	Settings map[string]any `json:"settings"`
}
