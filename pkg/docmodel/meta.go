package docmodel

// WhitelistEntry restricts reference resolution and task planning to a
// named subset of files.
type WhitelistEntry struct {
	FilePath string `json:"file_path"`
	IDText   string `json:"id_text"`
}

// DeletedItem records a symbol present in a prior snapshot but absent
// from the freshly-built tree.
type DeletedItem struct {
	QualifiedName string `json:"qualified_name"`
	Kind          Kind   `json:"kind"`
}

// MetaInfo is the root container for one run's complete state.
type MetaInfo struct {
	RepoRootPath    string
	DocumentVersion string
	Tree            *DocItem

	Whitelist []WhitelistEntry

	// FakeFileReflection maps a working-tree path to the path holding
	// its phantom-swapped ("_latest_version") sibling, populated by
	// the phantom-file manager (C3) for the duration of one run.
	FakeFileReflection map[string]string
	JumpFiles          []string

	DeletedItemsFromOlderMeta []DeletedItem

	InGenerationProcess bool
}

// NewMetaInfo builds a MetaInfo from parser output for a first run.
func NewMetaInfo(repoRootPath string, files map[string][]Record) (*MetaInfo, error) {
	tree, err := BuildTree(repoRootPath, files)
	if err != nil {
		return nil, err
	}
	return &MetaInfo{
		RepoRootPath:       repoRootPath,
		Tree:               tree,
		FakeFileReflection: make(map[string]string),
		JumpFiles:          nil,
	}, nil
}
