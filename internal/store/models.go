package store

// Metadata is stored alongside every chunk record.
type Metadata struct {
	Filename    string `json:"filename"`
	Filepath    string `json:"filepath"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// Collection identifies a named record set in a vector store.
type Collection struct {
	ID   string
	Name string
}

// Batch is a bulk write. All four slices are aligned by position.
type Batch struct {
	IDs        []string
	Documents  []string
	Metadatas  []Metadata
	Embeddings [][]float32
}

// Len returns the number of records in the batch.
func (b Batch) Len() int { return len(b.IDs) }

// GetResult holds every stored record of a collection, aligned by position.
type GetResult struct {
	IDs       []string
	Documents []string
	Metadatas []Metadata
}
