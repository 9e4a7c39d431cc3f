package index

import (
	"fmt"

	"docvault/internal/chunker"
	"docvault/internal/source"
	"docvault/internal/store"
)

// records is the chunk set of one run before embedding.
type records struct {
	ids   []string
	texts []string
	metas []store.Metadata
	files int
}

// chunkDocuments splits every document and assigns ids and metadata, keeping
// document order then chunk order.
func chunkDocuments(docs []source.Document, size, overlap int, onFile func(doc source.Document, chunks int)) (*records, error) {
	r := &records{files: len(docs)}
	for _, doc := range docs {
		chunks, err := chunker.Split(doc.Content, size, overlap)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		for i, c := range chunks {
			r.ids = append(r.ids, chunker.MakeID(c, doc.Filename, i))
			r.texts = append(r.texts, c)
			r.metas = append(r.metas, store.Metadata{
				Filename:    doc.Filename,
				Filepath:    doc.Filepath,
				ChunkIndex:  i,
				TotalChunks: len(chunks),
			})
		}
		if onFile != nil {
			onFile(doc, len(chunks))
		}
	}
	return r, nil
}

func (r *records) batch(vecs [][]float32) store.Batch {
	return store.Batch{
		IDs:        r.ids,
		Documents:  r.texts,
		Metadatas:  r.metas,
		Embeddings: vecs,
	}
}
