package documents

// Payload keys written with every indexed chunk.
const (
	PayloadDocumentID  = "document_id"
	PayloadFilename    = "filename"
	PayloadMatterID    = "matter_id"
	PayloadSensitivity = "sensitivity"
	PayloadChunkIndex  = "chunk_index"
	PayloadTextSnippet = "text_snippet"
)

// VectorChunk is one indexed slice of a document. Text is plaintext by
// necessity for semantic search; it is reachable only through the
// sensitivity-filtered retrieval path.
type VectorChunk struct {
	ID          string
	DocumentID  string
	Filename    string
	MatterID    string
	Sensitivity string
	ChunkIndex  int
	Text        string
	Vector      []float32
}

func (c VectorChunk) Payload() map[string]any {
	return map[string]any{
		PayloadDocumentID:  c.DocumentID,
		PayloadFilename:    c.Filename,
		PayloadMatterID:    c.MatterID,
		PayloadSensitivity: c.Sensitivity,
		PayloadChunkIndex:  c.ChunkIndex,
		PayloadTextSnippet: c.Text,
	}
}
