package models

// UnknownHeading is the heading metadata of chunks cut from unstructured text.
const UnknownHeading = "unknown"

// ChunkMetadata is the heading context and position carried by a chunk.
type ChunkMetadata struct {
	Article       string `json:"article"`
	Section       string `json:"section"`
	SequenceIndex int    `json:"sequence_index"`
	// Source is the path of the document the chunk was cut from.
	Source string `json:"source,omitempty"`
	// RecordIndex is the position of the source record, or -1 for raw text.
	RecordIndex int `json:"record_index"`
	// Overlap is the number of leading characters repeated from the previous chunk.
	Overlap int `json:"overlap"`
}

// Chunk is a bounded-size span of text prepared for embedding.
type Chunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// IndexedChunk is a chunk together with its embedding, as handed to a vector store.
type IndexedChunk struct {
	Chunk
	Vector []float32 `json:"-"`
}

// ScoredChunk is a chunk returned by similarity search, most similar first.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}
