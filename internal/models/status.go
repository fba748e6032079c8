package models

// Status describes the knowledge base a server or CLI is answering from.
type Status struct {
	Chunks         int            `json:"chunks"`
	Records        uint64         `json:"records"`
	StoreType      string         `json:"store_type"`
	EmbeddingModel string         `json:"embedding_model"`
	Chunking       ChunkingStatus `json:"chunking"`
	K              int            `json:"k"`
	DiskUsageBytes int64          `json:"disk_usage_bytes"`
	Rebuilding     bool           `json:"rebuilding"`
}

// ChunkingStatus is the chunker configuration the store is expected to be built with.
type ChunkingStatus struct {
	Mode         string `json:"mode"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}
