package dto

type IngestChunkDTO struct {
	ChunkId string `json:"chunk_id" validate:"required,max=128"`
	Content string `json:"content" validate:"required"`
	Source  string `json:"source,omitempty"`
}

type IngestDocumentsRequest struct {
	Chunks []IngestChunkDTO `json:"chunks" validate:"required,min=1,max=200,dive"`
}

type IngestDocumentsResponse struct {
	Ingested int `json:"ingested"`
}
