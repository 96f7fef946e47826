// Package rag holds the pieces of the retrieval-augmented answering
// pipeline. Each stage lives in its own subpackage and operates on the
// shared workflow state.
package rag

// User-facing messages shared across stages. Memory write also matches
// on the "찾을 수 없습니다" messages to skip persisting failed turns.
const (
	NonMedicalGuidance = "의학과 관련된 질문이 아닙니다. 의학과 관련된 질문을 주세요."
	NoInfoFound        = "죄송합니다. 관련 정보를 찾을 수 없습니다."
	NoDocumentsFound   = "죄송합니다. 관련 문서를 찾을 수 없습니다."
)
