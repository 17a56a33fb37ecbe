package deobfuscator

import (
	"github.com/IvanShishkin/umbreon/pkg/models"
)

// StreamProcessor feeds content through the engine in fixed-size
// segments: bytes are buffered until the chunk threshold is reached,
// then the full pipeline runs on that segment. Chunk boundaries do not
// align with technique boundaries, so a match straddling two segments
// can go undetected; the scan is best-effort per segment.
type StreamProcessor struct {
	engine    *Engine
	chunkSize int
	buffer    []byte
	offset    int
}

// NewStreamProcessor creates a stream processor over engine. The chunk
// size comes from the engine configuration.
func NewStreamProcessor(engine *Engine) *StreamProcessor {
	return &StreamProcessor{
		engine:    engine,
		chunkSize: engine.Config().ChunkSize,
	}
}

// Write buffers data and emits one chunk result per filled segment
func (s *StreamProcessor) Write(data []byte) []models.StreamingChunk {
	s.buffer = append(s.buffer, data...)

	var chunks []models.StreamingChunk
	for len(s.buffer) >= s.chunkSize {
		segment := s.buffer[:s.chunkSize]
		chunks = append(chunks, s.process(segment))
		s.buffer = s.buffer[s.chunkSize:]
		s.offset += s.chunkSize
	}
	return chunks
}

// Flush processes whatever remains in the buffer and resets the stream
func (s *StreamProcessor) Flush() *models.StreamingChunk {
	if len(s.buffer) == 0 {
		return nil
	}

	chunk := s.process(s.buffer)
	s.offset += len(s.buffer)
	s.buffer = nil
	return &chunk
}

func (s *StreamProcessor) process(segment []byte) models.StreamingChunk {
	chunk := models.StreamingChunk{
		Offset: s.offset,
		Size:   len(segment),
	}

	result, err := s.engine.Deobfuscate(string(segment))
	if err != nil {
		chunk.Error = err.Error()
		return chunk
	}
	chunk.Result = result
	return chunk
}
