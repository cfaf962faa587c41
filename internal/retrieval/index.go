// Package retrieval wraps the prebuilt vector index artifact produced by the
// offline ingestion job: a JSON vectors file and a positionally aligned JSONL
// metadata log. The index is read-only at query time and safe for concurrent
// searches.
package retrieval

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"
)

// Chunk is one retrieved document chunk with its similarity score.
// Produced transiently per query; never persisted.
type Chunk struct {
	Document string  `json:"document"`
	Page     int     `json:"page"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

type chunkMeta struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
	Text     string `json:"text"`
	ChunkID  string `json:"chunk_id"`
}

// Index holds the loaded artifact. A zero-value Index is a valid empty index:
// Search on it returns nil, which callers treat as a retrieval miss.
type Index struct {
	metas   []chunkMeta
	vectors [][]float32
	norms   []float64
}

// Load reads the artifact from disk. A missing artifact yields an empty index
// and no error; a corrupt artifact yields an empty index plus the parse error
// so the caller can log it, while searches still degrade to misses.
func Load(vectorsPath, metadataPath string) (*Index, error) {
	idx := &Index{}

	vecData, err := os.ReadFile(vectorsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return idx, fmt.Errorf("read vectors artifact: %w", err)
	}
	var vectors [][]float32
	if err := json.Unmarshal(vecData, &vectors); err != nil {
		return idx, fmt.Errorf("decode vectors artifact: %w", err)
	}

	metaFile, err := os.Open(metadataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return idx, fmt.Errorf("read metadata artifact: %w", err)
	}
	defer metaFile.Close()

	var metas []chunkMeta
	scanner := bufio.NewScanner(metaFile)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m chunkMeta
		if err := json.Unmarshal(line, &m); err != nil {
			return &Index{}, fmt.Errorf("decode metadata line %d: %w", len(metas)+1, err)
		}
		metas = append(metas, m)
	}
	if err := scanner.Err(); err != nil {
		return &Index{}, fmt.Errorf("scan metadata artifact: %w", err)
	}

	if len(metas) != len(vectors) {
		return &Index{}, fmt.Errorf("artifact mismatch: %d vectors, %d metadata entries", len(vectors), len(metas))
	}

	idx.metas = metas
	idx.vectors = vectors
	idx.norms = make([]float64, len(vectors))
	for i, v := range vectors {
		idx.norms[i] = norm(v)
	}
	return idx, nil
}

// Len reports the number of indexed chunks, used for capability probing.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.metas)
}

// Search returns the top-k chunks by cosine similarity, highest first.
// Side-effect-free; an empty index or empty query returns nil, never an error.
func (i *Index) Search(query []float32, k int) []Chunk {
	if i == nil || len(i.metas) == 0 || len(query) == 0 || k <= 0 {
		return nil
	}
	qNorm := norm(query)
	if qNorm == 0 {
		return nil
	}

	out := make([]Chunk, 0, len(i.metas))
	for idx, v := range i.vectors {
		if len(v) != len(query) || i.norms[idx] == 0 {
			continue
		}
		score := dot(query, v) / (qNorm * i.norms[idx])
		m := i.metas[idx]
		out = append(out, Chunk{
			Document: m.Document,
			Page:     m.Page,
			Text:     m.Text,
			Score:    score,
		})
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
