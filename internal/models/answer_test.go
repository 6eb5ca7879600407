package models

import (
	"reflect"
	"testing"
)

func TestAnswer_SourceFiles(t *testing.T) {
	a := &Answer{Sources: []Chunk{
		{SourcePath: "data/a.md", ChunkIndex: 0},
		{SourcePath: "data/b.pdf", ChunkIndex: 3},
		{SourcePath: "data/a.md", ChunkIndex: 2},
	}}
	got := a.SourceFiles()
	want := []string{"data/a.md", "data/b.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SourceFiles() = %v, want %v", got, want)
	}
	if len(a.Sources) != 3 {
		t.Error("SourceFiles must not modify Sources")
	}
}

func TestChunks(t *testing.T) {
	hits := []ScoredChunk{
		{Chunk: Chunk{ID: "x"}, Score: 0.9},
		{Chunk: Chunk{ID: "y"}, Score: 0.5},
	}
	got := Chunks(hits)
	if len(got) != 2 || got[0].ID != "x" || got[1].ID != "y" {
		t.Errorf("Chunks() = %+v", got)
	}
}
