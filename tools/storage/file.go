package storage

import (
	"context"
	"os"
)

// FileFoodState loads the food knowledge base from a local file.
type FileFoodState struct {
	FilePath string
}

func NewFileFoodState(filePath string) *FileFoodState {
	return &FileFoodState{FilePath: filePath}
}

func (f *FileFoodState) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.FilePath)
}
