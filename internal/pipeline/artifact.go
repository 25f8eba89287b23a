package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"sync"
)

// Artifact is a file backing a generated result.
type Artifact interface {
	Path() string
	// Release deletes the file. It is safe to call more than once.
	Release() error
}

// ArtifactStore creates artifacts from encoded audio.
type ArtifactStore interface {
	Create(data []byte) (Artifact, error)
}

// TempStore writes artifacts as prosodic-*.wav files in Dir, or the system
// temporary directory when Dir is empty.
type TempStore struct {
	Dir string
}

// NewTempStore creates a store rooted at dir.
func NewTempStore(dir string) *TempStore {
	return &TempStore{Dir: dir}
}

// Create writes data to a new temporary file.
func (s *TempStore) Create(data []byte) (Artifact, error) {
	f, err := os.CreateTemp(s.Dir, "prosodic-*.wav")
	if err != nil {
		return nil, errors.Join(ErrIOFailure, err)
	}

	_, werr := f.Write(data)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(f.Name())
		return nil, errors.Join(ErrIOFailure, err)
	}

	return &tempFile{path: f.Name()}, nil
}

type tempFile struct {
	path string
	once sync.Once
	err  error
}

func (t *tempFile) Path() string {
	return t.path
}

func (t *tempFile) Release() error {
	t.once.Do(func() {
		if err := os.Remove(t.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			t.err = errors.Join(ErrIOFailure, err)
		}
	})
	return t.err
}
