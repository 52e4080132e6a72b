package port

// FileWalker lists dataset files below a root directory.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
	Match(relPath string) bool
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}
