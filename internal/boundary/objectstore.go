package boundary

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/streamsplice/junction/internal/xerrors"
)

// ObjectStore is the object-store adapter contract (§4.10). URLs use
// an <scheme>://<bucket>/<key> form; Download/Upload/Exists all
// operate on that shape.
type ObjectStore interface {
	Download(ctx context.Context, url, localPath string) error
	Upload(ctx context.Context, localPath, key string) (url string, err error)
	Exists(ctx context.Context, url string) (bool, error)
}

var urlPattern = regexp.MustCompile(`^([a-zA-Z0-9]+)://([^/]+)/(.*)$`)

// ParseObjectURL splits an <scheme>://<bucket>/<key> URL into its
// parts.
func ParseObjectURL(url string) (scheme, bucket, key string, err error) {
	m := urlPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", "", xerrors.NewInvalidParameters("url", "not a valid <scheme>://<bucket>/<key> object url", url)
	}
	return m[1], m[2], m[3], nil
}

// LocalStore is a filesystem-backed ObjectStore rooted at a directory,
// used as the default/dev backend and by tests in place of a real
// object-storage endpoint. URLs take the form file://<bucket>/<key>,
// where <bucket> maps to a subdirectory of Root.
type LocalStore struct {
	Root string
}

// NewLocalStore returns a LocalStore rooted at root, creating it if
// absent.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create local object store root: %w", err)
	}
	return &LocalStore{Root: root}, nil
}

func (l *LocalStore) resolve(bucket, key string) string {
	return filepath.Join(l.Root, bucket, filepath.FromSlash(key))
}

// Download copies the object at url to localPath.
func (l *LocalStore) Download(ctx context.Context, url, localPath string) error {
	_, bucket, key, err := ParseObjectURL(url)
	if err != nil {
		return err
	}
	src := l.resolve(bucket, key)
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create download parent dir: %w", err)
	}
	return copyFile(src, localPath)
}

// Upload copies localPath into the store under key, returning the
// resulting file:// URL. The "bucket" segment of the returned URL is
// always "local".
func (l *LocalStore) Upload(ctx context.Context, localPath, key string) (string, error) {
	dest := l.resolve("local", key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create upload parent dir: %w", err)
	}
	if err := copyFile(localPath, dest); err != nil {
		return "", err
	}
	return fmt.Sprintf("file://local/%s", key), nil
}

// Exists reports whether the object at url is present.
func (l *LocalStore) Exists(ctx context.Context, url string) (bool, error) {
	_, bucket, key, err := ParseObjectURL(url)
	if err != nil {
		return false, err
	}
	_, statErr := os.Stat(l.resolve(bucket, key))
	if statErr == nil {
		return true, nil
	}
	if os.IsNotExist(statErr) {
		return false, nil
	}
	return false, statErr
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return &xerrors.SourceMissingError{Path: src}
		}
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
