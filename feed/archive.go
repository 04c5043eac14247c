package feed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// openData opens a bar dataset for reading, transparently handling
// compressed archives:
//
//	*.csv      read as-is
//	*.csv.xz   decompressed on the fly
//	*.zip      extracted to a temp dir; must contain exactly one .csv
//
// The returned closer releases the underlying file and, for zips, the
// extraction dir.
func openData(path string) (io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return &xzReadCloser{r: xr, f: f}, nil

	case ".zip":
		return openZip(path)

	default:
		return os.Open(path)
	}
}

type xzReadCloser struct {
	r io.Reader
	f *os.File
}

func (x *xzReadCloser) Read(p []byte) (int, error) { return x.r.Read(p) }
func (x *xzReadCloser) Close() error               { return x.f.Close() }

func openZip(path string) (io.ReadCloser, error) {
	dir, err := os.MkdirTemp("", "tradeguard-zip-")
	if err != nil {
		return nil, err
	}
	if err := unzip.Extract(path, dir); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err == nil && len(matches) == 0 {
		// Some archives nest a directory.
		matches, err = filepath.Glob(filepath.Join(dir, "*", "*.csv"))
	}
	if err != nil || len(matches) != 1 {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("archive %s: want exactly one .csv, found %d", path, len(matches))
	}

	f, err := os.Open(matches[0])
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &zipReadCloser{f: f, dir: dir}, nil
}

type zipReadCloser struct {
	f   *os.File
	dir string
}

func (z *zipReadCloser) Read(p []byte) (int, error) { return z.f.Read(p) }

func (z *zipReadCloser) Close() error {
	err := z.f.Close()
	os.RemoveAll(z.dir)
	return err
}

// decodeText sniffs the byte-order mark and wraps UTF-16 input (the
// encoding MT5 exports use) with a decoder; UTF-8 passes through with
// any BOM stripped.
func decodeText(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, _ := br.Peek(3)

	switch {
	case len(head) >= 2 && head[0] == 0xFF && head[1] == 0xFE:
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		return transform.NewReader(br, dec)
	case len(head) >= 2 && head[0] == 0xFE && head[1] == 0xFF:
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		return transform.NewReader(br, dec)
	case bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}):
		br.Discard(3)
	}
	return br
}
