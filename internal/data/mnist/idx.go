// Package mnist loads the MNIST handwritten digit dataset from IDX files,
// plain or gzip-compressed, into data.Dataset values ready for training.
package mnist

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// IDX magic numbers: 0x08 marks the uint8 element type, the last byte is
// the dimension count.
const (
	imagesMagic = 0x00000803 // 3 dimensions: count, rows, cols
	labelsMagic = 0x00000801 // 1 dimension: count
)

// readImages parses an IDX3 image file into raw pixels.
func readImages(r io.Reader) (pixels []uint8, count, rows, cols int, err error) {
	var header [4]uint32
	for i := range header {
		if err := binary.Read(r, binary.BigEndian, &header[i]); err != nil {
			return nil, 0, 0, 0, errors.Wrap(err, "reading IDX image header")
		}
	}
	if header[0] != imagesMagic {
		return nil, 0, 0, 0, errors.Errorf("bad IDX image magic 0x%08x, want 0x%08x", header[0], imagesMagic)
	}

	count, rows, cols = int(header[1]), int(header[2]), int(header[3])
	pixels = make([]uint8, count*rows*cols)
	if _, err := io.ReadFull(r, pixels); err != nil {
		return nil, 0, 0, 0, errors.Wrapf(err, "reading %d images of %dx%d pixels", count, rows, cols)
	}
	return pixels, count, rows, cols, nil
}

// readLabels parses an IDX1 label file.
func readLabels(r io.Reader) ([]uint8, error) {
	var magic, count uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "reading IDX label header")
	}
	if magic != labelsMagic {
		return nil, errors.Errorf("bad IDX label magic 0x%08x, want 0x%08x", magic, labelsMagic)
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "reading IDX label count")
	}

	labels := make([]uint8, count)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, errors.Wrapf(err, "reading %d labels", count)
	}
	return labels, nil
}

// openIDX opens an IDX file, transparently decompressing gzip content.
// The caller must close the returned reader.
func openIDX(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	br := bufio.NewReader(f)
	head, err := br.Peek(2)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "probing %s", path)
	}

	if head[0] == 0x1f && head[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "decompressing %s", path)
		}
		return &gzipFile{gz: gz, file: f}, nil
	}

	return &plainFile{Reader: br, file: f}, nil
}

type gzipFile struct {
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipFile) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipFile) Close() error {
	gzErr := g.gz.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

type plainFile struct {
	*bufio.Reader
	file *os.File
}

func (p *plainFile) Close() error { return p.file.Close() }
