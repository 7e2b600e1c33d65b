package mnist

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeImages(t *testing.T, pixels []uint8, count, rows, cols int) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, v := range []uint32{imagesMagic, uint32(count), uint32(rows), uint32(cols)} {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, v))
	}
	buf.Write(pixels)
	return buf.Bytes()
}

func encodeLabels(t *testing.T, labels []uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, v := range []uint32{labelsMagic, uint32(len(labels))} {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, v))
	}
	buf.Write(labels)
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, content []byte, compress bool) {
	t.Helper()
	if compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write(content)
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		content = buf.Bytes()
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

// writeSplit lays out a tiny MNIST-format split in dir.
func writeSplit(t *testing.T, dir string, train, compress bool) (pixels []uint8, labels []uint8) {
	t.Helper()

	const count = 3
	pixels = make([]uint8, count*ImageSize)
	for i := range pixels {
		pixels[i] = uint8(i % 256)
	}
	labels = []uint8{3, 1, 4}

	imagesFile, labelsFile := testImagesFile, testLabelsFile
	if train {
		imagesFile, labelsFile = trainImagesFile, trainLabelsFile
	}
	suffix := ""
	if compress {
		suffix = ".gz"
	}

	writeFile(t, filepath.Join(dir, imagesFile+suffix), encodeImages(t, pixels, count, 28, 28), compress)
	writeFile(t, filepath.Join(dir, labelsFile+suffix), encodeLabels(t, labels), compress)
	return pixels, labels
}

func TestLoadPlainFiles(t *testing.T) {
	dir := t.TempDir()
	pixels, labels := writeSplit(t, dir, true, false)

	ds, err := Load(dir, true)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, ImageSize, ds.FeatureDim())

	features, label := ds.Sample(0)
	assert.Equal(t, int32(labels[0]), label)
	assert.InDelta(t, float64(pixels[0])/255.0, float64(features[0]), 1e-6)
	assert.InDelta(t, float64(pixels[100])/255.0, float64(features[100]), 1e-6)
}

func TestLoadGzipFiles(t *testing.T) {
	dir := t.TempDir()
	_, labels := writeSplit(t, dir, false, true)

	ds, err := Load(dir, false)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	for i, want := range labels {
		_, label := ds.Sample(i)
		assert.Equal(t, int32(want), label)
	}
}

func TestLoadMissingFiles(t *testing.T) {
	_, err := Load(t.TempDir(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), trainImagesFile)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(0xdeadbeef)))
	writeFile(t, filepath.Join(dir, trainImagesFile), buf.Bytes(), false)
	writeFile(t, filepath.Join(dir, trainLabelsFile), encodeLabels(t, []uint8{1}), false)

	_, err := Load(dir, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

func TestLoadRejectsCountMismatch(t *testing.T) {
	dir := t.TempDir()

	pixels := make([]uint8, 2*ImageSize)
	writeFile(t, filepath.Join(dir, trainImagesFile), encodeImages(t, pixels, 2, 28, 28), false)
	writeFile(t, filepath.Join(dir, trainLabelsFile), encodeLabels(t, []uint8{1, 2, 3}), false)

	_, err := Load(dir, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels")
}

func TestLoadRejectsTruncatedImages(t *testing.T) {
	dir := t.TempDir()

	full := encodeImages(t, make([]uint8, 2*ImageSize), 2, 28, 28)
	writeFile(t, filepath.Join(dir, trainImagesFile), full[:len(full)-100], false)
	writeFile(t, filepath.Join(dir, trainLabelsFile), encodeLabels(t, []uint8{1, 2}), false)

	_, err := Load(dir, true)
	require.Error(t, err)
}
