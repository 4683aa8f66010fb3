package snapshot

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Compress gzips the UTF-8 text of a snapshot.
func Compress(text string) ([]byte, error) {
	var buf bytes.Buffer

	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gzip writer")
	}

	if _, err := io.WriteString(zw, text); err != nil {
		return nil, errors.Wrap(err, "failed to compress snapshot")
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to compress snapshot")
	}

	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(blob []byte) (string, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return "", errors.Wrap(err, "failed to read compressed snapshot")
	}
	defer func() { _ = zr.Close() }()

	data, err := io.ReadAll(zr)
	if err != nil {
		return "", errors.Wrap(err, "failed to decompress snapshot")
	}

	if !utf8.Valid(data) {
		return "", errors.New("snapshot is not valid UTF-8")
	}

	return string(data), nil
}
