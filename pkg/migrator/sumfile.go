package migrator

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const h1Prefix = "h1:"

type (
	// SumFile records a chained hash per migration file and a total hash over
	// all of them. Each file's hash incorporates the previous file's hash, so
	// reordering, inserting or editing any migration changes every hash after
	// it.
	SumFile struct {
		files     []fileEntry
		TotalHash string
	}

	fileEntry struct {
		Name string
		Hash []byte
	}
)

// NewSumFile creates an empty SumFile.
//
// Example:
//
//	sum := NewSumFile()
//	sum.AddFile("001_create_users.sql", content1)
//	sum.AddFile("002_create_orders.sql", content2)
//	_, _ = sum.WriteTo(os.Stdout)
func NewSumFile() *SumFile {
	return &SumFile{}
}

// LoadSumFile reads a SumFile in the format produced by WriteTo:
//
//	h1:<total hash>
//	<file name> h1:<file hash>
//	...
//
// An empty input yields an empty SumFile.
func LoadSumFile(r io.Reader) (*SumFile, error) {
	scanner := bufio.NewScanner(r)
	sum := NewSumFile()

	if !scanner.Scan() {
		return sum, errors.Wrap(scanner.Err(), "failed to read total hash line")
	}

	total := strings.TrimSpace(scanner.Text())
	if total == "" {
		return sum, nil
	}

	if !strings.HasPrefix(total, h1Prefix) {
		return nil, errors.Errorf("invalid total hash format: %s", total)
	}
	sum.TotalHash = total

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, hash, ok := strings.Cut(line, " ")
		if !ok {
			return nil, errors.Errorf("invalid file entry format: %s", line)
		}

		if !strings.HasPrefix(hash, h1Prefix) {
			return nil, errors.Errorf("invalid hash format for file %s: %s", name, hash)
		}

		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(hash, h1Prefix))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode hash for file %s", name)
		}

		sum.files = append(sum.files, fileEntry{Name: name, Hash: raw})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading sum file")
	}

	return sum, nil
}

// AddFile appends a file, hashing its content chained to the previous entry:
//   - first file: SHA256(content)
//   - later files: SHA256(content + previous hash)
func (s *SumFile) AddFile(name string, content []byte) {
	h := sha256.New()
	h.Write(content)

	if n := len(s.files); n > 0 {
		h.Write(s.files[n-1].Hash)
	}

	s.files = append(s.files, fileEntry{Name: name, Hash: h.Sum(nil)})
	s.computeTotalHash()
}

// Add reads r fully and appends it under name.
func (s *SumFile) Add(name string, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", name)
	}

	s.AddFile(name, content)
	return nil
}

// Files returns the number of entries.
func (s *SumFile) Files() int {
	return len(s.files)
}

// Names returns the entry names in order.
func (s *SumFile) Names() []string {
	names := make([]string, len(s.files))
	for i, f := range s.files {
		names[i] = f.Name
	}
	return names
}

// Equal reports whether both sum files list the same entries with the same
// hashes, in the same order.
func (s *SumFile) Equal(other *SumFile) bool {
	if len(s.files) != len(other.files) {
		return false
	}

	for i, f := range s.files {
		o := other.files[i]
		if f.Name != o.Name || !bytes.Equal(f.Hash, o.Hash) {
			return false
		}
	}

	return true
}

// WriteTo writes the sum file, implementing io.WriterTo.
//
// Example output:
//
//	h1:dG90YWxoYXNoZXhhbXBsZQ==
//	001_create_users.sql h1:dGVzdGRhdGE=
//	002_create_orders.sql h1:bW9yZXRlc3Q=
func (s *SumFile) WriteTo(w io.Writer) (int64, error) {
	s.computeTotalHash()

	var total int64
	n, err := fmt.Fprintf(w, "%s\n", s.TotalHash)
	total += int64(n)
	if err != nil {
		return total, err
	}

	for _, f := range s.files {
		n, err := fmt.Fprintf(w, "%s %s%s\n", f.Name, h1Prefix, base64.StdEncoding.EncodeToString(f.Hash))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (s *SumFile) computeTotalHash() {
	if len(s.files) == 0 {
		s.TotalHash = ""
		return
	}

	h := sha256.New()
	for _, f := range s.files {
		h.Write(f.Hash)
	}

	s.TotalHash = h1Prefix + base64.StdEncoding.EncodeToString(h.Sum(nil))
}
