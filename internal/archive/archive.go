// Package archive opens the password-protected zip exports produced by the
// banking aggregator and hands back the single spreadsheet inside.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/yeka/zip"

	"github.com/Veraticus/household-ledger/internal/common"
)

// payloadExtensions lists the member types that count as a spreadsheet.
var payloadExtensions = []string{".xlsx", ".csv"}

// Payload is the decrypted spreadsheet member of an archive.
type Payload struct {
	Name string
	Data []byte
}

// Decrypt opens the archive in data with password and returns the first
// spreadsheet member in listing order. Several candidates are not an error.
func Decrypt(data []byte, password string) (Payload, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", common.ErrDecryption, err)
	}

	target := findPayload(reader.File)
	if target == nil {
		return Payload{}, common.ErrNoPayload
	}

	if target.IsEncrypted() {
		target.SetPassword(password)
	}

	rc, err := target.Open()
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %s: %w", common.ErrDecryption, target.Name, err)
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(rc)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %s: %w", common.ErrDecryption, target.Name, err)
	}

	slog.Debug("decrypted archive member",
		"member", target.Name,
		"bytes", len(content),
		"encrypted", target.IsEncrypted())

	return Payload{Name: target.Name, Data: content}, nil
}

func findPayload(files []*zip.File) *zip.File {
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		if isSpreadsheet(f.Name) {
			return f
		}
	}
	return nil
}

func isSpreadsheet(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, want := range payloadExtensions {
		if ext == want {
			return true
		}
	}
	return false
}
