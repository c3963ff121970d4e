package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// download streams the dump archive into memory, reporting byte progress
// after every chunk.
func (i *Importer) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.dumpURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download staging dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download staging dataset: unexpected status %s", resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		return nil, fmt.Errorf("download staging dataset: unknown content length")
	}

	var buf bytes.Buffer
	buf.Grow(int(total))
	chunk := make([]byte, 64*1024)
	var downloaded int64
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			downloaded += int64(n)
			i.publish(Event{
				Phase:   PhaseDownloading,
				Message: "downloading staging dataset",
				Current: downloaded,
				Total:   total,
			})
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// unpack extracts the named entry from the zip archive to a temporary file
// and returns its path.
func unpack(archive []byte, entry string) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}

	in, err := reader.Open(entry)
	if err != nil {
		return "", fmt.Errorf("open archive entry %s: %w", entry, err)
	}
	defer in.Close()

	out, err := os.CreateTemp("", "staging-*.db")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("extract %s: %w", entry, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close staging file: %w", err)
	}

	return out.Name(), nil
}
