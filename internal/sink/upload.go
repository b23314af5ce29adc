package sink

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/data"
)

// Upload writes collections through a Disk sink and then PUTs every file to
// BaseURL/<location>/<file>, e.g. a pre-signed bucket prefix or a WebDAV share.
type Upload struct {
	Disk    *Disk
	BaseURL string
	Client  *http.Client
}

func (u *Upload) Write(ctx context.Context, set *data.Set, label string) (Handle, error) {
	h, err := u.Disk.Write(ctx, set, label)
	if err != nil {
		return h, err
	}
	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	for _, name := range h.Files {
		url := strings.TrimRight(u.BaseURL, "/") + "/" + path.Join(h.Location, name)
		if err := putFile(ctx, client, filepath.Join(h.Dir, name), url); err != nil {
			return h, err
		}
		h.URLs = append(h.URLs, url)
	}
	return h, nil
}

func putFile(ctx context.Context, client *http.Client, src, url string) error {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file '%s': %w", src, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file stats for '%s': %w", src, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(src))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading file.", "source", src, "size", stat.Size(), "contentType", contentType)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload of %s failed with status: %s", filepath.Base(src), resp.Status)
	}
	return nil
}
