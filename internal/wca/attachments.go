package wca

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

const maxAttachmentSize = 10 * 1024 * 1024

type attachment struct {
	name    string
	encoded []byte // base64 of the file bytes
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (a attachment) header() textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, formFieldFiles, quoteEscaper.Replace(a.name)))
	h.Set("Content-Type", "text/plain")
	return h
}

// loadAttachments reads and base64-encodes each path. Everything is read
// before the request is built so a bad path fails without a network call.
//
// With an attachment root configured, files are opened through an os.Root,
// so neither ".." nor a symlink can reach outside the root.
func (c *Client) loadAttachments(paths []string) ([]attachment, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	var root *os.Root
	if c.cfg.AttachmentRoot != "" {
		r, err := os.OpenRoot(c.cfg.AttachmentRoot)
		if err != nil {
			return nil, fmt.Errorf("wca: open attachment root: %w", err)
		}
		defer r.Close()
		root = r
	}

	out := make([]attachment, 0, len(paths))
	for _, p := range paths {
		a, err := c.readAttachment(root, p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) readAttachment(root *os.Root, p string) (attachment, error) {
	f, err := c.openAttachment(root, p)
	if err != nil {
		return attachment{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return attachment{}, fmt.Errorf("wca: attachment %s: %w", p, err)
	}
	if info.IsDir() {
		return attachment{}, fmt.Errorf("wca: attachment %s is a directory", p)
	}
	if info.Size() > maxAttachmentSize {
		return attachment{}, fmt.Errorf("wca: attachment %s too large (%d bytes, max %d)", p, info.Size(), maxAttachmentSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxAttachmentSize+1))
	if err != nil {
		return attachment{}, fmt.Errorf("wca: read attachment %s: %w", p, err)
	}
	if len(data) > maxAttachmentSize {
		return attachment{}, fmt.Errorf("wca: attachment %s too large (max %d bytes)", p, maxAttachmentSize)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
	base64.StdEncoding.Encode(encoded, data)
	return attachment{name: filepath.Base(p), encoded: encoded}, nil
}

func (c *Client) openAttachment(root *os.Root, p string) (*os.File, error) {
	if root == nil {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("wca: attachment %s: %w", p, err)
		}
		return f, nil
	}

	rel, err := c.relativeToRoot(p)
	if err != nil {
		return nil, err
	}
	f, err := root.Open(rel)
	switch {
	case err == nil:
		return f, nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("wca: attachment %s: %w", p, err)
	default:
		// os.Root reports a path escaping through a symlink as a plain error.
		return nil, fmt.Errorf("%w: %s (%v)", ErrAttachmentOutsideRoot, p, err)
	}
}

// relativeToRoot maps p to a path below the attachment root. Relative paths
// are taken relative to the root.
func (c *Client) relativeToRoot(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(c.cfg.AttachmentRoot, abs)
	}

	rel, err := filepath.Rel(c.cfg.AttachmentRoot, filepath.Clean(abs))
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrAttachmentOutsideRoot, p)
	}
	return rel, nil
}
