// Package assets implements the per-client asset directory convention: four
// status folders holding image variants named <postId>[_<platform>].<ext>.
package assets

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	config "github.com/maheshrc27/contentpilot/configs"
)

type Folder string

const (
	FolderPreview      Folder = "preview"
	FolderApproved     Folder = "approved"
	FolderPostingQueue Folder = "posting_queue"
	FolderPosted       Folder = "posted"
)

// Folders is ordered from most to least advanced; a post with files in
// several folders takes its status from the first match.
var Folders = []Folder{FolderPosted, FolderPostingQueue, FolderApproved, FolderPreview}

type Layout struct {
	root         string
	subdirs      map[Folder]string
	staticPrefix string
}

func NewLayout(root string, sub config.AssetSubdirs, staticPrefix string) *Layout {
	return &Layout{
		root: root,
		subdirs: map[Folder]string{
			FolderPreview:      sub.Preview,
			FolderApproved:     sub.Approved,
			FolderPostingQueue: sub.PostingQueue,
			FolderPosted:       sub.Posted,
		},
		staticPrefix: "/" + strings.Trim(staticPrefix, "/"),
	}
}

func (l *Layout) Root() string { return l.root }

func (l *Layout) ClientDir(client string) string {
	return filepath.Join(l.root, client)
}

func (l *Layout) Dir(client string, f Folder) string {
	return filepath.Join(l.root, client, l.subdirs[f])
}

// EnsureDirs creates the four folders for client.
func (l *Layout) EnsureDirs(client string) error {
	for _, f := range Folders {
		if err := os.MkdirAll(l.Dir(client, f), 0o755); err != nil {
			return fmt.Errorf("creating %s folder: %w", f, err)
		}
	}
	return nil
}

// Clients lists the client directories under the root.
func (l *Layout) Clients() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var clients []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			clients = append(clients, e.Name())
		}
	}
	sort.Strings(clients)
	return clients, nil
}

// StaticURL is the public path of a file served from the clients root.
func (l *Layout) StaticURL(client string, f Folder, name string) string {
	return path.Join(l.staticPrefix, client, filepath.ToSlash(l.subdirs[f]), name)
}

// PathFromStatic maps a static URL back to its file on disk.
func (l *Layout) PathFromStatic(url string) (string, bool) {
	if !strings.HasPrefix(url, l.staticPrefix+"/") {
		return "", false
	}
	rel := path.Clean(strings.TrimPrefix(url, l.staticPrefix+"/"))
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.Join(l.root, filepath.FromSlash(rel)), true
}

// StaticExists reports whether url points to an existing file.
func (l *Layout) StaticExists(url string) bool {
	p, ok := l.PathFromStatic(url)
	if !ok {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
