package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/firebase/genkit/go/ai"
	readability "github.com/go-shiori/go-readability"
	"github.com/gofrs/flock"
)

// supportedExtensions lists the document types ingestion accepts.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// maxDocumentSize caps a single source document (5MB). Larger files are
// skipped, not failed.
const maxDocumentSize = 5 * 1024 * 1024

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Files    int  // documents ingested
	Chunks   int  // chunks inserted
	Skipped  int  // unsupported or oversized files
	Failed   int  // documents that errored
	Fallback bool // true when the built-in corpus was used
}

// Ingestor splits, embeds, and indexes source documents.
//
// Ingestion is append-only: running it twice over the same directory
// duplicates every chunk. Callers that want a rebuild must Clear the
// index first (the ingest CLI's --reset flag does exactly that).
type Ingestor struct {
	index    Index
	embedder ai.Embedder
	splitter *Splitter
	logger   *slog.Logger
	lockPath string
}

// NewIngestor creates an ingestor with the default 1000/200 splitter.
func NewIngestor(index Index, embedder ai.Embedder, logger *slog.Logger) (*Ingestor, error) {
	if index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	splitter, err := NewSplitter(DefaultChunkSize, DefaultOverlap)
	if err != nil {
		return nil, err
	}
	return &Ingestor{
		index:    index,
		embedder: embedder,
		splitter: splitter,
		logger:   logger,
		lockPath: filepath.Join(os.TempDir(), "cargotrail-ingest.lock"),
	}, nil
}

// EnsureCorpus makes sure the index has content at startup.
//
// An already-populated index is left untouched (ingestion is append-only,
// so re-running it on every boot would duplicate chunks). Otherwise the
// docs directory is ingested; if it is absent, unreadable, or yields no
// chunks, the built-in operations manual is indexed instead. Startup
// never fails because documentation is missing.
func (ing *Ingestor) EnsureCorpus(ctx context.Context, dir string) (*IngestResult, error) {
	count, err := ing.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking index: %w", err)
	}
	if count > 0 {
		ing.logger.Debug("index already populated", "chunks", count)
		return &IngestResult{}, nil
	}

	res, err := ing.IngestDirectory(ctx, dir)
	if err == nil && res.Chunks > 0 {
		return res, nil
	}
	if err != nil {
		ing.logger.Warn("document ingestion failed, using built-in corpus", "dir", dir, "error", err)
	} else {
		ing.logger.Warn("no documents found, using built-in corpus", "dir", dir)
	}

	return ing.ingestFallback(ctx)
}

// IngestDirectory walks dir and ingests every supported document.
// A cross-process file lock serializes concurrent ingest runs.
func (ing *Ingestor) IngestDirectory(ctx context.Context, dir string) (*IngestResult, error) {
	lock := flock.New(ing.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring ingest lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another ingest is already running")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			ing.logger.Warn("releasing ingest lock", "error", err)
		}
	}()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("docs directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("docs path %q is not a directory", dir)
	}

	res := &IngestResult{}
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			// Hidden directories (.git and friends) are not documentation.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !supportedExtensions[ext] {
			res.Skipped++
			return nil
		}
		if fi, err := d.Info(); err == nil && fi.Size() > maxDocumentSize {
			ing.logger.Warn("skipping oversized document", "path", path, "bytes", fi.Size())
			res.Skipped++
			return nil
		}

		chunks, err := ing.ingestFile(ctx, dir, path, ext)
		if err != nil {
			ing.logger.Warn("failed to ingest document", "path", path, "error", err)
			res.Failed++
			return nil
		}
		res.Files++
		res.Chunks += chunks
		return nil
	})
	if walkErr != nil {
		return res, fmt.Errorf("walking %q: %w", dir, walkErr)
	}

	ing.logger.Info("ingestion complete",
		"dir", dir, "files", res.Files, "chunks", res.Chunks,
		"skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

// ingestFile splits one document and inserts its chunks.
func (ing *Ingestor) ingestFile(ctx context.Context, root, path, ext string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading: %w", err)
	}

	text := string(raw)
	if ext == ".html" || ext == ".htm" {
		text, err = extractHTMLText(raw)
		if err != nil {
			return 0, fmt.Errorf("extracting text: %w", err)
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}

	source := path
	if rel, err := filepath.Rel(root, path); err == nil {
		source = rel
	}
	docID := generateDocID(path)

	windows := ing.splitter.Split(text)
	for i, window := range windows {
		embedding, err := embedText(ctx, ing.embedder, window)
		if err != nil {
			return 0, fmt.Errorf("window %d: %w", i, err)
		}
		chunk := Chunk{
			ID:      fmt.Sprintf("%s#%d", docID, i),
			Source:  source,
			Ordinal: i,
			Content: window,
			Metadata: map[string]string{
				"path": source,
				"ext":  ext,
			},
		}
		if err := ing.index.Insert(ctx, chunk, embedding); err != nil {
			return 0, fmt.Errorf("window %d: %w", i, err)
		}
	}
	return len(windows), nil
}

// ingestFallback indexes the built-in operations manual.
func (ing *Ingestor) ingestFallback(ctx context.Context) (*IngestResult, error) {
	res := &IngestResult{Fallback: true}
	for _, doc := range fallbackDocs() {
		windows := ing.splitter.Split(doc.Content)
		for i, window := range windows {
			embedding, err := embedText(ctx, ing.embedder, window)
			if err != nil {
				return res, fmt.Errorf("embedding built-in doc %q: %w", doc.ID, err)
			}
			chunk := Chunk{
				ID:      fmt.Sprintf("%s#%d", doc.ID, i),
				Source:  FallbackSource,
				Ordinal: i,
				Content: window,
				Metadata: map[string]string{
					"title": doc.Title,
				},
			}
			if err := ing.index.Insert(ctx, chunk, embedding); err != nil {
				return res, fmt.Errorf("indexing built-in doc %q: %w", doc.ID, err)
			}
			res.Chunks++
		}
		res.Files++
	}
	ing.logger.Info("indexed built-in corpus", "docs", res.Files, "chunks", res.Chunks)
	return res, nil
}

// extractHTMLText pulls readable text out of an HTML document, trying
// readability extraction first and falling back to stripping tags.
func extractHTMLText(raw []byte) (string, error) {
	base, _ := url.Parse("https://cargotrail.local/doc")
	article, err := readability.FromReader(strings.NewReader(string(raw)), base)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Find("body").Text(), nil
}

// generateDocID derives a stable document ID from the absolute path.
func generateDocID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return "doc_" + hex.EncodeToString(sum[:8])
}
