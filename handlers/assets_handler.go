package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/upb/catalog-rag/utils"
	"go.uber.org/zap"
)

// originalSubdir holds unprocessed copies of uploaded documents
const originalSubdir = "original"

// AssetHandler serves extracted images and source documents from disk
type AssetHandler struct {
	imagesDir    string
	documentsDir string
	logger       *zap.Logger
}

// NewAssetHandler creates a new AssetHandler
func NewAssetHandler(imagesDir, documentsDir string, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{
		imagesDir:    imagesDir,
		documentsDir: documentsDir,
		logger:       logger,
	}
}

// HandleImage handles GET /api/images/*
func (h *AssetHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.imagesDir)
}

// HandleDocument handles GET /api/documents/serve/*.
// Falls back to the original/ subfolder.
func (h *AssetHandler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.documentsDir, filepath.Join(h.documentsDir, originalSubdir))
}

func (h *AssetHandler) serve(w http.ResponseWriter, r *http.Request, roots ...string) {
	rel, ok := cleanRelative(chi.URLParam(r, "*"))
	if !ok {
		_ = utils.WriteBadRequest(w, "Invalid file path", nil)
		return
	}

	for _, root := range roots {
		full := filepath.Join(root, rel)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		http.ServeFile(w, r, full)
		return
	}

	h.logger.Debug("asset not found", zap.String("path", rel))
	_ = utils.WriteNotFound(w, "File not found")
}

// cleanRelative rejects empty, absolute and parent-escaping paths
func cleanRelative(p string) (string, bool) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", false
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", false
		}
	}

	cleaned := filepath.Clean(filepath.FromSlash(p))
	if cleaned == "." || filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", false
	}
	return cleaned, true
}
