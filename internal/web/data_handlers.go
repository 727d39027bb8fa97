package web

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fieldline-data/rom.report/internal/field"
	"github.com/fieldline-data/rom.report/internal/fsutil"
	"github.com/fieldline-data/rom.report/internal/security"
	"github.com/fieldline-data/rom.report/internal/session"
	"github.com/fieldline-data/rom.report/internal/vtu"
)

// handleDataUpload receives a VTU mesh, parses it, and installs the mesh
// plus its discovered tags into the session. The upload is buffered to a
// temp file that is removed whatever happens.
func (ws *WebServer) handleDataUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, ws.cfg.GetMaxUploadBytes())
	file, header, err := r.FormFile("mesh")
	if err != nil {
		redirectBack(w, r, "/data", fmt.Errorf("mesh upload: %w", err))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".vtu") {
		redirectBack(w, r, "/data", fmt.Errorf("mesh upload: expected a .vtu file, got %q", header.Filename))
		return
	}

	tmp, err := os.CreateTemp("", "romlab-upload-*.vtu")
	if err != nil {
		redirectBack(w, r, "/data", fmt.Errorf("mesh upload: %w", err))
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, file)
	if err != nil {
		redirectBack(w, r, "/data", fmt.Errorf("mesh upload: %w", err))
		return
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		redirectBack(w, r, "/data", fmt.Errorf("mesh upload: %w", err))
		return
	}

	m, err := vtu.Read(tmp)
	if err != nil {
		redirectBack(w, r, "/data", fmt.Errorf("parse %s: %w", header.Filename, err))
		return
	}

	tags := field.DiscoverTags(m)
	sess.SetDataset(nil, m, &session.FileInfo{
		Name:       filepath.Base(header.Filename),
		Size:       size,
		Points:     m.PointCount(),
		Tags:       tags,
		UploadedAt: ws.clock.Now(),
	})

	redirectNotice(w, r, "/data", fmt.Sprintf("loaded %s: %d points, %d tags",
		header.Filename, m.PointCount(), len(tags)))
}

// handleDataAssemble stacks the uploaded mesh's per-tag fields into snapshot
// sets. The parameter vector comes from the tags themselves or, when the
// range mode is selected, from a half-open arange whose length must match.
func (ws *WebServer) handleDataAssemble(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)

	m := sess.Mesh()
	if m == nil {
		redirectBack(w, r, "/data", fmt.Errorf("assemble: no mesh uploaded"))
		return
	}

	ds, err := field.AssembleMesh(m)
	if err != nil {
		redirectBack(w, r, "/data", fmt.Errorf("assemble: %w", err))
		return
	}

	if r.FormValue("param_mode") == "range" {
		start, err := formFloat(r, "param_start", ws.cfg.GetParamStart())
		if err != nil {
			redirectBack(w, r, "/data", err)
			return
		}
		end, err := formFloat(r, "param_end", ws.cfg.GetParamEnd())
		if err != nil {
			redirectBack(w, r, "/data", err)
			return
		}
		step, err := formFloat(r, "param_step", ws.cfg.GetParamStep())
		if err != nil {
			redirectBack(w, r, "/data", err)
			return
		}
		params, err := field.ParamsFromRange(start, end, step)
		if err != nil {
			redirectBack(w, r, "/data", err)
			return
		}
		if err := ds.SetParams(params); err != nil {
			redirectBack(w, r, "/data", err)
			return
		}
	}

	sess.SetDataset(ds, m, sess.FileInfo())
	redirectNotice(w, r, "/data", fmt.Sprintf("assembled %d tags, %d components",
		len(ds.Tags), len(ds.Available())))
}

// handleNPYUpload builds a dataset from loose array dumps. Each file is
// classified onto a slot by name; unknown names are reported, not guessed.
func (ws *WebServer) handleNPYUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, ws.cfg.GetMaxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		redirectBack(w, r, "/data", fmt.Errorf("array upload: %w", err))
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["arrays"]) == 0 {
		redirectBack(w, r, "/data", fmt.Errorf("array upload: no files selected"))
		return
	}

	slotNames := map[field.DumpKind]string{
		field.DumpX:      field.FileSnapshotsX,
		field.DumpY:      field.FileSnapshotsY,
		field.DumpZ:      field.FileSnapshotsZ,
		field.DumpStress: field.FileSnapshotsStress,
		field.DumpParam:  field.FileParam,
	}

	// Stage the uploads under their canonical slot names in memory, then
	// load them back as a dataset directory.
	staging := fsutil.NewMemoryFileSystem()
	var totalSize int64
	for _, header := range r.MultipartForm.File["arrays"] {
		kind := field.ClassifyNPY(header.Filename)
		if kind == field.DumpUnknown {
			redirectBack(w, r, "/data", fmt.Errorf("array upload: cannot classify %q", header.Filename))
			return
		}
		f, err := header.Open()
		if err != nil {
			redirectBack(w, r, "/data", fmt.Errorf("array upload: %w", err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			redirectBack(w, r, "/data", fmt.Errorf("array upload: read %s: %w", header.Filename, err))
			return
		}
		totalSize += int64(len(data))
		if err := staging.WriteFile(filepath.Join("upload", slotNames[kind]), data, 0644); err != nil {
			redirectBack(w, r, "/data", fmt.Errorf("array upload: %w", err))
			return
		}
	}

	ds, loaded, err := field.LoadDataset(staging, "upload")
	if err != nil {
		redirectBack(w, r, "/data", err)
		return
	}

	sess.SetDataset(ds, nil, &session.FileInfo{
		Name:       fmt.Sprintf("%d array dumps", len(loaded)),
		Size:       totalSize,
		Points:     ds.PointCount,
		Tags:       ds.Tags,
		UploadedAt: ws.clock.Now(),
	})

	redirectNotice(w, r, "/data", fmt.Sprintf("loaded %s", strings.Join(loaded, ", ")))
}

// handleDataSave writes the session dataset's NPY dumps to a directory under
// the configured save root. The path is validated before anything touches
// the disk.
func (ws *WebServer) handleDataSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)

	ds := sess.Dataset()
	if ds == nil {
		redirectBack(w, r, "/data", fmt.Errorf("save: no dataset assembled"))
		return
	}

	sub := strings.TrimSpace(r.FormValue("dir"))
	if sub == "" {
		sub = "dataset"
	}
	root := ws.cfg.GetSaveDir()
	dir := filepath.Join(root, sub)
	if err := security.ValidateSavePath(dir, root); err != nil {
		redirectBack(w, r, "/data", fmt.Errorf("save: %w", err))
		return
	}

	written, err := ds.Save(ws.fsys, dir)
	if err != nil {
		redirectBack(w, r, "/data", err)
		return
	}

	sess.SetSavePath(dir)
	redirectNotice(w, r, "/data", fmt.Sprintf("saved %s to %s", strings.Join(written, ", "), dir))
}

// handleSessionReset clears the session back to its initial state.
func (ws *WebServer) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)
	sess.Reset()
	redirectNotice(w, r, "/data", "session cleared")
}

// handleGalleryClear drops the session's recorded plots only.
func (ws *WebServer) handleGalleryClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := ws.sessions.Attach(w, r)
	sess.ClearPlots()
	redirectNotice(w, r, "/gallery", "gallery cleared")
}
