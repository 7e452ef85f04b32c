package workspace

import (
	"context"
	"strings"

	"github.com/gennadis/facultydash/internal/client"
	"github.com/gennadis/facultydash/internal/material"
	"github.com/gennadis/facultydash/internal/notify"
	"github.com/pkg/errors"
)

// Sync replaces the local material set with the server's list for the
// active context. Failures are logged, returned and never shown to the
// user. Of several overlapping syncs, the one whose response lands last
// wins.
func (w *Workspace) Sync(ctx context.Context) error {
	sc, epoch, err := w.begin()
	if err != nil {
		return err
	}

	list, err := w.api.ListMaterials(ctx, sc)
	if err != nil {
		w.log.Warn("Failed to sync materials", "context", sc.ID(), "error", err)
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.staleLocked(epoch) {
		w.log.Debug("Dropping material list of inactive context", "context", sc.ID())
		return ErrStaleContext
	}
	w.materials = material.FromLists(list.Files, list.URLs, w.materials)
	w.log.Debug("Materials synced", "context", sc.ID(), "files", len(w.materials.Files), "urls", len(w.materials.URLs))
	return nil
}

// Upload sends files to the active context and resyncs on success
func (w *Workspace) Upload(ctx context.Context, uploads []client.Upload) error {
	if len(uploads) == 0 {
		return ErrNoUploads
	}
	sc, epoch, err := w.begin()
	if err != nil {
		return err
	}

	done := w.track(&w.busy.uploading)
	err = w.api.UploadMaterials(ctx, sc, uploads)
	done()
	if err != nil {
		w.log.Error("Upload failed", "context", sc.ID(), "files", len(uploads), "error", err)
		w.notify(notify.Error(failureMessage(err, "Upload failed", "Connection error during upload")))
		return err
	}

	if err := w.syncAt(ctx, epoch); errors.Is(err, ErrStaleContext) {
		return err
	}
	w.notify(notify.Success("Files uploaded successfully!"))
	return nil
}

// syncAt resyncs only when the context of epoch is still active
func (w *Workspace) syncAt(ctx context.Context, epoch uint64) error {
	w.mu.Lock()
	stale := w.staleLocked(epoch)
	w.mu.Unlock()
	if stale {
		return ErrStaleContext
	}
	return w.Sync(ctx)
}

// SetURLInput stores the pending URL text
func (w *Workspace) SetURLInput(s string) {
	w.mu.Lock()
	w.urlInput = s
	w.mu.Unlock()
}

func (w *Workspace) URLInput() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.urlInput
}

// AddURL adds a reference link to the active context. An empty link falls
// back to the pending URL input; when both are blank nothing happens. The
// pending input is cleared only on success.
func (w *Workspace) AddURL(ctx context.Context, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		link = strings.TrimSpace(w.URLInput())
	}
	if link == "" {
		return nil
	}
	w.SetURLInput(link)

	sc, epoch, err := w.begin()
	if err != nil {
		return err
	}

	if err := w.api.AddURL(ctx, sc, link); err != nil {
		w.log.Error("Failed to add URL", "context", sc.ID(), "url", link, "error", err)
		w.notify(notify.Error(failureMessage(err, "Failed to add URL", "Connection error")))
		return err
	}

	if err := w.syncAt(ctx, epoch); errors.Is(err, ErrStaleContext) {
		return err
	}
	w.mu.Lock()
	if w.urlInput == link {
		w.urlInput = ""
	}
	w.mu.Unlock()
	w.notify(notify.Success("URL added successfully!"))
	return nil
}

// RemoveFile removes the uploaded file at index
func (w *Workspace) RemoveFile(ctx context.Context, index int) error {
	return w.removeAt(ctx, material.KindFile, index)
}

// RemoveURL removes the reference link at index
func (w *Workspace) RemoveURL(ctx context.Context, index int) error {
	return w.removeAt(ctx, material.KindURL, index)
}

// RemoveMaterial removes the item with the given id
func (w *Workspace) RemoveMaterial(ctx context.Context, id string) error {
	w.mu.Lock()
	item, ok := w.materials.Find(id)
	w.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrNoSuchMaterial, "id %s", id)
	}
	return w.remove(ctx, item)
}

func (w *Workspace) removeAt(ctx context.Context, kind material.Kind, index int) error {
	w.mu.Lock()
	item, ok := w.materials.At(kind, index)
	w.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrIndexOutOfRange, "%s %d", kind, index)
	}
	return w.remove(ctx, item)
}

// remove drops item locally at once, then deletes it on the server. Once
// the local set is empty the whole context is cleared; otherwise a failed
// delete is reconciled by a resync.
func (w *Workspace) remove(ctx context.Context, item material.Item) error {
	w.mu.Lock()
	sc, epoch := w.active, w.epoch
	if !sc.IsSet() {
		w.mu.Unlock()
		return ErrNoContext
	}
	next, removed := w.materials.Without(item.ID)
	if !removed {
		w.mu.Unlock()
		return errors.Wrapf(ErrNoSuchMaterial, "id %s", item.ID)
	}
	w.materials = next
	empty := next.IsEmpty()
	w.mu.Unlock()

	err := w.api.RemoveMaterial(ctx, sc, item.Source)
	if err != nil {
		w.log.Error("Failed to remove material", "context", sc.ID(), "kind", string(item.Kind), "source", item.Source, "error", err)
		if item.Kind == material.KindURL {
			w.notify(notify.Error(failureMessage(err, "Failed to remove from server", "Connection error")))
		}
	} else if item.Kind == material.KindURL {
		w.notify(notify.Success("Reference removed"))
	}

	if empty {
		if clearErr := w.clearAt(ctx, epoch); clearErr != nil && !errors.Is(clearErr, ErrStaleContext) {
			w.log.Warn("Failed to clear emptied context", "context", sc.ID(), "error", clearErr)
		}
		return err
	}
	if err != nil {
		if syncErr := w.syncAt(ctx, epoch); syncErr != nil {
			w.log.Debug("Resync after failed remove did not apply", "error", syncErr)
		}
	}
	return err
}

// ClearAll deletes every material and artifact of the active context on
// the server, then resets the local state.
func (w *Workspace) ClearAll(ctx context.Context) error {
	_, epoch, err := w.begin()
	if err != nil {
		return err
	}
	if err := w.clearAt(ctx, epoch); err != nil {
		if !errors.Is(err, ErrStaleContext) {
			w.notify(notify.Error(failureMessage(err, "Failed to clear session", "Connection error")))
		}
		return err
	}
	w.notify(notify.Success("Session cleared, ready for new upload"))
	return nil
}

// clearAt clears the context that was active at epoch, if it still is
func (w *Workspace) clearAt(ctx context.Context, epoch uint64) error {
	w.mu.Lock()
	sc := w.active
	stale := w.staleLocked(epoch)
	w.mu.Unlock()
	if stale {
		return ErrStaleContext
	}

	if err := w.api.ClearMaterial(ctx, sc); err != nil {
		w.log.Error("Failed to clear context", "context", sc.ID(), "error", err)
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.staleLocked(epoch) {
		return ErrStaleContext
	}
	w.resetLocked(sc)
	w.log.Info("Context cleared", "context", sc.ID())
	return nil
}
