package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MKhiriev/go-refsync/internal/adapter"
	"github.com/MKhiriev/go-refsync/internal/store"
	"github.com/MKhiriev/go-refsync/models"
)

// pendingChanges are the local changes waiting for upload.
type pendingChanges struct {
	objects   map[models.ObjectType][]models.Object
	deletions map[models.ObjectType][]string
}

func (c pendingChanges) empty() bool {
	for _, objs := range c.objects {
		if len(objs) > 0 {
			return false
		}
	}
	for _, keys := range c.deletions {
		if len(keys) > 0 {
			return false
		}
	}
	return true
}

// upload sends local changes: settings, then deletions, then objects per
// type in dependency order.
func (p *pass) upload(ctx context.Context) (models.UploadResult, error) {
	if !p.lib.Editable {
		return models.UploadNothing, nil
	}

	pending, err := p.pendingChanges(ctx)
	if err != nil {
		return models.UploadNothing, err
	}
	if pending.empty() {
		p.log.Debug().Str("func", "pass.upload").Msg("nothing to upload")
		return models.UploadNothing, nil
	}

	result, err := p.uploadSettings(ctx, pending.objects[models.ObjectSetting])
	if err != nil || result == models.UploadRestart {
		return result, err
	}

	if result, err = p.uploadDeletions(ctx, pending.deletions); err != nil || result == models.UploadRestart {
		return result, err
	}

	for _, t := range models.DataObjectTypes {
		if result, err = p.uploadObjects(ctx, t, pending.objects[t]); err != nil || result == models.UploadRestart {
			return result, err
		}
	}
	return models.UploadSuccess, nil
}

// pendingChanges lists unsynced objects, leaving out the keys in the sync
// queue, and the deletion log.
func (p *pass) pendingChanges(ctx context.Context) (pendingChanges, error) {
	pending := pendingChanges{
		objects:   make(map[models.ObjectType][]models.Object),
		deletions: make(map[models.ObjectType][]string),
	}

	for _, t := range deletionOrder {
		unsynced, err := p.store.ListUnsynced(ctx, p.libraryID, t)
		if err != nil {
			return pending, fmt.Errorf("load unsynced %s objects: %w", t, err)
		}
		queue, err := p.store.ListQueue(ctx, p.libraryID, t)
		if err != nil {
			return pending, fmt.Errorf("load %s sync queue: %w", t, err)
		}
		queued := make(map[string]struct{}, len(queue))
		for _, entry := range queue {
			queued[entry.Key] = struct{}{}
		}
		for _, obj := range unsynced {
			if _, ok := queued[obj.Key]; !ok {
				pending.objects[t] = append(pending.objects[t], obj)
			}
		}

		deletions, err := p.store.ListDeletions(ctx, p.libraryID, t)
		if err != nil {
			return pending, fmt.Errorf("load %s deletion log: %w", t, err)
		}
		for _, entry := range deletions {
			pending.deletions[t] = append(pending.deletions[t], entry.Key)
		}
	}
	return pending, nil
}

func (p *pass) uploadSettings(ctx context.Context, settings []models.Object) (models.UploadResult, error) {
	if len(settings) == 0 {
		return models.UploadSuccess, nil
	}

	payload := make(map[string]models.ObjectData, len(settings))
	for _, s := range settings {
		payload[s.Key] = models.ObjectData{"value": s.Data["value"]}
	}

	var version int64
	err := p.caller.Run(ctx, func(ctx context.Context) error {
		var err error
		version, err = p.api.UploadSettings(ctx, p.lib, payload, p.lib.Version)
		return err
	})
	if errors.Is(err, adapter.ErrPreconditionFailed) {
		p.logRestart("settings")
		return models.UploadRestart, nil
	}
	if err != nil {
		return models.UploadNothing, fmt.Errorf("upload settings: %w", err)
	}

	err = p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
		for _, s := range settings {
			s.Version = version
			s.Synced = true
			if _, err := repo.SaveObject(ctx, s); err != nil {
				return err
			}
			if err := saveAncestor(ctx, repo, p.libraryID, models.ObjectSetting, s.Key, version, s.Data); err != nil {
				return err
			}
		}
		return repo.SetLibraryVersion(ctx, p.libraryID, version)
	})
	if err != nil {
		return models.UploadNothing, err
	}
	p.lib.Version = version
	p.result.Uploaded += len(settings)
	return models.UploadSuccess, nil
}

// uploadDeletions sends the deletion log per type. A precondition failure
// leaves the entries of the failed and later batches in the log.
func (p *pass) uploadDeletions(ctx context.Context, deletions map[models.ObjectType][]string) (models.UploadResult, error) {
	for _, t := range deletionOrder {
		for _, keys := range chunk(deletions[t], p.opts.UploadBatchSize) {
			var version int64
			err := p.caller.Run(ctx, func(ctx context.Context) error {
				var err error
				version, err = p.api.DeleteObjects(ctx, p.lib, t, keys, p.lib.Version)
				return err
			})
			if errors.Is(err, adapter.ErrPreconditionFailed) {
				p.logRestart(t.Plural() + " deletion")
				return models.UploadRestart, nil
			}
			if err != nil {
				return models.UploadNothing, fmt.Errorf("delete %s: %w", t.Plural(), err)
			}

			err = p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
				if err := repo.RemoveDeletions(ctx, p.libraryID, t, keys); err != nil {
					return err
				}
				if err := repo.DeleteCache(ctx, p.libraryID, t, keys); err != nil {
					return err
				}
				return repo.SetLibraryVersion(ctx, p.libraryID, version)
			})
			if err != nil {
				return models.UploadNothing, err
			}
			p.lib.Version = version
			p.result.Deleted += len(keys)
		}
	}
	return models.UploadSuccess, nil
}

// uploadObjects writes the unsynced objects of t in dependency order.
func (p *pass) uploadObjects(ctx context.Context, t models.ObjectType, objects []models.Object) (models.UploadResult, error) {
	if len(objects) == 0 {
		return models.UploadSuccess, nil
	}

	ordered := uploadOrder(objects)
	payloads := make([]models.ObjectData, len(ordered))
	for i, obj := range ordered {
		var ancestor *models.CacheEntry
		if obj.Version > 0 {
			entry, err := p.store.GetCache(ctx, p.libraryID, t, obj.Key, obj.Version)
			switch {
			case err == nil:
				ancestor = &entry
			case !errors.Is(err, store.ErrCacheNotFound):
				return models.UploadNothing, err
			}
		}
		payloads[i] = buildPayload(p.lib, obj, ancestor)
	}

	batches, err := batchPayloads(payloads, p.opts.UploadBatchSize, p.opts.UploadBatchBytes)
	if err != nil {
		return models.UploadNothing, err
	}

	for _, batch := range batches {
		objs := make([]models.Object, len(batch))
		body := make([]models.ObjectData, len(batch))
		for i, idx := range batch {
			objs[i] = ordered[idx]
			body[i] = payloads[idx]
		}

		var resp models.WriteResponse
		err = p.caller.Run(ctx, func(ctx context.Context) error {
			var err error
			resp, err = p.api.UploadObjects(ctx, p.lib, t, body, p.lib.Version)
			return err
		})
		if errors.Is(err, adapter.ErrPreconditionFailed) {
			p.logRestart(t.Plural())
			return models.UploadRestart, nil
		}
		if err != nil {
			return models.UploadNothing, fmt.Errorf("upload %s: %w", t.Plural(), err)
		}

		restart, err := p.applyWriteResponse(ctx, t, objs, resp)
		if err != nil {
			return models.UploadNothing, err
		}
		if restart {
			p.logRestart(t.Plural())
			return models.UploadRestart, nil
		}
	}
	return models.UploadSuccess, nil
}

// applyWriteResponse applies the result of one write batch. Per-object
// failures are reported after the transaction commits.
func (p *pass) applyWriteResponse(ctx context.Context, t models.ObjectType, objects []models.Object, resp models.WriteResponse) (bool, error) {
	d := descriptorOf(t)
	var restart bool
	var failures []*ObjectError
	var uploaded int

	err := p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
		restart, failures, uploaded = false, nil, 0

		for i, obj := range objects {
			idx := strconv.Itoa(i)

			if remote, ok := resp.Successful[idx]; ok {
				data, _, err := d.decode(remote.Data)
				if err != nil {
					return fmt.Errorf("%w: %s %s: %v", adapter.ErrMalformedResponse, t, obj.Key, err)
				}
				if t == models.ObjectItem {
					if v, ok := obj.Data[dateModifiedField]; ok {
						data[dateModifiedField] = v
					}
				}
				obj.Data = data
				obj.Version = remote.Version
				obj.Synced = true
				obj.ParentKey = models.ParentKeyOf(t, data)
				if _, err = repo.SaveObject(ctx, obj); err != nil {
					return err
				}
				if err = saveAncestor(ctx, repo, p.libraryID, t, obj.Key, obj.Version, data); err != nil {
					return err
				}
				if err = repo.RemoveFromQueue(ctx, p.libraryID, t, []string{obj.Key}); err != nil {
					return err
				}
				uploaded++
				continue
			}

			if _, ok := resp.Unchanged[idx]; ok {
				obj.Synced = true
				if _, err := repo.SaveObject(ctx, obj); err != nil {
					return err
				}
				_, err := repo.GetCache(ctx, p.libraryID, t, obj.Key, obj.Version)
				if errors.Is(err, store.ErrCacheNotFound) {
					err = saveAncestor(ctx, repo, p.libraryID, t, obj.Key, obj.Version, obj.Data)
				}
				if err != nil {
					return err
				}
				uploaded++
				continue
			}

			failed, ok := resp.Failed[idx]
			if !ok {
				return fmt.Errorf("%w: no result for %s %s", adapter.ErrMalformedResponse, t, obj.Key)
			}
			cause := fmt.Errorf("%w: %d %s", ErrObjectRejected, failed.Code, failed.Message)
			switch failed.Code {
			case http.StatusPreconditionFailed:
				restart = true
			case http.StatusConflict:
				if err := repo.QueueObjects(ctx, p.libraryID, t, []string{obj.Key}); err != nil {
					return err
				}
				cause = fmt.Errorf("%w: %s", ErrObjectConflict, failed.Message)
				failures = append(failures, &ObjectError{Type: t, LibraryID: p.libraryID, Key: obj.Key, Queue: true, Err: cause})
			default:
				failures = append(failures, &ObjectError{Type: t, LibraryID: p.libraryID, Key: obj.Key, Err: cause})
			}
		}

		return repo.SetLibraryVersion(ctx, p.libraryID, resp.LibraryVersion)
	})
	if err != nil {
		return false, err
	}
	p.lib.Version = resp.LibraryVersion
	p.result.Uploaded += uploaded

	for _, oe := range failures {
		if err = p.objectError(oe); err != nil {
			return false, err
		}
	}
	return restart, nil
}

// batchPayloads groups payload indexes into batches of at most maxCount
// objects and maxBytes of encoded JSON. A single object larger than
// maxBytes is sent alone.
func batchPayloads(payloads []models.ObjectData, maxCount, maxBytes int) ([][]int, error) {
	var batches [][]int
	var current []int
	size := 2

	for i, payload := range payloads {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode upload payload: %w", err)
		}
		n := len(encoded) + 1
		if len(current) > 0 && (len(current) >= maxCount || size+n > maxBytes) {
			batches = append(batches, current)
			current, size = nil, 2
		}
		current = append(current, i)
		size += n
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches, nil
}

func (p *pass) logRestart(step string) {
	p.log.Info().
		Str("func", "pass.upload").
		Str("step", step).
		Int64("version", p.lib.Version).
		Msg("precondition failed, restart required")
}
