package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/MKhiriev/go-refsync/internal/adapter"
	"github.com/MKhiriev/go-refsync/internal/store"
	"github.com/MKhiriev/go-refsync/models"
)

// deletionOrder is the order in which deletions are applied and uploaded.
var deletionOrder = []models.ObjectType{
	models.ObjectSetting,
	models.ObjectCollection,
	models.ObjectSearch,
	models.ObjectItem,
}

// download applies the remote changes made after the local library version.
func (p *pass) download(ctx context.Context) error {
	since := p.lib.Version

	settings, err := p.getSettings(ctx, since)
	if errors.Is(err, adapter.ErrNotModified) {
		p.log.Debug().Str("func", "pass.download").Int64("since", since).Msg("library unchanged")
		p.result.Unchanged = true
		return nil
	}
	if err != nil {
		return err
	}
	if settings.LibraryVersion < since {
		return errRemoteReset
	}
	p.observe(settings.LibraryVersion)

	if err = p.applySettings(ctx, settings, false); err != nil {
		return err
	}

	for _, t := range models.DataObjectTypes {
		if _, err = p.downloadType(ctx, t, since, false); err != nil {
			return err
		}
	}

	if err = p.downloadDeletions(ctx, since); err != nil {
		return err
	}

	if v := p.highest(); v > p.lib.Version {
		return p.commitVersion(ctx, v)
	}
	return nil
}

func (p *pass) getSettings(ctx context.Context, since int64) (models.SettingsResult, error) {
	var res models.SettingsResult
	err := p.caller.Run(ctx, func(ctx context.Context) error {
		var err error
		res, err = p.api.GetSettings(ctx, p.lib, since)
		return err
	})
	if err != nil && !errors.Is(err, adapter.ErrNotModified) {
		return res, fmt.Errorf("fetch settings: %w", err)
	}
	return res, err
}

func (p *pass) getVersions(ctx context.Context, t models.ObjectType, opts adapter.VersionsOptions) (models.VersionsResult, error) {
	var res models.VersionsResult
	err := p.caller.Run(ctx, func(ctx context.Context) error {
		var err error
		res, err = p.api.GetVersions(ctx, p.lib, t, opts)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("fetch %s versions: %w", t, err)
	}
	p.observe(res.LibraryVersion)
	return res, nil
}

// applySettings upserts downloaded settings. The remote value replaces the
// local one when it is newer than the locally known version or when force is
// set.
func (p *pass) applySettings(ctx context.Context, res models.SettingsResult, force bool) error {
	if len(res.Settings) == 0 {
		return nil
	}

	names := make([]string, 0, len(res.Settings))
	for name := range res.Settings {
		names = append(names, name)
	}
	sort.Strings(names)

	return p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
		for _, name := range names {
			setting := res.Settings[name]

			var value any
			if err := json.Unmarshal(setting.Value, &value); err != nil {
				return fmt.Errorf("%w: setting %q: %v", adapter.ErrMalformedResponse, name, err)
			}
			data := models.ObjectData{"value": value}

			local, err := repo.GetObject(ctx, p.libraryID, models.ObjectSetting, name)
			switch {
			case errors.Is(err, store.ErrObjectNotFound):
				err = p.saveRemote(ctx, repo, models.ObjectSetting, name, setting.Version, data, nil)
			case err != nil:
				return err
			case force || local.Synced || !p.lib.Editable || setting.Version > local.Version || sameContent(local.Data, data):
				err = p.saveRemote(ctx, repo, models.ObjectSetting, name, setting.Version, data, &local)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// downloadType fetches and applies the objects of t changed after since and
// the queued keys of t. It returns the manifest.
func (p *pass) downloadType(ctx context.Context, t models.ObjectType, since int64, full bool) (map[string]int64, error) {
	d := descriptorOf(t)

	var order []string
	if d.topManifest {
		top, err := p.getVersions(ctx, t, adapter.VersionsOptions{Since: since, TopOnly: true, IncludeTrashed: d.includeTrashed})
		if err != nil {
			return nil, err
		}
		order = sortedKeys(top.Versions)
	}
	all, err := p.getVersions(ctx, t, adapter.VersionsOptions{Since: since, IncludeTrashed: d.includeTrashed})
	if err != nil {
		return nil, err
	}
	manifest := all.Versions
	if manifest == nil {
		manifest = make(map[string]int64)
	}
	inOrder := setOf(order...)
	for _, key := range sortedKeys(manifest) {
		if _, ok := inOrder[key]; !ok {
			order = append(order, key)
		}
	}

	local, err := p.store.GetVersions(ctx, p.libraryID, t)
	if err != nil {
		return nil, fmt.Errorf("load local %s versions: %w", t, err)
	}
	queued, err := p.store.ListQueue(ctx, p.libraryID, t)
	if err != nil {
		return nil, fmt.Errorf("load %s sync queue: %w", t, err)
	}

	fetch := make([]string, 0, len(order))
	selected := make(map[string]struct{})
	for _, key := range order {
		remote, ok := manifest[key]
		if !ok {
			continue
		}
		lv, exists := local[key]
		if !exists || lv < remote || (full && lv != remote) {
			fetch = append(fetch, key)
			selected[key] = struct{}{}
		}
	}
	for _, entry := range queued {
		if _, ok := selected[entry.Key]; !ok {
			fetch = append(fetch, entry.Key)
			selected[entry.Key] = struct{}{}
		}
	}

	p.log.Debug().
		Str("func", "pass.downloadType").
		Str("object_type", string(t)).
		Int("manifest", len(manifest)).
		Int("fetch", len(fetch)).
		Int("queued", len(queued)).
		Msg("manifest compared")

	if len(fetch) == 0 {
		return manifest, nil
	}

	objects, err := p.fetchObjects(ctx, t, fetch)
	if err != nil {
		return nil, err
	}

	conflicts, err := p.applyObjects(ctx, d, objects, full)
	if err != nil {
		return nil, err
	}
	if err = p.resolveConflicts(ctx, conflicts); err != nil {
		return nil, err
	}
	return manifest, nil
}

// fetchObjects requests keys in batches through the caller and returns the
// objects in request order.
func (p *pass) fetchObjects(ctx context.Context, t models.ObjectType, keys []string) ([]models.RemoteObject, error) {
	batches := chunk(keys, p.opts.DownloadBatchSize)
	results := make([][]models.RemoteObject, len(batches))

	fns := make([]func(ctx context.Context) error, len(batches))
	for i, batch := range batches {
		fns[i] = func(ctx context.Context) error {
			objects, version, err := p.api.GetObjects(ctx, p.lib, t, batch)
			if err != nil {
				return err
			}
			p.observe(version)
			results[i] = objects
			return nil
		}
	}
	if err := p.caller.RunAll(ctx, fns...); err != nil {
		return nil, fmt.Errorf("fetch %s objects: %w", t, err)
	}

	var objects []models.RemoteObject
	for _, batch := range results {
		objects = append(objects, batch...)
	}
	return objects, nil
}

// applyObjects applies downloaded objects, one transaction per batch.
// Objects whose parent is not yet present are retried once after all
// batches. Conflicts are returned for resolution.
func (p *pass) applyObjects(ctx context.Context, d typeDescriptor, objects []models.RemoteObject, full bool) ([]models.Conflict, error) {
	var conflicts []models.Conflict
	var deferred []models.RemoteObject

	for _, batch := range chunk(objects, p.opts.DownloadBatchSize) {
		var batchConflicts []models.Conflict
		var batchDeferred []models.RemoteObject

		err := p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
			batchConflicts, batchDeferred = nil, nil
			for _, remote := range batch {
				conflict, wait, err := p.applyObject(ctx, repo, d, remote, full, false)
				if err != nil {
					return err
				}
				if wait {
					batchDeferred = append(batchDeferred, remote)
				}
				if conflict != nil {
					batchConflicts = append(batchConflicts, *conflict)
				}
			}
			return nil
		})
		if err != nil {
			return nil, p.queueAborted(ctx, err)
		}
		conflicts = append(conflicts, batchConflicts...)
		deferred = append(deferred, batchDeferred...)
	}

	if len(deferred) > 0 {
		var retryConflicts []models.Conflict
		err := p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
			retryConflicts = nil
			for _, remote := range deferred {
				conflict, _, err := p.applyObject(ctx, repo, d, remote, full, true)
				if err != nil {
					return err
				}
				if conflict != nil {
					retryConflicts = append(retryConflicts, *conflict)
				}
			}
			return nil
		})
		if err != nil {
			return nil, p.queueAborted(ctx, err)
		}
		conflicts = append(conflicts, retryConflicts...)
	}
	return conflicts, nil
}

// applyObject applies one downloaded object. wait is true when the parent
// of the object is missing and lastTry is false.
func (p *pass) applyObject(ctx context.Context, repo store.Repository, d typeDescriptor, remote models.RemoteObject, full, lastTry bool) (conflict *models.Conflict, wait bool, err error) {
	t := d.objectType

	data, dropped, err := d.decode(remote.Data)
	if err != nil {
		return nil, false, p.queueObject(ctx, repo, t, remote.Key, err)
	}
	if len(dropped) > 0 {
		p.log.Warn().
			Str("func", "pass.applyObject").
			Str("object_type", string(t)).
			Str("object_key", remote.Key).
			Strs("fields", dropped).
			Msg("unknown fields dropped")
	}

	if parent := parentKeyOf(t, remote.Data); parent != "" {
		_, err = repo.GetObject(ctx, p.libraryID, t, parent)
		switch {
		case errors.Is(err, store.ErrObjectNotFound):
			if !lastTry {
				return nil, true, nil
			}
			return nil, false, p.queueObject(ctx, repo, t, remote.Key, fmt.Errorf("%w: %s", ErrMissingParent, parent))
		case err != nil:
			return nil, false, err
		}
	}

	local, err := repo.GetObject(ctx, p.libraryID, t, remote.Key)
	if errors.Is(err, store.ErrObjectNotFound) {
		if !full && p.lib.Editable {
			logged, err := isLoggedDeletion(ctx, repo, p.libraryID, t, remote.Key)
			if err != nil {
				return nil, false, err
			}
			if logged {
				return &models.Conflict{
					Kind:          models.ConflictLocalDeletion,
					Type:          t,
					LibraryID:     p.libraryID,
					Key:           remote.Key,
					Ancestor:      latestAncestor(ctx, repo, p.libraryID, t, remote.Key),
					Remote:        data,
					RemoteVersion: remote.Version,
				}, false, nil
			}
		}
		return nil, false, p.saveRemote(ctx, repo, t, remote.Key, remote.Version, data, nil)
	}
	if err != nil {
		return nil, false, err
	}

	if local.Synced || full || !p.lib.Editable || sameContent(local.Data, data) {
		return nil, false, p.saveRemote(ctx, repo, t, remote.Key, remote.Version, data, &local)
	}
	if remote.Version <= local.Version {
		// local edits are newer than what the server returned
		return nil, false, repo.RemoveFromQueue(ctx, p.libraryID, t, []string{remote.Key})
	}

	ancestor := latestAncestor(ctx, repo, p.libraryID, t, remote.Key)
	if ancestor != nil && sameContent(local.Data, ancestor) {
		// marked unsynced without a content change
		return nil, false, p.saveRemote(ctx, repo, t, remote.Key, remote.Version, data, &local)
	}
	merged, fields := threeWayMerge(ancestor, local.Data, data)
	if fields != nil {
		return &models.Conflict{
			Kind:          models.ConflictFields,
			Type:          t,
			LibraryID:     p.libraryID,
			Key:           remote.Key,
			Ancestor:      ancestor,
			Local:         local.Data,
			LocalVersion:  local.Version,
			Remote:        data,
			RemoteVersion: remote.Version,
			Fields:        fields,
		}, false, nil
	}

	p.log.Info().
		Str("func", "pass.applyObject").
		Str("object_type", string(t)).
		Str("object_key", remote.Key).
		Msg("local and remote changes merged")
	return nil, false, p.keepLocal(ctx, repo, local, merged, remote.Version, data)
}

// downloadDeletions applies the remote deletions made after since.
func (p *pass) downloadDeletions(ctx context.Context, since int64) error {
	var deleted models.DeletedResult
	err := p.caller.Run(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = p.api.GetDeleted(ctx, p.lib, since)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch deletions: %w", err)
	}
	p.observe(deleted.LibraryVersion)

	var conflicts []models.Conflict
	err = p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
		conflicts = nil
		for _, t := range deletionOrder {
			keys := deleted.Keys(t)
			if len(keys) == 0 {
				continue
			}
			// erased locally and remotely: nothing left to upload
			if err := repo.RemoveDeletions(ctx, p.libraryID, t, keys); err != nil {
				return err
			}
			// queued keys that never became local objects
			if err := repo.RemoveFromQueue(ctx, p.libraryID, t, keys); err != nil {
				return err
			}

			objects, err := repo.GetObjects(ctx, p.libraryID, t, keys)
			if err != nil {
				return err
			}

			var drop []string
			for _, obj := range objects {
				if obj.Synced || !p.lib.Editable {
					drop = append(drop, obj.Key)
					continue
				}
				switch p.opts.deletionPolicy(t) {
				case DeletionAcceptRemote:
					drop = append(drop, obj.Key)
				case DeletionKeepLocal:
					if err = p.recreate(ctx, repo, obj); err != nil {
						return err
					}
				default:
					conflicts = append(conflicts, models.Conflict{
						Kind:          models.ConflictRemoteDeletion,
						Type:          t,
						LibraryID:     p.libraryID,
						Key:           obj.Key,
						Ancestor:      latestAncestor(ctx, repo, p.libraryID, t, obj.Key),
						Local:         obj.Data,
						LocalVersion:  obj.Version,
						RemoteVersion: deleted.LibraryVersion,
					})
				}
			}
			if err = p.deleteLocal(ctx, repo, t, drop); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return p.resolveConflicts(ctx, conflicts)
}

// saveRemote stores the remote representation as the synced local object
// and as the cache ancestor.
func (p *pass) saveRemote(ctx context.Context, repo store.Repository, t models.ObjectType, key string, version int64, data models.ObjectData, local *models.Object) error {
	obj := models.Object{
		Type:      t,
		LibraryID: p.libraryID,
		Key:       key,
		Version:   version,
		Synced:    true,
		ParentKey: models.ParentKeyOf(t, data),
		Data:      data,
	}
	if local != nil {
		obj.ClientDateModified = local.ClientDateModified
	}

	if _, err := repo.SaveObject(ctx, obj); err != nil {
		return err
	}
	if err := saveAncestor(ctx, repo, p.libraryID, t, key, version, data); err != nil {
		return err
	}
	if err := repo.RemoveFromQueue(ctx, p.libraryID, t, []string{key}); err != nil {
		return err
	}
	if err := repo.RemoveDeletions(ctx, p.libraryID, t, []string{key}); err != nil {
		return err
	}
	p.result.Downloaded++
	return nil
}

// keepLocal stores data as the unsynced local content at the remote version
// and caches the remote representation as the new ancestor.
func (p *pass) keepLocal(ctx context.Context, repo store.Repository, local models.Object, data models.ObjectData, remoteVersion int64, remote models.ObjectData) error {
	local.Data = data
	local.Version = remoteVersion
	local.Synced = false
	local.ParentKey = models.ParentKeyOf(local.Type, data)

	if _, err := repo.SaveObject(ctx, local); err != nil {
		return err
	}
	if err := saveAncestor(ctx, repo, p.libraryID, local.Type, local.Key, remoteVersion, remote); err != nil {
		return err
	}
	return repo.RemoveFromQueue(ctx, p.libraryID, local.Type, []string{local.Key})
}

// recreate keeps a remotely deleted object as a new unsynced local object,
// so that the next upload sends it in full.
func (p *pass) recreate(ctx context.Context, repo store.Repository, obj models.Object) error {
	obj.Version = 0
	obj.Synced = false
	if _, err := repo.SaveObject(ctx, obj); err != nil {
		return err
	}
	return repo.DeleteCache(ctx, p.libraryID, obj.Type, []string{obj.Key})
}

// deleteLocal removes objects without recording the deletion for upload.
func (p *pass) deleteLocal(ctx context.Context, repo store.Repository, t models.ObjectType, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := repo.DeleteObjects(ctx, p.libraryID, t, keys); err != nil {
		return err
	}
	if err := repo.DeleteCache(ctx, p.libraryID, t, keys); err != nil {
		return err
	}
	if err := repo.RemoveFromQueue(ctx, p.libraryID, t, keys); err != nil {
		return err
	}
	p.result.Deleted += len(keys)
	return nil
}

func saveAncestor(ctx context.Context, repo store.Repository, libraryID int64, t models.ObjectType, key string, version int64, data models.ObjectData) error {
	return repo.SaveCache(ctx, models.CacheEntry{
		Type:      t,
		LibraryID: libraryID,
		Key:       key,
		Version:   version,
		Data:      data,
	})
}

// latestAncestor returns the cached ancestor data, or nil when none is
// cached or it cannot be read.
func latestAncestor(ctx context.Context, repo store.Repository, libraryID int64, t models.ObjectType, key string) models.ObjectData {
	entry, err := repo.GetLatestCache(ctx, libraryID, t, key)
	if err != nil {
		return nil
	}
	return entry.Data
}

func isLoggedDeletion(ctx context.Context, repo store.Repository, libraryID int64, t models.ObjectType, key string) (bool, error) {
	entries, err := repo.ListDeletions(ctx, libraryID, t)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
