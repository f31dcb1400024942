package engine

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-refsync/internal/adapter"
	"github.com/MKhiriev/go-refsync/internal/store"
	"github.com/MKhiriev/go-refsync/models"
)

// fullSync reconciles the whole library against unconditioned manifests.
// Version mismatches are resolved in favor of the remote side without
// prompting.
func (p *pass) fullSync(ctx context.Context) error {
	p.result.FullSync = true
	p.mu.Lock()
	p.seen = 0
	p.mu.Unlock()

	p.log.Info().
		Str("func", "pass.fullSync").
		Int64("local_version", p.lib.Version).
		Msg("running full sync")

	settings, err := p.getSettings(ctx, 0)
	if err != nil {
		return err
	}
	p.observe(settings.LibraryVersion)
	if err = p.applySettings(ctx, settings, true); err != nil {
		return err
	}

	var deleted models.DeletedResult
	err = p.caller.Run(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = p.api.GetDeleted(ctx, p.lib, 0)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch deletions: %w", err)
	}
	p.observe(deleted.LibraryVersion)

	remoteSettings := make(map[string]int64, len(settings.Settings))
	for name, s := range settings.Settings {
		remoteSettings[name] = s.Version
	}
	if err = p.reconcileAbsent(ctx, models.ObjectSetting, remoteSettings, deleted.Keys(models.ObjectSetting)); err != nil {
		return err
	}

	for _, t := range models.DataObjectTypes {
		manifest, err := p.downloadType(ctx, t, 0, true)
		if err != nil {
			return err
		}
		if err = p.reconcileAbsent(ctx, t, manifest, deleted.Keys(t)); err != nil {
			return err
		}
	}

	return p.commitVersion(ctx, p.highest())
}

// reconcileAbsent handles local objects of t that the server does not list.
// Synced objects deleted remotely are removed. Everything else the server
// does not know is reset to version 0 so that it is uploaded in full.
func (p *pass) reconcileAbsent(ctx context.Context, t models.ObjectType, remote map[string]int64, deletedKeys []string) error {
	objects, err := p.store.ListObjects(ctx, p.libraryID, t)
	if err != nil {
		return fmt.Errorf("load %s objects: %w", t, err)
	}
	deleted := setOf(deletedKeys...)

	return p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
		var drop []string
		for _, obj := range objects {
			if _, ok := remote[obj.Key]; ok {
				continue
			}
			if obj.Version == 0 && !obj.Synced {
				continue
			}
			_, isDeleted := deleted[obj.Key]
			if isDeleted && (obj.Synced || !p.lib.Editable || p.opts.deletionPolicy(t) == DeletionAcceptRemote) {
				drop = append(drop, obj.Key)
				continue
			}
			if !p.lib.Editable {
				continue
			}
			if err := p.recreate(ctx, repo, obj); err != nil {
				return err
			}
		}
		return p.deleteLocal(ctx, repo, t, drop)
	})
}

// upgrade marks the objects last modified before the legacy sync time as
// synced, using the versions of the full manifests. Objects modified
// remotely since that time, or unknown remotely, get version 0 so that the
// following full sync fetches or uploads them.
func (p *pass) upgrade(ctx context.Context) (map[models.ObjectType]models.VersionsResult, error) {
	if p.lib.LegacyLastSync == nil {
		return nil, nil
	}
	lastSync := *p.lib.LegacyLastSync

	p.log.Info().
		Str("func", "pass.upgrade").
		Time("legacy_last_sync", lastSync).
		Msg("upgrading legacy library")

	results := make(map[models.ObjectType]models.VersionsResult, len(models.DataObjectTypes))
	for _, t := range models.DataObjectTypes {
		d := descriptorOf(t)

		full, err := p.getVersions(ctx, t, adapter.VersionsOptions{IncludeTrashed: d.includeTrashed})
		if err != nil {
			return nil, err
		}
		modified, err := p.getVersions(ctx, t, adapter.VersionsOptions{SinceTime: &lastSync, IncludeTrashed: d.includeTrashed})
		if err != nil {
			return nil, err
		}
		results[t] = full

		objects, err := p.store.ListObjects(ctx, p.libraryID, t)
		if err != nil {
			return nil, fmt.Errorf("load %s objects: %w", t, err)
		}

		err = p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
			for _, obj := range objects {
				if obj.ClientDateModified.After(lastSync) {
					continue
				}
				version, known := full.Versions[obj.Key]
				if _, changed := modified.Versions[obj.Key]; !known || changed {
					version = 0
				}
				obj.Version = version
				obj.Synced = true
				if _, err := repo.SaveObject(ctx, obj); err != nil {
					return err
				}
				if version > 0 {
					if err := saveAncestor(ctx, repo, p.libraryID, t, obj.Key, version, obj.Data); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	p.lib.LegacyLastSync = nil
	err := p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
		if err := repo.UpdateLibrary(ctx, p.lib); err != nil {
			return err
		}
		return repo.SetLibraryVersion(ctx, p.libraryID, models.UnknownLibraryVersion)
	})
	if err != nil {
		return nil, err
	}
	p.lib.Version = models.UnknownLibraryVersion
	p.result.Upgraded = true
	return results, nil
}
