package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-refsync/internal/utils"
	"github.com/MKhiriev/go-refsync/models"
)

// DateModifiedLayout is the format of the dateAdded and dateModified fields of
// items.
const DateModifiedLayout = "2006-01-02T15:04:05Z"

const maxKeyAttempts = 5

func (r *repository) CreateLocalObject(ctx context.Context, libraryID int64, objectType models.ObjectType, data models.ObjectData) (models.Object, error) {
	if !objectType.Valid() || objectType == models.ObjectSetting {
		return models.Object{}, fmt.Errorf("%w: %q", ErrInvalidObjectType, objectType)
	}

	key, err := r.freeKey(ctx, libraryID, objectType)
	if err != nil {
		return models.Object{}, err
	}

	now := r.now().UTC()
	data = data.Clone()
	if data == nil {
		data = make(models.ObjectData)
	}
	if objectType == models.ObjectItem {
		stamp := now.Format(DateModifiedLayout)
		if _, ok := data["dateAdded"]; !ok {
			data["dateAdded"] = stamp
		}
		data["dateModified"] = stamp
	}

	return r.SaveObject(ctx, models.Object{
		Type:               objectType,
		LibraryID:          libraryID,
		Key:                key,
		Version:            0,
		Synced:             false,
		ParentKey:          models.ParentKeyOf(objectType, data),
		Data:               data,
		DateAdded:          now,
		ClientDateModified: now,
	})
}

func (r *repository) freeKey(ctx context.Context, libraryID int64, objectType models.ObjectType) (string, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		key := utils.NewObjectKey()
		_, err := r.GetObject(ctx, libraryID, objectType, key)
		if errors.Is(err, ErrObjectNotFound) {
			return key, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrKeyGeneration
}

func (r *repository) UpdateLocalObject(ctx context.Context, libraryID int64, objectType models.ObjectType, key string, data models.ObjectData) (models.Object, error) {
	obj, err := r.GetObject(ctx, libraryID, objectType, key)
	if err != nil {
		return models.Object{}, err
	}

	now := r.now().UTC()
	obj.Data = data.Clone()
	if obj.Data == nil {
		obj.Data = make(models.ObjectData)
	}
	if objectType == models.ObjectItem {
		obj.Data["dateModified"] = now.Format(DateModifiedLayout)
	}
	obj.ParentKey = models.ParentKeyOf(objectType, obj.Data)
	obj.Synced = false
	obj.ClientDateModified = now

	return r.SaveObject(ctx, obj)
}

func (r *repository) EraseLocalObject(ctx context.Context, libraryID int64, objectType models.ObjectType, key string) error {
	obj, err := r.GetObject(ctx, libraryID, objectType, key)
	if err != nil {
		return err
	}

	if err = r.DeleteObjects(ctx, libraryID, objectType, []string{key}); err != nil {
		return err
	}
	if err = r.RemoveFromQueue(ctx, libraryID, objectType, []string{key}); err != nil {
		return err
	}

	// objects the server never saw have nothing to delete remotely
	if obj.Version == 0 {
		return r.DeleteCache(ctx, libraryID, objectType, []string{key})
	}
	return r.LogDeletions(ctx, libraryID, objectType, []string{key})
}

func (r *repository) SetSetting(ctx context.Context, libraryID int64, name string, value any) (models.Object, error) {
	obj, err := r.GetObject(ctx, libraryID, models.ObjectSetting, name)
	switch {
	case errors.Is(err, ErrObjectNotFound):
		obj = models.Object{Type: models.ObjectSetting, LibraryID: libraryID, Key: name}
	case err != nil:
		return models.Object{}, err
	}

	obj.Data = models.ObjectData{"value": value}
	obj.Synced = false
	obj.ClientDateModified = r.now().UTC()

	return r.SaveObject(ctx, obj)
}
