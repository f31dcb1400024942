package engine

import (
	"github.com/MKhiriev/go-refsync/internal/config"
	"github.com/MKhiriev/go-refsync/models"
)

// DeletionPolicy decides what happens to a locally edited object that was
// deleted remotely.
type DeletionPolicy string

const (
	DeletionPrompt       DeletionPolicy = "prompt"
	DeletionKeepLocal    DeletionPolicy = "keep-local"
	DeletionAcceptRemote DeletionPolicy = "accept-remote"
)

const (
	defaultDownloadBatchSize = 50
	defaultUploadBatchSize   = 50
	defaultUploadBatchBytes  = 1 << 20
	defaultMaxRestarts       = 3
)

// Options tune a sync pass.
type Options struct {
	// StopOnError aborts the pass on the first per-object failure.
	StopOnError bool
	// OnError is called for every per-object failure when StopOnError is
	// false.
	OnError func(err error)

	DownloadBatchSize int
	UploadBatchSize   int
	UploadBatchBytes  int
	MaxRestarts       int

	Deletions map[models.ObjectType]DeletionPolicy

	Observer Observer
}

// DefaultDeletions returns the default remote deletion policies.
func DefaultDeletions() map[models.ObjectType]DeletionPolicy {
	return map[models.ObjectType]DeletionPolicy{
		models.ObjectItem:       DeletionPrompt,
		models.ObjectCollection: DeletionKeepLocal,
		models.ObjectSearch:     DeletionKeepLocal,
		models.ObjectSetting:    DeletionKeepLocal,
	}
}

// OptionsFromConfig builds Options from the sync configuration group.
func OptionsFromConfig(cfg config.Sync) Options {
	deletions := DefaultDeletions()
	set := func(t models.ObjectType, v string) {
		if v != "" {
			deletions[t] = DeletionPolicy(v)
		}
	}
	set(models.ObjectItem, cfg.ItemDeletions)
	set(models.ObjectCollection, cfg.CollectionDeletions)
	set(models.ObjectSearch, cfg.SearchDeletions)
	set(models.ObjectSetting, cfg.SettingDeletions)

	return Options{
		StopOnError:       cfg.StopOnError,
		DownloadBatchSize: cfg.DownloadBatchSize,
		UploadBatchSize:   cfg.UploadBatchSize,
		UploadBatchBytes:  cfg.UploadBatchBytes,
		MaxRestarts:       cfg.MaxRestarts,
		Deletions:         deletions,
	}
}

func (o Options) withDefaults() Options {
	if o.DownloadBatchSize <= 0 {
		o.DownloadBatchSize = defaultDownloadBatchSize
	}
	if o.UploadBatchSize <= 0 {
		o.UploadBatchSize = defaultUploadBatchSize
	}
	if o.UploadBatchBytes <= 0 {
		o.UploadBatchBytes = defaultUploadBatchBytes
	}
	if o.MaxRestarts <= 0 {
		o.MaxRestarts = defaultMaxRestarts
	}
	deletions := DefaultDeletions()
	for t, p := range o.Deletions {
		deletions[t] = p
	}
	o.Deletions = deletions
	return o
}

func (o Options) deletionPolicy(t models.ObjectType) DeletionPolicy {
	if p, ok := o.Deletions[t]; ok {
		return p
	}
	return DeletionPrompt
}
